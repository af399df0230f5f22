// Package soap implements the wire-level engine of the toolkit: the
// canonical XML tree, the SOAP 1.1/1.2 envelope codec, MTOM/XOP multipart
// framing, WS-Security headers, the SOAP fault model, and the operation
// dispatcher that drives a single RPC call end to end.
package soap

// Tree is the canonical XML value described by the toolkit's data model.
// It is always one of:
//
//   - string      — a pure text node
//   - *Element    — a mapping of attribute ("@name"), text ("#text") and
//     child element keys, in first-seen order
//   - Sequence    — an ordered list of repeated sibling elements that
//     share one key
//   - Attachment  — present only in parameter trees passed to the
//     dispatcher; never produced by the parser
type Tree any

// Sequence holds the values of repeated sibling elements under the same
// key, in document order.
type Sequence []Tree

// Element is an ordered mapping: the canonical tree's "mapping" case.
// Keys beginning with "@" carry attribute values (always strings); the
// literal key "#text" carries concatenated mixed-content text; every
// other key names a child element whose value is itself a Tree.
//
// Element preserves insertion order so that serialize(parse(doc)) can
// reproduce sibling element order, something a bare Go map cannot
// guarantee.
type Element struct {
	keys   []string
	values map[string]Tree
}

// NewElement returns an empty Element.
func NewElement() *Element {
	return &Element{values: map[string]Tree{}}
}

// Keys returns the element's keys in first-seen order.
func (e *Element) Keys() []string {
	return e.keys
}

// Get returns the value stored under key, if any.
func (e *Element) Get(key string) (Tree, bool) {
	if e == nil {
		return nil, false
	}
	v, ok := e.values[key]
	return v, ok
}

// Set stores val under key. A second Set for the same key collapses the
// existing value and val into a Sequence, preserving order; this is how
// repeated sibling elements are built up while parsing.
func (e *Element) Set(key string, val Tree) {
	existing, ok := e.values[key]
	if !ok {
		e.keys = append(e.keys, key)
		e.values[key] = val
		return
	}
	switch cur := existing.(type) {
	case Sequence:
		e.values[key] = append(cur, val)
	default:
		e.values[key] = Sequence{cur, val}
	}
}

// SetOnce stores val under key, overwriting any previous value instead of
// collapsing into a Sequence. Used when building trees programmatically
// (e.g. envelope construction) where repeats are supplied directly as a
// Sequence rather than one Set call per sibling.
func (e *Element) SetOnce(key string, val Tree) {
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = val
}

// Attr returns the value of the "@name" attribute.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Get("@" + name)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, ok
}

// SetAttr sets the "@name" attribute to value.
func (e *Element) SetAttr(name, value string) {
	e.SetOnce("@"+name, value)
}

// Text returns the element's own text: either the "#text" key (mixed
// content) or, for pure-text leaves represented without a #text key by
// the caller, an empty string. Consumers that might receive either a raw
// string Tree or an *Element with "#text" should use TextOf instead.
func (e *Element) Text() string {
	v, _ := e.Get("#text")
	s, _ := v.(string)
	return s
}

// Children returns the element's child-element keys, skipping attributes
// and "#text".
func (e *Element) Children() []string {
	out := make([]string, 0, len(e.keys))
	for _, k := range e.keys {
		if IsElementKey(k) {
			out = append(out, k)
		}
	}
	return out
}

// IsElementKey reports whether key names a child element rather than an
// attribute or the "#text" marker.
func IsElementKey(key string) bool {
	return key != "#text" && (len(key) == 0 || key[0] != '@')
}

// IsAttrKey reports whether key names an attribute ("@..." form).
func IsAttrKey(key string) bool {
	return len(key) > 0 && key[0] == '@'
}

// TextOf extracts the plain text carried by a Tree value, accepting both
// forms a text-valued element may take: a raw string (no attributes, no
// children) or an *Element carrying "#text" (when attributes such as
// xsi:type are present). Every consumer of a text value must go through
// this helper instead of type-asserting directly to string.
func TextOf(v Tree) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case *Element:
		if txt, ok := t.Get("#text"); ok {
			if s, ok := txt.(string); ok {
				return s, true
			}
		}
		// An element with no #text and no children (e.g. an empty
		// leaf) has empty text content.
		if len(t.Children()) == 0 {
			return "", true
		}
		return "", false
	default:
		return "", false
	}
}

// LocalName returns the portion of a qualified key after the final ":",
// i.e. the local name stripped of any namespace prefix.
func LocalName(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == ':' {
			return key[i+1:]
		}
	}
	return key
}

// SuffixMatch reports whether key's local name (see LocalName) equals
// local. This is the single abstraction downstream components use to
// recognize an element regardless of which namespace prefix a document
// happened to use (soap:, SOAP-ENV:, s:, env:, or none) — see the design
// note on prefix-polymorphic lookup.
func SuffixMatch(key, local string) bool {
	return LocalName(key) == local
}

// FindChild returns the first child of e whose key's local name matches
// local, along with the matching key.
func FindChild(e *Element, local string) (key string, val Tree, ok bool) {
	if e == nil {
		return "", nil, false
	}
	for _, k := range e.keys {
		if IsElementKey(k) && SuffixMatch(k, local) {
			return k, e.values[k], true
		}
	}
	return "", nil, false
}

// FindOperationElement returns the local name and content of the first
// child element of a SOAP Body, i.e. the operation wrapper a server uses
// to identify which registered operation a request targets. The returned
// name is stripped of any namespace prefix.
func FindOperationElement(body *Element) (name string, content *Element, ok bool) {
	if body == nil {
		return "", nil, false
	}
	for _, k := range body.keys {
		if !IsElementKey(k) {
			continue
		}
		content, _ = body.values[k].(*Element)
		return LocalName(k), content, true
	}
	return "", nil, false
}
