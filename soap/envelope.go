package soap

import "fmt"

// Version selects which SOAP wire version an envelope is built for.
type Version int

const (
	Version11 Version = iota
	Version12
)

// Namespace URIs for the two SOAP envelope versions.
const (
	NSEnvelope11 = "http://schemas.xmlsoap.org/soap/envelope/"
	NSEnvelope12 = "http://www.w3.org/2003/05/soap-envelope"
)

func (v Version) namespace() string {
	if v == Version12 {
		return NSEnvelope12
	}
	return NSEnvelope11
}

// BuildOptions configures Envelope Builder output (spec.md §4.3).
type BuildOptions struct {
	// Version selects the SOAP namespace and prefix convention. Defaults
	// to Version11 (the zero value).
	Version Version
	// Namespace is the operation's target namespace, declared as
	// "xmlns:tns" on the envelope and used to qualify the operation
	// element.
	Namespace string
	// Headers are inserted verbatim as children of soap:Header, in order.
	Headers []Tree
	// SOAPAction is recorded for the caller's use building transport
	// headers; it is never written into the envelope body itself.
	SOAPAction string
}

// Build assembles a SOAP envelope for a single operation call: an
// operation element named opName, qualified by opts.Namespace, whose
// children are projected from params, wrapped in soap:Body, optionally
// preceded by soap:Header containing opts.Headers.
func Build(opName string, params Tree, opts BuildOptions) ([]byte, error) {
	envelope := NewElement()
	envelope.SetAttr("xmlns:soap", opts.Version.namespace())
	if opts.Namespace != "" {
		envelope.SetAttr("xmlns:tns", opts.Namespace)
	}

	if len(opts.Headers) > 0 {
		header := NewElement()
		for _, h := range opts.Headers {
			if err := mergeHeaderInto(header, h); err != nil {
				return nil, err
			}
		}
		envelope.SetOnce("soap:Header", header)
	}

	body := NewElement()
	opElem, err := projectParams(params)
	if err != nil {
		return nil, err
	}
	opKey := opName
	if opts.Namespace != "" {
		opKey = "tns:" + opName
	}
	body.SetOnce(opKey, opElem)
	envelope.SetOnce("soap:Body", body)

	root := NewElement()
	root.SetOnce("soap:Envelope", envelope)
	return Serialize(root)
}

// mergeHeaderInto adds a single header Tree as a child of header. Header
// trees built by callers are typically *Element values with one
// meaningful top-level key (e.g. "wsse:Security"); a bare string header is
// rejected since SOAP headers must be elements.
func mergeHeaderInto(header *Element, h Tree) error {
	elem, ok := h.(*Element)
	if !ok {
		return &BuildError{Reason: "header value must be an *Element"}
	}
	for _, k := range elem.Keys() {
		v, _ := elem.Get(k)
		header.Set(k, v)
	}
	return nil
}

// projectParams turns a parameter Tree into the *Element written as the
// body of the operation wrapper element. Primitive leaves (string) are
// not directly valid bodies for the wrapper itself (the wrapper is always
// an element), so a bare string/number param set is only meaningful
// already wrapped in an *Element by the caller (the dispatcher always
// supplies one).
func projectParams(params Tree) (*Element, error) {
	switch t := params.(type) {
	case nil:
		return NewElement(), nil
	case *Element:
		return t, nil
	default:
		return nil, &BuildError{Reason: fmt.Sprintf("operation params must be a tree/mapping, got %T", params)}
	}
}

// ParsedEnvelope is the result of parsing a SOAP envelope off the wire.
type ParsedEnvelope struct {
	// EnvelopeNS is the namespace URI declared for the envelope prefix
	// used in the document (read from the matching "@xmlns:<prefix>"
	// attribute when present).
	EnvelopeNS string
	Header     *Element
	Body       *Element
}

// ParseEnvelope unwraps a raw SOAP document: it locates Envelope, Header
// (optional) and Body by local-name suffix, accepting any prefix
// (soap, SOAP-ENV, s, env, or none).
func ParseEnvelope(data []byte) (*ParsedEnvelope, error) {
	root, err := Parse(data)
	if err != nil {
		return nil, err
	}
	_, envKey, envVal, ok := findRootEnvelope(root)
	if !ok {
		return nil, &ParseError{Reason: "no Envelope element found"}
	}
	envelope, _ := envVal.(*Element)
	if envelope == nil {
		return nil, &ParseError{Reason: "Envelope element has no content"}
	}

	ns := declaredNamespace(envelope, envKey)

	out := &ParsedEnvelope{EnvelopeNS: ns}
	if _, hv, ok := FindChild(envelope, "Header"); ok {
		out.Header = asElement(hv)
	}
	_, bv, ok := FindChild(envelope, "Body")
	if !ok {
		return nil, &ParseError{Reason: "Envelope has no Body"}
	}
	out.Body = asElement(bv)
	if out.Body == nil {
		out.Body = NewElement()
	}
	return out, nil
}

func findRootEnvelope(root *Element) (prefix, key string, val Tree, ok bool) {
	for _, k := range root.Keys() {
		if SuffixMatch(k, "Envelope") {
			v, _ := root.Get(k)
			return envelopePrefix(k), k, v, true
		}
	}
	return "", "", nil, false
}

func envelopePrefix(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return ""
}

// declaredNamespace reads the "xmlns:<prefix>" (or bare "xmlns" when the
// element was unprefixed) attribute declared on the Envelope element.
func declaredNamespace(envelope *Element, envKey string) string {
	prefix := envelopePrefix(envKey)
	attrName := "xmlns"
	if prefix != "" {
		attrName = "xmlns:" + prefix
	}
	if v, ok := envelope.Attr(attrName); ok {
		return v
	}
	return ""
}

// UnwrapResponse strips an outer "<OpNameResponse>" wrapper (any
// namespace prefix) from body, returning the remaining content as a
// mapping of the operation's output parameters. If body instead contains
// a SOAP Fault, UnwrapResponse returns it via the Fault Model. Callers
// must never see the Envelope/Body/<OpNameResponse> wrappers in the
// result.
func UnwrapResponse(body *Element, opName string) (*Element, *Fault, error) {
	if fault, ok := DetectFault(body); ok {
		return nil, fault, nil
	}

	// A single child keyed "<...>OpNameResponse" is unwrapped; anything
	// else is returned as-is (already the bare result, e.g. one-way
	// replies or non-wrapped styles).
	responseLocal := opName + "Response"
	if _, val, ok := FindChild(body, responseLocal); ok {
		if elem, ok := val.(*Element); ok {
			return elem, nil, nil
		}
		return NewElement(), nil, nil
	}
	return body, nil, nil
}
