package soap

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed-XML failure from Parse, carrying the
// byte offset at which the parser gave up.
type ParseError struct {
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("xml parse error at offset %d: %s", e.Offset, e.Reason)
}

// Parse parses a well-formed XML document into a canonical tree rooted at
// a single *Element whose one key is the document's root element name
// (prefix included, verbatim). Namespace prefixes are never resolved or
// rewritten: downstream code compares by local-name suffix (SuffixMatch),
// optionally checking a declared "@xmlns:prefix" attribute when the
// prefix itself must be disambiguated.
func Parse(data []byte) (*Element, error) {
	p := &xmlParser{data: data}
	p.skipProlog()
	p.skipMisc()
	if p.pos >= len(p.data) {
		return nil, &ParseError{Offset: p.pos, Reason: "no root element"}
	}
	name, val, err := p.parseElement()
	if err != nil {
		return nil, err
	}
	p.skipMisc()
	root := NewElement()
	root.SetOnce(name, val)
	return root, nil
}

// Serialize renders a canonical tree back to XML bytes, emitting an
// "<?xml version=\"1.0\" encoding=\"UTF-8\"?>" prolog followed by each of
// root's keys as a top-level element (normally exactly one: the document
// root). Sequence values serialize as repeated sibling elements in order;
// "@attr" keys serialize as attributes; "#text" serializes as the
// element's text content.
func Serialize(root *Element) ([]byte, error) {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>")
	for _, k := range root.Keys() {
		v, _ := root.Get(k)
		if err := writeNamed(&b, k, v); err != nil {
			return nil, err
		}
	}
	return []byte(b.String()), nil
}

func writeNamed(b *strings.Builder, key string, v Tree) error {
	switch t := v.(type) {
	case Sequence:
		for _, item := range t {
			if err := writeNamed(b, key, item); err != nil {
				return err
			}
		}
		return nil
	case Attachment:
		return fmt.Errorf("soap: cannot serialize raw attachment %q directly; substitute an xop:Include first", key)
	default:
		return writeElement(b, key, v)
	}
}

func writeElement(b *strings.Builder, key string, v Tree) error {
	var attrs []string
	var text string
	var children []string
	var elem *Element

	switch t := v.(type) {
	case string:
		text = t
	case *Element:
		elem = t
		for _, k := range t.Keys() {
			switch {
			case IsAttrKey(k):
				val, _ := t.Get(k)
				s, _ := val.(string)
				attrs = append(attrs, fmt.Sprintf(` %s="%s"`, k[1:], EscapeAttr(s)))
			case k == "#text":
				val, _ := t.Get(k)
				s, _ := val.(string)
				text = s
			default:
				children = append(children, k)
			}
		}
	case nil:
		// empty element
	default:
		return fmt.Errorf("soap: unsupported tree value of type %T for %q", v, key)
	}

	b.WriteString("<")
	b.WriteString(key)
	for _, a := range attrs {
		b.WriteString(a)
	}

	if elem == nil && text == "" {
		b.WriteString("></")
		b.WriteString(key)
		b.WriteString(">")
		return nil
	}

	if len(children) == 0 {
		b.WriteString(">")
		b.WriteString(EscapeText(text))
		b.WriteString("</")
		b.WriteString(key)
		b.WriteString(">")
		return nil
	}

	b.WriteString(">")
	if text != "" {
		b.WriteString(EscapeText(text))
	}
	for _, ck := range children {
		cv, _ := elem.Get(ck)
		if err := writeNamed(b, ck, cv); err != nil {
			return err
		}
	}
	b.WriteString("</")
	b.WriteString(key)
	b.WriteString(">")
	return nil
}

// EscapeText escapes the five XML-significant characters in text content.
func EscapeText(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}

// EscapeAttr escapes an attribute value, in addition to the text escapes,
// quote characters that would otherwise terminate the attribute.
func EscapeAttr(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}

// xmlParser is a small recursive-descent reader over raw bytes. It is
// deliberately not based on encoding/xml: that package resolves namespace
// prefixes into URIs and discards the original prefix text, which the
// toolkit's data model requires to be preserved verbatim.
type xmlParser struct {
	data []byte
	pos  int
}

func (p *xmlParser) errorf(format string, args ...any) error {
	return &ParseError{Offset: p.pos, Reason: fmt.Sprintf(format, args...)}
}

func (p *xmlParser) peek() byte {
	if p.pos >= len(p.data) {
		return 0
	}
	return p.data[p.pos]
}

func (p *xmlParser) skipSpace() {
	for p.pos < len(p.data) && isSpace(p.data[p.pos]) {
		p.pos++
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func (p *xmlParser) skipProlog() {
	p.skipSpace()
	if strings.HasPrefix(string(p.data[p.pos:minInt(p.pos+5, len(p.data))]), "<?xml") {
		end := strings.Index(string(p.data[p.pos:]), "?>")
		if end >= 0 {
			p.pos += end + 2
		}
	}
}

// skipMisc skips whitespace, comments, processing instructions, and
// doctype declarations that may appear before/after the root element.
func (p *xmlParser) skipMisc() {
	for {
		p.skipSpace()
		rest := p.data[p.pos:]
		switch {
		case strings.HasPrefix(string(rest), "<!--"):
			end := strings.Index(string(rest), "-->")
			if end < 0 {
				p.pos = len(p.data)
				return
			}
			p.pos += end + 3
		case strings.HasPrefix(string(rest), "<?"):
			end := strings.Index(string(rest), "?>")
			if end < 0 {
				p.pos = len(p.data)
				return
			}
			p.pos += end + 2
		case strings.HasPrefix(string(rest), "<!"):
			end := strings.IndexByte(string(rest), '>')
			if end < 0 {
				p.pos = len(p.data)
				return
			}
			p.pos += end + 1
		default:
			return
		}
	}
}

// parseElement parses a single element (the parser must be positioned at
// its opening "<") and returns its qualified name and value.
func (p *xmlParser) parseElement() (string, Tree, error) {
	if p.peek() != '<' {
		return "", nil, p.errorf("expected '<'")
	}
	p.pos++

	name, err := p.readName()
	if err != nil {
		return "", nil, err
	}

	attrs, selfClose, err := p.readAttrs()
	if err != nil {
		return "", nil, err
	}

	elem := NewElement()
	for _, a := range attrs {
		elem.SetOnce("@"+a.name, a.value)
	}

	if selfClose {
		if len(attrs) == 0 {
			return name, "", nil
		}
		return name, elem, nil
	}

	var textBuf strings.Builder
	hasChildren := false

	for {
		p.skipMiscBetween()
		if p.pos >= len(p.data) {
			return "", nil, p.errorf("unexpected end of document inside <%s>", name)
		}
		if p.peek() == '<' {
			if p.pos+1 < len(p.data) && p.data[p.pos+1] == '/' {
				closeName, err := p.readCloseTag()
				if err != nil {
					return "", nil, err
				}
				if closeName != name {
					return "", nil, p.errorf("mismatched closing tag: expected </%s>, got </%s>", name, closeName)
				}
				break
			}
			childName, childVal, err := p.parseElement()
			if err != nil {
				return "", nil, err
			}
			elem.Set(childName, childVal)
			hasChildren = true
			continue
		}
		text, err := p.readText()
		if err != nil {
			return "", nil, err
		}
		textBuf.WriteString(text)
	}

	text := textBuf.String()
	if len(attrs) == 0 && !hasChildren {
		return name, text, nil
	}
	if text != "" {
		elem.SetOnce("#text", text)
	}
	return name, elem, nil
}

// skipMiscBetween skips comments/PIs that may appear between sibling
// elements without consuming leading significant whitespace as those are
// handled by readText.
func (p *xmlParser) skipMiscBetween() {
	for {
		rest := p.data[p.pos:]
		switch {
		case strings.HasPrefix(string(rest), "<!--"):
			end := strings.Index(string(rest), "-->")
			if end < 0 {
				p.pos = len(p.data)
				return
			}
			p.pos += end + 3
		case strings.HasPrefix(string(rest), "<![CDATA["):
			return // handled by readText
		case strings.HasPrefix(string(rest), "<?"):
			end := strings.Index(string(rest), "?>")
			if end < 0 {
				p.pos = len(p.data)
				return
			}
			p.pos += end + 2
		default:
			return
		}
	}
}

type xmlAttr struct {
	name  string
	value string
}

func (p *xmlParser) readName() (string, error) {
	start := p.pos
	for p.pos < len(p.data) && !isSpace(p.data[p.pos]) && p.data[p.pos] != '>' && p.data[p.pos] != '/' {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("expected element name")
	}
	return string(p.data[start:p.pos]), nil
}

func (p *xmlParser) readAttrs() ([]xmlAttr, bool, error) {
	var attrs []xmlAttr
	for {
		p.skipSpace()
		if p.pos >= len(p.data) {
			return nil, false, p.errorf("unexpected end of document in tag")
		}
		if p.data[p.pos] == '/' {
			p.pos++
			p.skipSpace()
			if p.peek() != '>' {
				return nil, false, p.errorf("expected '>' after '/'")
			}
			p.pos++
			return attrs, true, nil
		}
		if p.data[p.pos] == '>' {
			p.pos++
			return attrs, false, nil
		}
		name, err := p.readName()
		if err != nil {
			return nil, false, err
		}
		p.skipSpace()
		if p.peek() != '=' {
			return nil, false, p.errorf("expected '=' after attribute name %q", name)
		}
		p.pos++
		p.skipSpace()
		quote := p.peek()
		if quote != '"' && quote != '\'' {
			return nil, false, p.errorf("expected quoted attribute value for %q", name)
		}
		p.pos++
		start := p.pos
		for p.pos < len(p.data) && p.data[p.pos] != quote {
			p.pos++
		}
		if p.pos >= len(p.data) {
			return nil, false, p.errorf("unterminated attribute value for %q", name)
		}
		raw := string(p.data[start:p.pos])
		p.pos++ // closing quote
		attrs = append(attrs, xmlAttr{name: name, value: unescape(raw)})
	}
}

func (p *xmlParser) readCloseTag() (string, error) {
	p.pos += 2 // "</"
	name, err := p.readName()
	if err != nil {
		return "", err
	}
	p.skipSpace()
	if p.peek() != '>' {
		return "", p.errorf("expected '>' closing </%s>", name)
	}
	p.pos++
	return name, nil
}

func (p *xmlParser) readText() (string, error) {
	if strings.HasPrefix(string(p.data[p.pos:]), "<![CDATA[") {
		p.pos += len("<![CDATA[")
		start := p.pos
		end := strings.Index(string(p.data[p.pos:]), "]]>")
		if end < 0 {
			return "", p.errorf("unterminated CDATA section")
		}
		text := string(p.data[start : start+end])
		p.pos = start + end + 3
		return text, nil
	}
	start := p.pos
	for p.pos < len(p.data) && p.data[p.pos] != '<' {
		p.pos++
	}
	return unescape(string(p.data[start:p.pos])), nil
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '&' {
			b.WriteByte(s[i])
			continue
		}
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			b.WriteByte(s[i])
			continue
		}
		entity := s[i : i+end+1]
		switch entity {
		case "&lt;":
			b.WriteByte('<')
		case "&gt;":
			b.WriteByte('>')
		case "&amp;":
			b.WriteByte('&')
		case "&quot;":
			b.WriteByte('"')
		case "&apos;":
			b.WriteByte('\'')
		default:
			if r, ok := decodeNumericEntity(entity); ok {
				b.WriteRune(r)
			} else {
				b.WriteString(entity)
			}
		}
		i += end
	}
	return b.String()
}

func decodeNumericEntity(entity string) (rune, bool) {
	inner := strings.TrimSuffix(strings.TrimPrefix(entity, "&#"), ";")
	if inner == "" {
		return 0, false
	}
	var n int64
	var err error
	if strings.HasPrefix(inner, "x") || strings.HasPrefix(inner, "X") {
		_, err = fmt.Sscanf(inner[1:], "%x", &n)
	} else {
		_, err = fmt.Sscanf(inner, "%d", &n)
	}
	if err != nil {
		return 0, false
	}
	return rune(n), true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
