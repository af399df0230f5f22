package soap

import "fmt"

// Fault is the SOAP fault model: a uniform representation of both SOAP
// 1.1 (faultcode/faultstring/faultactor/detail) and SOAP 1.2
// (Code/Value, Reason/Text, Role, Detail) faults. A Fault is never merged
// into normal dispatcher output; it is always surfaced as a distinguished
// error.
type Fault struct {
	Code    string
	Subcode string
	String  string
	Actor   string
	Detail  *Element
}

func (f *Fault) Error() string {
	if f.Code == "" {
		return f.String
	}
	return fmt.Sprintf("soap fault [%s]: %s", f.Code, f.String)
}

// DetectFault inspects a parsed SOAP Body tree and returns the Fault it
// contains, if any. Recognition is by local-name suffix "Fault" on any
// child of Body, independent of namespace prefix (soap:Fault,
// SOAP-ENV:Fault, s:Fault, env:Fault, or an unprefixed Fault all match).
func DetectFault(body *Element) (*Fault, bool) {
	if body == nil {
		return nil, false
	}
	_, val, ok := FindChild(body, "Fault")
	if !ok {
		return nil, false
	}
	elem, _ := val.(*Element)
	if elem == nil {
		return &Fault{}, true
	}
	if f, ok := extractFault11(elem); ok {
		return f, true
	}
	return extractFault12(elem), true
}

func extractFault11(elem *Element) (*Fault, bool) {
	_, codeVal, hasCode := FindChild(elem, "faultcode")
	_, stringVal, hasString := FindChild(elem, "faultstring")
	if !hasCode && !hasString {
		return nil, false
	}
	f := &Fault{
		Code:   textOrEmpty(codeVal),
		String: textOrEmpty(stringVal),
	}
	if _, v, ok := FindChild(elem, "faultactor"); ok {
		f.Actor = textOrEmpty(v)
	}
	if _, v, ok := FindChild(elem, "detail"); ok {
		f.Detail = asElement(v)
	}
	return f, true
}

func extractFault12(elem *Element) *Fault {
	f := &Fault{}
	if _, codeElemVal, ok := FindChild(elem, "Code"); ok {
		codeElem := asElement(codeElemVal)
		if _, v, ok := FindChild(codeElem, "Value"); ok {
			f.Code = textOrEmpty(v)
		}
		if _, subVal, ok := FindChild(codeElem, "Subcode"); ok {
			if subElem := asElement(subVal); subElem != nil {
				if _, v, ok := FindChild(subElem, "Value"); ok {
					f.Subcode = textOrEmpty(v)
				}
			}
		}
	}
	if _, reasonVal, ok := FindChild(elem, "Reason"); ok {
		reasonElem := asElement(reasonVal)
		if _, v, ok := FindChild(reasonElem, "Text"); ok {
			f.String = textOrEmpty(v)
		}
	}
	if _, v, ok := FindChild(elem, "Role"); ok {
		f.Actor = textOrEmpty(v)
	}
	if _, v, ok := FindChild(elem, "Detail"); ok {
		f.Detail = asElement(v)
	}
	return f
}

func textOrEmpty(v Tree) string {
	s, _ := TextOf(v)
	return s
}

func asElement(v Tree) *Element {
	e, _ := v.(*Element)
	return e
}

// EmitFault builds the version-appropriate Fault content for a server
// response: a Body-level element whose single "soap:Fault" child carries
// the fault, for the caller to wrap in its own soap:Envelope/soap:Body.
func EmitFault(f *Fault, version Version) *Element {
	body := NewElement()
	if version == Version12 {
		fault := NewElement()
		code := NewElement()
		code.SetOnce("Value", nonEmpty(f.Code, "Receiver"))
		if f.Subcode != "" {
			sub := NewElement()
			sub.SetOnce("Value", f.Subcode)
			code.SetOnce("Subcode", sub)
		}
		fault.SetOnce("Code", code)
		reason := NewElement()
		reason.SetOnce("Text", f.String)
		fault.SetOnce("Reason", reason)
		if f.Actor != "" {
			fault.SetOnce("Role", f.Actor)
		}
		if f.Detail != nil {
			fault.SetOnce("Detail", f.Detail)
		}
		body.SetOnce("soap:Fault", fault)
		return body
	}

	fault := NewElement()
	fault.SetOnce("faultcode", nonEmpty(f.Code, "Server"))
	fault.SetOnce("faultstring", f.String)
	if f.Actor != "" {
		fault.SetOnce("faultactor", f.Actor)
	}
	if f.Detail != nil {
		fault.SetOnce("detail", f.Detail)
	}
	body.SetOnce("soap:Fault", fault)
	return body
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
