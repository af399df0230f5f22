package wsdl

import (
	"bytes"
	"strings"
	"text/template"
	"unicode"

	"github.com/Masterminds/sprig/v3"
	"github.com/iancoleman/strcase"
)

// GenerateOptions configures Generate.
type GenerateOptions struct {
	// ServiceAddress is the endpoint location written into the emitted
	// service/port/soap:address. Required.
	ServiceAddress string
	// Version selects the soap/soap12 binding namespace and the element
	// names the template emits. Defaults to SOAPVersion11.
	Version SOAPVersion
}

// soapPrefix returns the document namespace prefix ("soap"/"soap12") for
// the selected SOAP version.
func (o GenerateOptions) soapPrefix() string {
	if o.Version == SOAPVersion12 {
		return "soap12"
	}
	return "soap"
}

func (o GenerateOptions) bindingNamespace() string {
	if o.Version == SOAPVersion12 {
		return "http://schemas.xmlsoap.org/wsdl/soap12/"
	}
	return "http://schemas.xmlsoap.org/wsdl/soap/"
}

// Generate emits a single WSDL 1.1 document from model: one types/schema
// element per operation's input/output wrapper, one message per input and
// output, one portType enumerating operations, one binding, and one
// service with a port at opts.ServiceAddress. Document style is
// document/literal throughout, per spec.md §4.8. This continues the
// teacher's text/template + Masterminds/sprig/v3 approach to code
// generation (gowsdl.go genTypes/genService), retargeted from emitting Go
// source to emitting the WSDL document itself.
func Generate(model *ServiceModel, opts GenerateOptions) ([]byte, error) {
	tmpl, err := template.New("wsdl").Funcs(sprig.TxtFuncMap()).Funcs(template.FuncMap{
		"xsdElement":  xsdElementXML,
		"wrapperName": wrapperElementName,
	}).Parse(wsdlDocumentTemplate)
	if err != nil {
		return nil, err
	}

	data := struct {
		Model   *ServiceModel
		Opts    GenerateOptions
		Prefix  string
		BindNS  string
	}{
		Model:  model,
		Opts:   opts,
		Prefix: opts.soapPrefix(),
		BindNS: opts.bindingNamespace(),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// xsdElementXML renders one wrapper element declaration (the
// document/literal style wraps every operation's parts in a single named
// element) for the input or output Message of an operation. name is
// expected to already be QName-safe (see wrapperElementName); part names
// are passed through xmlSafeName individually since they come from the
// model's own MessagePartRef.Name, not from the wrapper-naming convention.
func xsdElementXML(name string, msg Message) string {
	var buf bytes.Buffer
	buf.WriteString(`<xsd:element name="`)
	buf.WriteString(name)
	buf.WriteString("\">\n  <xsd:complexType>\n    <xsd:sequence>\n")
	for _, part := range msg.Parts {
		buf.WriteString(`      <xsd:element name="`)
		buf.WriteString(xmlSafeName(part.Name))
		buf.WriteString(`" type="`)
		buf.WriteString(xsdTypeName(part.TypeRef))
		buf.WriteString("\"/>\n")
	}
	buf.WriteString("    </xsd:sequence>\n  </xsd:complexType>\n</xsd:element>\n")
	return buf.String()
}

// wrapperElementName renders the document/literal wrapper element name for
// an operation's input or output: opName run through xmlSafeName (so an
// operation name pulled from arbitrary wire content still yields a legal
// QName) plus the "Request"/"Response" suffix.
func wrapperElementName(opName, suffix string) string {
	return xmlSafeName(opName) + suffix
}

// xmlSafeName returns name unchanged if it is already a valid XML NCName,
// else rewrites it to strcase.ToCamel(name) (PascalCase, stripping spaces,
// underscores and punctuation) so every wrapper element, part, and type
// name the Generator emits is a legal QName even when the source model
// carries an arbitrary operation or part name. Already-valid names are
// left untouched so wire-visible parameter names survive a generate then
// analyze round trip unchanged.
func xmlSafeName(name string) string {
	if isValidNCName(name) {
		return name
	}
	return strcase.ToCamel(name)
}

func isValidNCName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case unicode.IsLetter(r) || r == '_':
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// xsdTypeName renders a type reference as an `xsd:`-prefixed QName when it
// names an XML Schema built-in, else passes it through as a `tns:`
// reference into the emitted schema's own target namespace, sanitized to a
// valid QName local part via xmlSafeName.
func xsdTypeName(typeRef string) string {
	local := typeRef
	if strings.HasPrefix(typeRef, "xsd:") || strings.HasPrefix(typeRef, "xs:") {
		local = localName(typeRef)
	}
	for _, builtin := range []string{"string", "int", "decimal", "boolean", "dateTime", "date", "base64Binary"} {
		if local == builtin {
			return "xsd:" + builtin
		}
	}
	if typeRef == "" {
		return "xsd:string"
	}
	return "tns:" + xmlSafeName(localName(typeRef))
}

const wsdlDocumentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<wsdl:definitions name="{{.Model.ServiceName}}"
    targetNamespace="{{.Model.TargetNamespace}}"
    xmlns:wsdl="http://schemas.xmlsoap.org/wsdl/"
    xmlns:{{.Prefix}}="{{.BindNS}}"
    xmlns:xsd="http://www.w3.org/2001/XMLSchema"
    xmlns:tns="{{.Model.TargetNamespace}}">

  <wsdl:types>
    <xsd:schema targetNamespace="{{.Model.TargetNamespace}}"
        xmlns:xsd="http://www.w3.org/2001/XMLSchema"
        xmlns:tns="{{.Model.TargetNamespace}}"
        elementFormDefault="qualified">
{{- range .Model.Operations}}
{{indent 4 (xsdElement (wrapperName .Name "Request") .Input)}}
{{- if .Output.Parts}}
{{indent 4 (xsdElement (wrapperName .Name "Response") .Output)}}
{{- end}}
{{- end}}
    </xsd:schema>
  </wsdl:types>

{{range .Model.Operations}}
  <wsdl:message name="{{wrapperName .Name "Request"}}">
    <wsdl:part name="parameters" element="tns:{{wrapperName .Name "Request"}}"/>
  </wsdl:message>
{{- if .Output.Parts}}
  <wsdl:message name="{{wrapperName .Name "Response"}}">
    <wsdl:part name="parameters" element="tns:{{wrapperName .Name "Response"}}"/>
  </wsdl:message>
{{- end}}
{{end}}
  <wsdl:portType name="{{.Model.ServiceName}}PortType">
{{- range .Model.Operations}}
    <wsdl:operation name="{{.Name}}">
      {{- if .Documentation}}
      <wsdl:documentation>{{.Documentation}}</wsdl:documentation>
      {{- end}}
      <wsdl:input message="tns:{{wrapperName .Name "Request"}}"/>
      {{- if .Output.Parts}}
      <wsdl:output message="tns:{{wrapperName .Name "Response"}}"/>
      {{- end}}
    </wsdl:operation>
{{- end}}
  </wsdl:portType>

  <wsdl:binding name="{{.Model.ServiceName}}Binding" type="tns:{{.Model.ServiceName}}PortType">
    <{{.Prefix}}:binding transport="http://schemas.xmlsoap.org/soap/http" style="document"/>
{{- range .Model.Operations}}
    <wsdl:operation name="{{.Name}}">
      <{{$.Prefix}}:operation soapAction="{{.SOAPAction}}"/>
      <wsdl:input>
        <{{$.Prefix}}:body use="literal"/>
      </wsdl:input>
      {{- if .Output.Parts}}
      <wsdl:output>
        <{{$.Prefix}}:body use="literal"/>
      </wsdl:output>
      {{- end}}
    </wsdl:operation>
{{- end}}
  </wsdl:binding>

  <wsdl:service name="{{.Model.ServiceName}}">
    <wsdl:port name="{{.Model.ServiceName}}Port" binding="tns:{{.Model.ServiceName}}Binding">
      <{{.Prefix}}:address location="{{.Opts.ServiceAddress}}"/>
    </wsdl:port>
  </wsdl:service>
</wsdl:definitions>
`
