// Package wsdl implements the WSDL Analyzer and WSDL Generator: parsing a
// WSDL 1.1 document plus its inline/imported XSD schemas into an immutable
// ServiceModel, and emitting a conforming WSDL 1.1 document from one.
package wsdl

import "encoding/xml"

// The types below are raw `encoding/xml` unmarshal targets for a WSDL 1.1
// document and its inline XSD schemas. They mirror the shape the teacher's
// generator worked from (gowsdl.go/resolver.go reference a WSDL/XSDSchema
// struct family without defining it in the retrieved slice); field names
// and nesting here follow the WSDL 1.1 and XML Schema specifications
// directly.

// Definitions is the root of a WSDL 1.1 document.
type Definitions struct {
	XMLName         xml.Name          `xml:"definitions"`
	Name            string            `xml:"name,attr"`
	TargetNamespace string            `xml:"targetNamespace,attr"`
	Xmlns           map[string]string `xml:"-"`
	Types           Types             `xml:"types"`
	Messages        []WSDLMessage     `xml:"message"`
	PortTypes       []PortType        `xml:"portType"`
	Bindings        []Binding         `xml:"binding"`
	Services        []Service         `xml:"service"`
}

// UnmarshalXML captures Definitions' attributes generically so that
// xmlns:* declarations (an open-ended attribute set, one per imported
// prefix) are collected into Xmlns without requiring a fixed field per
// prefix.
func (d *Definitions) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	type rawDefinitions Definitions
	aux := rawDefinitions{}
	d.Xmlns = map[string]string{}
	for _, a := range start.Attr {
		if a.Name.Space == "xmlns" {
			d.Xmlns[a.Name.Local] = a.Value
		} else if a.Name.Local == "xmlns" {
			d.Xmlns[""] = a.Value
		}
	}
	if err := dec.DecodeElement(&aux, &start); err != nil {
		return err
	}
	xmlns := d.Xmlns
	*d = Definitions(aux)
	d.Xmlns = xmlns
	return nil
}

// Types wraps one or more inline XSD schemas.
type Types struct {
	Schemas []*XSDSchema `xml:"schema"`
}

// XSDSchema is one `xsd:schema` block.
type XSDSchema struct {
	TargetNamespace string            `xml:"targetNamespace,attr"`
	ElementForm     string            `xml:"elementFormDefault,attr"`
	Xmlns           map[string]string `xml:"-"`
	Imports         []XSDImport       `xml:"import"`
	Includes        []XSDInclude      `xml:"include"`
	Elements        []*XSDElement     `xml:"element"`
	ComplexTypes    []*XSDComplexType `xml:"complexType"`
	SimpleTypes     []*XSDSimpleType  `xml:"simpleType"`
}

func (s *XSDSchema) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	type rawSchema XSDSchema
	aux := rawSchema{}
	xmlns := map[string]string{}
	for _, a := range start.Attr {
		if a.Name.Space == "xmlns" {
			xmlns[a.Name.Local] = a.Value
		} else if a.Name.Local == "xmlns" {
			xmlns[""] = a.Value
		}
	}
	if err := dec.DecodeElement(&aux, &start); err != nil {
		return err
	}
	*s = XSDSchema(aux)
	s.Xmlns = xmlns
	return nil
}

// XSDImport is an `xsd:import`.
type XSDImport struct {
	Namespace      string `xml:"namespace,attr"`
	SchemaLocation string `xml:"schemaLocation,attr"`
}

// XSDInclude is an `xsd:include`.
type XSDInclude struct {
	SchemaLocation string `xml:"schemaLocation,attr"`
}

// XSDElement is an `xsd:element` declaration, either top-level or nested
// inside a complex type's sequence/choice/all.
type XSDElement struct {
	Name        string           `xml:"name,attr"`
	Type        string           `xml:"type,attr"`
	Ref         string           `xml:"ref,attr"`
	MinOccurs   string           `xml:"minOccurs,attr"`
	MaxOccurs   string           `xml:"maxOccurs,attr"`
	Nillable    bool             `xml:"nillable,attr"`
	ComplexType *XSDComplexType  `xml:"complexType"`
	SimpleType  *XSDSimpleType   `xml:"simpleType"`
	Annotation  *XSDAnnotation   `xml:"annotation"`
}

// XSDAnnotation carries `xsd:documentation` text.
type XSDAnnotation struct {
	Documentation string `xml:"documentation"`
}

// XSDComplexType is an `xsd:complexType`.
type XSDComplexType struct {
	Name           string          `xml:"name,attr"`
	Sequence       *XSDGroup       `xml:"sequence"`
	Choice         *XSDGroup       `xml:"choice"`
	All            *XSDGroup       `xml:"all"`
	ComplexContent *XSDContent     `xml:"complexContent"`
	SimpleContent  *XSDContent     `xml:"simpleContent"`
	Attributes     []XSDAttribute  `xml:"attribute"`
}

// XSDGroup is the content model of a complexType: an ordered particle
// (sequence, choice, or all), holding nested element declarations.
type XSDGroup struct {
	Elements []*XSDElement `xml:"element"`
}

// XSDContent represents `xsd:complexContent`/`xsd:simpleContent`, each
// wrapping an extension or restriction of a base type.
type XSDContent struct {
	Extension   *XSDExtension   `xml:"extension"`
	Restriction *XSDRestriction `xml:"restriction"`
}

// XSDExtension is `xsd:extension`, adding fields onto a base type.
type XSDExtension struct {
	Base     string    `xml:"base,attr"`
	Sequence *XSDGroup `xml:"sequence"`
}

// XSDSimpleType is an `xsd:simpleType`: an enumeration, list, or union.
type XSDSimpleType struct {
	Name        string          `xml:"name,attr"`
	Restriction *XSDRestriction `xml:"restriction"`
	List        *XSDList        `xml:"list"`
	Union       *XSDUnion       `xml:"union"`
}

// XSDRestriction is `xsd:restriction`, carrying a base type and, for
// enumerations, the set of allowed values.
type XSDRestriction struct {
	Base         string             `xml:"base,attr"`
	Enumerations []XSDEnumeration   `xml:"enumeration"`
}

// XSDEnumeration is one `xsd:enumeration` facet value.
type XSDEnumeration struct {
	Value string `xml:"value,attr"`
}

// XSDList is `xsd:list`, an ordered collection of one item type.
type XSDList struct {
	ItemType string `xml:"itemType,attr"`
}

// XSDUnion is `xsd:union`, a type accepting any of several member types.
type XSDUnion struct {
	MemberTypes string `xml:"memberTypes,attr"`
}

// XSDAttribute is an `xsd:attribute` declaration.
type XSDAttribute struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

// WSDLMessage is a top-level `wsdl:message`.
type WSDLMessage struct {
	Name  string      `xml:"name,attr"`
	Parts []MessagePart `xml:"part"`
}

// MessagePart is one `wsdl:part`, referring either to an XSD element (the
// document/literal wrapped style) or directly to a type.
type MessagePart struct {
	Name    string `xml:"name,attr"`
	Element string `xml:"element,attr"`
	Type    string `xml:"type,attr"`
}

// PortType is a `wsdl:portType`: an interface grouping operations.
type PortType struct {
	Name       string          `xml:"name,attr"`
	Operations []PortOperation `xml:"operation"`
}

// PortOperation is one `wsdl:operation` inside a portType.
type PortOperation struct {
	Name          string                `xml:"name,attr"`
	Documentation string                `xml:"documentation"`
	Input         *PortOperationMessage `xml:"input"`
	Output        *PortOperationMessage `xml:"output"`
	Faults        []PortOperationMessage `xml:"fault"`
}

// PortOperationMessage references a `wsdl:message` by qualified name.
type PortOperationMessage struct {
	Name    string `xml:"name,attr"`
	Message string `xml:"message,attr"`
}

// Binding is a `wsdl:binding`, associating a portType with a SOAP
// transport, style, and per-operation SOAPAction.
type Binding struct {
	Name          string             `xml:"name,attr"`
	Type          string             `xml:"type,attr"`
	SOAPBinding   *SOAPBinding       `xml:"binding"`
	Operations    []BindingOperation `xml:"operation"`
}

// SOAPBinding is the `soap:binding`/`soap12:binding` child of a binding,
// carrying the transport URI and default style. XMLName retains the
// element's actual namespace so callers can tell a SOAP 1.1 binding
// (http://schemas.xmlsoap.org/wsdl/soap/) from a 1.2 one
// (http://schemas.xmlsoap.org/wsdl/soap12/); encoding/xml otherwise
// matches both against the bare tag "binding" since it only carries a
// local name.
type SOAPBinding struct {
	XMLName   xml.Name `xml:""`
	Transport string   `xml:"transport,attr"`
	Style     string   `xml:"style,attr"`
}

// NS12 is the SOAP 1.2 WSDL binding namespace.
const NS12 = "http://schemas.xmlsoap.org/wsdl/soap12/"

// IsVersion12 reports whether this binding element was declared in the
// SOAP 1.2 WSDL binding namespace.
func (b *SOAPBinding) IsVersion12() bool {
	return b != nil && b.XMLName.Space == NS12
}

// BindingOperation is one `wsdl:operation` inside a binding.
type BindingOperation struct {
	Name          string        `xml:"name,attr"`
	SOAPOperation SOAPOperation `xml:"operation"`
}

// SOAPOperation is the `soap:operation`/`soap12:operation` child of a
// binding operation.
type SOAPOperation struct {
	SOAPAction string `xml:"soapAction,attr"`
	Style      string `xml:"style,attr"`
}

// Service is a `wsdl:service`, grouping one or more ports.
type Service struct {
	Name  string `xml:"name,attr"`
	Ports []Port `xml:"port"`
}

// Port is a `wsdl:port`: a binding bound to a concrete address.
type Port struct {
	Name        string      `xml:"name,attr"`
	Binding     string      `xml:"binding,attr"`
	SOAPAddress SOAPAddress `xml:"address"`
}

// SOAPAddress is the `soap:address`/`soap12:address` child of a port.
type SOAPAddress struct {
	Location string `xml:"location,attr"`
}
