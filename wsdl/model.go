package wsdl

import "github.com/hooklift/soapkit/common"

// ServiceModel is the immutable, in-memory result of analyzing a WSDL
// document (spec.md §3). It is built once per client instance and never
// mutated afterwards; the Dispatcher holds only references into it.
type ServiceModel struct {
	TargetNamespace string
	ServiceName     string
	Endpoints       []Endpoint
	Operations      []Operation
	// Types indexes every XsdType the Analyzer resolved, one Types[XsdType]
	// registry per schema namespace (a WSDL with imported schemas resolves
	// types across several namespaces at once). Built on the generic
	// registry in package common rather than a bare map so that the same
	// registry shape serves any future per-namespace metamodel without
	// wsdl and common importing one another.
	Types *common.NamespaceTypes[XsdType]
}

// OperationByName returns the first operation whose Name matches exactly
// (case-sensitive), per spec.md §4.6 step 1.
func (m *ServiceModel) OperationByName(name string) (Operation, bool) {
	for _, op := range m.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// Endpoint is one reachable address for a binding.
type Endpoint struct {
	Address     string
	BindingRef  string
	Transport   string
	SOAPVersion SOAPVersion
}

// SOAPVersion distinguishes which envelope/binding namespace a binding
// was declared against.
type SOAPVersion int

const (
	SOAPVersionUnknown SOAPVersion = iota
	SOAPVersion11
	SOAPVersion12
)

// Style is an operation's WSDL style, document or RPC.
type Style int

const (
	StyleDocument Style = iota
	StyleRPC
)

// Operation is a single named RPC (spec.md §3).
type Operation struct {
	Name          string
	Documentation string
	SOAPAction    string
	Style         Style
	Input         Message
	Output        Message
	Faults        []Message
	BindingRef    string
}

// Message is an ordered set of named parts, each referencing a type.
type Message struct {
	Name  string
	Parts []MessagePartRef
}

// PartByName looks up a part by name within a Message.
func (m Message) PartByName(name string) (MessagePartRef, bool) {
	for _, p := range m.Parts {
		if p.Name == name {
			return p, true
		}
	}
	return MessagePartRef{}, false
}

// MessagePartRef is one named, typed part of a Message.
type MessagePartRef struct {
	Name     string
	TypeRef  string
	Required bool
}

// XsdType is the canonical representation of an XSD type definition
// (spec.md §3): exactly one of the variants below is populated, selected
// by Kind.
type XsdType struct {
	Kind XsdTypeKind

	// Primitive holds the XSD built-in name when Kind == XsdPrimitive
	// (one of string, int, decimal, boolean, dateTime, date,
	// base64Binary).
	Primitive string

	// Complex holds the ordered field list when Kind == XsdComplex.
	Complex []XsdField

	// Enumeration holds the base type and allowed values when
	// Kind == XsdEnumeration.
	EnumBase   string
	EnumValues []string

	// ListItem holds the item type reference when Kind == XsdList.
	ListItem string

	// UnionMembers holds the member type references when
	// Kind == XsdUnion.
	UnionMembers []string
}

// XsdTypeKind selects which variant of XsdType is populated.
type XsdTypeKind int

const (
	XsdPrimitive XsdTypeKind = iota
	XsdComplex
	XsdEnumeration
	XsdList
	XsdUnion
)

// XsdField is one field of a complex type.
type XsdField struct {
	Name      string
	TypeRef   string
	MinOccurs int
	MaxOccurs int // -1 means unbounded
	Nillable  bool
}
