package wsdl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calculatorWSDL = `<?xml version="1.0"?>
<definitions name="CalculatorService"
	targetNamespace="urn:example:calculator"
	xmlns:tns="urn:example:calculator"
	xmlns:xsd="http://www.w3.org/2001/XMLSchema"
	xmlns:soap="http://schemas.xmlsoap.org/wsdl/soap/"
	xmlns="http://schemas.xmlsoap.org/wsdl/">
	<types>
		<xsd:schema targetNamespace="urn:example:calculator">
			<xsd:element name="AddRequest">
				<xsd:complexType>
					<xsd:sequence>
						<xsd:element name="a" type="xsd:decimal"/>
						<xsd:element name="b" type="xsd:decimal"/>
					</xsd:sequence>
				</xsd:complexType>
			</xsd:element>
			<xsd:element name="AddResponse">
				<xsd:complexType>
					<xsd:sequence>
						<xsd:element name="result" type="xsd:decimal"/>
					</xsd:sequence>
				</xsd:complexType>
			</xsd:element>
		</xsd:schema>
	</types>
	<message name="AddRequest">
		<part name="parameters" element="tns:AddRequest"/>
	</message>
	<message name="AddResponse">
		<part name="parameters" element="tns:AddResponse"/>
	</message>
	<portType name="CalculatorPortType">
		<operation name="Add">
			<documentation>Adds two decimal numbers.</documentation>
			<input message="tns:AddRequest"/>
			<output message="tns:AddResponse"/>
		</operation>
	</portType>
	<binding name="CalculatorBinding" type="tns:CalculatorPortType">
		<soap:binding transport="http://schemas.xmlsoap.org/soap/http" style="document"/>
		<operation name="Add">
			<soap:operation soapAction="urn:example:calculator/Add"/>
		</operation>
	</binding>
	<service name="CalculatorService">
		<port name="CalculatorPort" binding="tns:CalculatorBinding">
			<soap:address location="http://localhost/calculator"/>
		</port>
	</service>
</definitions>`

func TestAnalyzeFlattensWrappedMessageParts(t *testing.T) {
	model, err := Analyze([]byte(calculatorWSDL), "http://localhost/calculator", AnalyzeOptions{})
	require.NoError(t, err)

	op, ok := model.OperationByName("Add")
	require.True(t, ok)
	assert.Equal(t, "urn:example:calculator/Add", op.SOAPAction)
	assert.Equal(t, StyleDocument, op.Style)

	// The wire-level wsdl:part is a single wrapper named "parameters"
	// referencing the AddRequest element; Input.Parts must be that
	// element's own fields ("a", "b"), not the literal wrapper part.
	require.Len(t, op.Input.Parts, 2)
	a, ok := op.Input.PartByName("a")
	require.True(t, ok)
	assert.Equal(t, "xsd:decimal", a.TypeRef)
	assert.True(t, a.Required)

	b, ok := op.Input.PartByName("b")
	require.True(t, ok)
	assert.Equal(t, "xsd:decimal", b.TypeRef)

	require.Len(t, op.Output.Parts, 1)
	result, ok := op.Output.PartByName("result")
	require.True(t, ok)
	assert.Equal(t, "xsd:decimal", result.TypeRef)
}

func TestAnalyzeResolvesDocumentLevelTnsPrefix(t *testing.T) {
	// Regression test: wsdl:part "element" references are qualified by a
	// prefix ("tns") bound at the wsdl:definitions level, not inside any
	// xsd:schema, so the resolver must fall back to the document's own
	// xmlns declarations when no schema is in scope. Without that
	// fallback, "tns:AddRequest" resolves to an empty namespace, the
	// wrapper degrades to a bare string type, and Input.Parts ends up as
	// a single unresolved "parameters" part instead of the wrapper
	// element's own flattened fields.
	model, err := Analyze([]byte(calculatorWSDL), "http://localhost/calculator", AnalyzeOptions{})
	require.NoError(t, err)

	op, ok := model.OperationByName("Add")
	require.True(t, ok)
	_, ok = op.Input.PartByName("parameters")
	assert.False(t, ok, "the literal wrapper part name must not leak into Input.Parts")

	_, ok = op.Input.PartByName("a")
	assert.True(t, ok, "the wrapper element's own field must be resolved as a top-level part")
}

func TestAnalyzeBuildsEndpoints(t *testing.T) {
	model, err := Analyze([]byte(calculatorWSDL), "http://localhost/calculator", AnalyzeOptions{})
	require.NoError(t, err)

	require.Len(t, model.Endpoints, 1)
	ep := model.Endpoints[0]
	assert.Equal(t, "http://localhost/calculator", ep.Address)
	assert.Equal(t, SOAPVersion11, ep.SOAPVersion)
}

func TestAnalyzeRejectsNonWSDLRoot(t *testing.T) {
	// encoding/xml itself enforces the "definitions" root element name
	// against Definitions' XMLName tag, so a mismatched root surfaces as
	// a decode failure rather than reaching the explicit
	// AnalysisMissingDefinitions check.
	_, err := Analyze([]byte(`<not-wsdl/>`), "http://localhost", AnalyzeOptions{})
	require.Error(t, err)
	var analysisErr *AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, AnalysisMalformedXML, analysisErr.Kind)
}

func TestAnalyzeMalformedXML(t *testing.T) {
	_, err := Analyze([]byte(`<definitions><`), "http://localhost", AnalyzeOptions{})
	require.Error(t, err)
	var analysisErr *AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, AnalysisMalformedXML, analysisErr.Kind)
}
