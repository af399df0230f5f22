package wsdl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCalculatorModel() *ServiceModel {
	return &ServiceModel{
		TargetNamespace: "urn:example:calculator",
		ServiceName:     "CalculatorService",
		Operations: []Operation{
			{
				Name:       "Add",
				SOAPAction: "urn:example:calculator/Add",
				Input: Message{Parts: []MessagePartRef{
					{Name: "a", TypeRef: "decimal", Required: true},
					{Name: "b", TypeRef: "decimal", Required: true},
				}},
				Output: Message{Parts: []MessagePartRef{
					{Name: "result", TypeRef: "decimal", Required: true},
				}},
			},
		},
	}
}

func TestGenerateEmitsWellFormedWSDL(t *testing.T) {
	model := buildCalculatorModel()
	out, err := Generate(model, GenerateOptions{ServiceAddress: "http://localhost/calculator", Version: SOAPVersion11})
	require.NoError(t, err)

	doc := string(out)
	assert.Contains(t, doc, `targetNamespace="urn:example:calculator"`)
	assert.Contains(t, doc, `<wsdl:operation name="Add">`)
	assert.Contains(t, doc, `soapAction="urn:example:calculator/Add"`)
	assert.Contains(t, doc, `location="http://localhost/calculator"`)
	assert.Contains(t, doc, `xmlns:soap="http://schemas.xmlsoap.org/wsdl/soap/"`)
	assert.Contains(t, doc, `type="xsd:decimal"`)
}

func TestGenerateVersion12UsesSoap12Binding(t *testing.T) {
	model := buildCalculatorModel()
	out, err := Generate(model, GenerateOptions{ServiceAddress: "http://localhost/calculator", Version: SOAPVersion12})
	require.NoError(t, err)

	doc := string(out)
	assert.Contains(t, doc, `xmlns:soap12="http://schemas.xmlsoap.org/wsdl/soap12/"`)
	assert.Contains(t, doc, `<soap12:binding`)
}

func TestGenerateRoundTripsThroughAnalyze(t *testing.T) {
	model := buildCalculatorModel()
	out, err := Generate(model, GenerateOptions{ServiceAddress: "http://localhost/calculator", Version: SOAPVersion11})
	require.NoError(t, err)

	reanalyzed, err := Analyze(out, "http://localhost/calculator", AnalyzeOptions{})
	require.NoError(t, err)

	op, ok := reanalyzed.OperationByName("Add")
	require.True(t, ok)
	assert.Equal(t, "urn:example:calculator/Add", op.SOAPAction)
	require.Len(t, op.Input.Parts, 2)
	_, ok = op.Input.PartByName("a")
	assert.True(t, ok)
}

func TestXsdTypeName(t *testing.T) {
	assert.Equal(t, "xsd:string", xsdTypeName("string"))
	assert.Equal(t, "xsd:decimal", xsdTypeName("decimal"))
	assert.Equal(t, "xsd:string", xsdTypeName(""))
	assert.Equal(t, "tns:CustomType", xsdTypeName("tns:CustomType"))
}
