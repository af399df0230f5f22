package soap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFault11(t *testing.T) {
	doc := []byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
		<soap:Body>
			<soap:Fault>
				<faultcode>soap:Client</faultcode>
				<faultstring>Division by zero</faultstring>
			</soap:Fault>
		</soap:Body>
	</soap:Envelope>`)

	parsed, err := ParseEnvelope(doc)
	require.NoError(t, err)

	fault, ok := DetectFault(parsed.Body)
	require.True(t, ok)
	assert.Equal(t, "soap:Client", fault.Code)
	assert.Equal(t, "Division by zero", fault.String)
}

func TestDetectFault12(t *testing.T) {
	doc := []byte(`<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope">
		<env:Body>
			<env:Fault>
				<env:Code><env:Value>env:Sender</env:Value></env:Code>
				<env:Reason><env:Text>bad input</env:Text></env:Reason>
			</env:Fault>
		</env:Body>
	</env:Envelope>`)

	parsed, err := ParseEnvelope(doc)
	require.NoError(t, err)

	fault, ok := DetectFault(parsed.Body)
	require.True(t, ok)
	assert.Equal(t, "env:Sender", fault.Code)
	assert.Equal(t, "bad input", fault.String)
}

func TestDetectFaultPrefixPolymorphism(t *testing.T) {
	for _, prefix := range []string{"soap", "SOAP-ENV", "s", "env"} {
		doc := []byte(`<` + prefix + `:Fault><faultcode>Client</faultcode><faultstring>bad</faultstring></` + prefix + `:Fault>`)
		tree, err := Parse(doc)
		require.NoError(t, err)

		body := NewElement()
		val, _ := tree.Get(prefix + ":Fault")
		body.SetOnce(prefix+":Fault", val)

		fault, ok := DetectFault(body)
		require.True(t, ok, "prefix %q", prefix)
		assert.Equal(t, "Client", fault.Code)
	}
}

func TestEmitFault11(t *testing.T) {
	f := &Fault{Code: "Server", String: "internal error"}
	body := EmitFault(f, Version11)

	val, ok := body.Get("soap:Fault")
	require.True(t, ok)
	faultElem := val.(*Element)
	codeVal, _ := faultElem.Get("faultcode")
	s, _ := TextOf(codeVal)
	assert.Equal(t, "Server", s)
}

func TestEmitFault12(t *testing.T) {
	f := &Fault{Code: "Sender", Subcode: "InvalidInput", String: "bad request"}
	body := EmitFault(f, Version12)

	val, ok := body.Get("soap:Fault")
	require.True(t, ok)
	faultElem := val.(*Element)
	codeVal, _ := faultElem.Get("Code")
	codeElem := codeVal.(*Element)
	valueVal, _ := codeElem.Get("Value")
	s, _ := TextOf(valueVal)
	assert.Equal(t, "Sender", s)

	subVal, _ := codeElem.Get("Subcode")
	subElem := subVal.(*Element)
	subValueVal, _ := subElem.Get("Value")
	subS, _ := TextOf(subValueVal)
	assert.Equal(t, "InvalidInput", subS)
}

func TestEmitFaultDefaultsCode(t *testing.T) {
	body11 := EmitFault(&Fault{String: "oops"}, Version11)
	val, _ := body11.Get("soap:Fault")
	faultElem := val.(*Element)
	codeVal, _ := faultElem.Get("faultcode")
	s, _ := TextOf(codeVal)
	assert.Equal(t, "Server", s)

	body12 := EmitFault(&Fault{String: "oops"}, Version12)
	val12, _ := body12.Get("soap:Fault")
	faultElem12 := val12.(*Element)
	codeVal12, _ := faultElem12.Get("Code")
	codeElem12 := codeVal12.(*Element)
	valueVal12, _ := codeElem12.Get("Value")
	s12, _ := TextOf(valueVal12)
	assert.Equal(t, "Receiver", s12)
}

func TestFaultError(t *testing.T) {
	f := &Fault{Code: "Client", String: "bad"}
	assert.Contains(t, f.Error(), "Client")
	assert.Contains(t, f.Error(), "bad")

	f2 := &Fault{String: "bad"}
	assert.Equal(t, "bad", f2.Error())
}
