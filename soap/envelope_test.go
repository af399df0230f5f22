package soap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParseRoundTrip11(t *testing.T) {
	params := NewElement()
	params.SetOnce("a", "10")
	params.SetOnce("b", "5")

	out, err := Build("Add", params, BuildOptions{
		Version:   Version11,
		Namespace: "urn:example:calculator",
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), `xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"`)
	assert.Contains(t, string(out), "tns:Add")

	parsed, err := ParseEnvelope(out)
	require.NoError(t, err)
	assert.Equal(t, NSEnvelope11, parsed.EnvelopeNS)

	_, _, ok := FindChild(parsed.Body, "Add")
	require.True(t, ok)
}

func TestBuildParseRoundTrip12(t *testing.T) {
	out, err := Build("Divide", NewElement(), BuildOptions{Version: Version12})
	require.NoError(t, err)

	parsed, err := ParseEnvelope(out)
	require.NoError(t, err)
	assert.Equal(t, NSEnvelope12, parsed.EnvelopeNS)
}

func TestParseEnvelopeAcceptsAnyPrefix(t *testing.T) {
	for _, doc := range []string{
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body><Ping/></soap:Body></soap:Envelope>`,
		`<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/"><SOAP-ENV:Body><Ping/></SOAP-ENV:Body></SOAP-ENV:Envelope>`,
		`<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><Ping/></s:Body></s:Envelope>`,
		`<Envelope xmlns="http://schemas.xmlsoap.org/soap/envelope/"><Body><Ping/></Body></Envelope>`,
	} {
		parsed, err := ParseEnvelope([]byte(doc))
		require.NoError(t, err)
		_, _, ok := FindChild(parsed.Body, "Ping")
		assert.True(t, ok)
	}
}

func TestParseEnvelopeMissingBody(t *testing.T) {
	_, err := ParseEnvelope([]byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"></soap:Envelope>`))
	require.Error(t, err)
}

func TestUnwrapResponseStripsWrapper(t *testing.T) {
	body := NewElement()
	resp := NewElement()
	resp.SetOnce("result", "15")
	body.SetOnce("tns:AddResponse", resp)

	result, fault, err := UnwrapResponse(body, "Add")
	require.NoError(t, err)
	require.Nil(t, fault)
	val, ok := result.Get("result")
	require.True(t, ok)
	s, _ := TextOf(val)
	assert.Equal(t, "15", s)
}

func TestUnwrapResponseDetectsFault(t *testing.T) {
	body := NewElement()
	f := NewElement()
	f.SetOnce("faultcode", "Client")
	f.SetOnce("faultstring", "bad request")
	body.SetOnce("soap:Fault", f)

	result, fault, err := UnwrapResponse(body, "Add")
	require.NoError(t, err)
	require.Nil(t, result)
	require.NotNil(t, fault)
	assert.Equal(t, "Client", fault.Code)
	assert.Equal(t, "bad request", fault.String)
}

func TestBuildWithHeaders(t *testing.T) {
	header := NewElement()
	header.SetOnce("wsse:Security", "x")

	out, err := Build("Ping", NewElement(), BuildOptions{Headers: []Tree{header}})
	require.NoError(t, err)

	parsed, err := ParseEnvelope(out)
	require.NoError(t, err)
	require.NotNil(t, parsed.Header)
	_, _, ok := FindChild(parsed.Header, "Security")
	assert.True(t, ok)
}

func TestBuildRejectsNonElementHeader(t *testing.T) {
	_, err := Build("Ping", NewElement(), BuildOptions{Headers: []Tree{"not-an-element"}})
	require.Error(t, err)
	var buildErr *BuildError
	assert.ErrorAs(t, err, &buildErr)
}
