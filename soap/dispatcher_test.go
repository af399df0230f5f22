package soap

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHTTPClient records the last request and replays a canned response,
// grounded on the pack's pattern of faking transports behind small
// interfaces rather than spinning up a real listener for unit tests.
type fakeHTTPClient struct {
	lastReq    *http.Request
	lastBody   []byte
	respStatus int
	respBody   []byte
	respHeader http.Header
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	f.lastReq = req
	if req.Body != nil {
		f.lastBody, _ = io.ReadAll(req.Body)
	}
	header := f.respHeader
	if header == nil {
		header = http.Header{"Content-Type": []string{"text/xml; charset=utf-8"}}
	}
	return &http.Response{
		StatusCode: f.respStatus,
		Body:       io.NopCloser(bytes.NewReader(f.respBody)),
		Header:     header,
	}, nil
}

func TestDispatcherCallSuccess(t *testing.T) {
	fake := &fakeHTTPClient{
		respStatus: 200,
		respBody: []byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
			<soap:Body><tns:AddResponse><result>15</result></tns:AddResponse></soap:Body>
		</soap:Envelope>`),
	}
	d := NewDispatcher("http://example.com/calculator", Version11, &Options{Client: fake})

	params := NewElement()
	params.SetOnce("a", "10")
	params.SetOnce("b", "5")

	result, err := d.Call(context.Background(), CallRequest{
		OperationName: "Add",
		Namespace:     "urn:example:calculator",
		SOAPAction:    "urn:example:calculator/Add",
		Params:        params,
	})
	require.NoError(t, err)

	val, ok := result.Result.Get("result")
	require.True(t, ok)
	s, _ := TextOf(val)
	assert.Equal(t, "15", s)

	assert.Equal(t, `text/xml; charset=utf-8`, fake.lastReq.Header.Get("Content-Type"))
	assert.Equal(t, `"urn:example:calculator/Add"`, fake.lastReq.Header.Get("SOAPAction"))
}

func TestDispatcherCallFault(t *testing.T) {
	fake := &fakeHTTPClient{
		respStatus: 500,
		respBody: []byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
			<soap:Body><soap:Fault><faultcode>Client</faultcode><faultstring>Division by zero</faultstring></soap:Fault></soap:Body>
		</soap:Envelope>`),
	}
	d := NewDispatcher("http://example.com/calculator", Version11, &Options{Client: fake})

	_, err := d.Call(context.Background(), CallRequest{OperationName: "Divide", Params: NewElement()})
	require.Error(t, err)

	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "Client", fault.Code)
	assert.Equal(t, "Division by zero", fault.String)
}

func TestDispatcherCallTransportErrorOnNon2xxWithoutFault(t *testing.T) {
	fake := &fakeHTTPClient{respStatus: 503, respBody: []byte(`not xml at all`)}
	d := NewDispatcher("http://example.com/calculator", Version11, &Options{Client: fake})

	_, err := d.Call(context.Background(), CallRequest{OperationName: "Add", Params: NewElement()})
	require.Error(t, err)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 503, transportErr.Status)
}

func TestDispatcherCallUsesMTOMWhenAttachmentPresent(t *testing.T) {
	fake := &fakeHTTPClient{
		respStatus: 200,
		respBody: []byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
			<soap:Body><tns:UploadResponse><ok>true</ok></tns:UploadResponse></soap:Body>
		</soap:Envelope>`),
	}
	d := NewDispatcher("http://example.com/upload", Version11, &Options{Client: fake})

	params := NewElement()
	params.SetOnce("fileName", "report.pdf")
	params.SetOnce("content", Attachment{ContentType: "application/pdf", Data: []byte("%PDF-1.4")})

	_, err := d.Call(context.Background(), CallRequest{OperationName: "Upload", Params: params})
	require.NoError(t, err)

	ct := fake.lastReq.Header.Get("Content-Type")
	assert.Contains(t, ct, "multipart/related")
	assert.Contains(t, string(fake.lastBody), "%PDF-1.4")
}
