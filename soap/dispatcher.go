package soap

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// HTTPClient is anything that can perform an HTTP round trip; net/http.Client
// satisfies it, and tests supply a fake.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// BasicAuth carries HTTP Basic credentials for the transport, independent
// of any WS-Security UsernameToken carried in the envelope itself.
type BasicAuth struct {
	Login    string
	Password string
}

// Options configures a Dispatcher's transport and envelope defaults.
type Options struct {
	TLSConfig           *tls.Config
	BasicAuth           *BasicAuth
	Timeout             time.Duration
	ConnectionTimeout   time.Duration
	TLSHandshakeTimeout time.Duration
	Client              HTTPClient
	HTTPHeaders         map[string]string
	UserAgent           string
	Debug               bool
}

var defaultOptions = Options{
	Timeout:             30 * time.Second,
	ConnectionTimeout:   90 * time.Second,
	TLSHandshakeTimeout: 15 * time.Second,
	UserAgent:           "soapkit/0.1",
}

// DefaultOptions returns the Dispatcher default transport configuration.
func DefaultOptions() Options {
	return defaultOptions
}

func (o *Options) buildHTTPClient() (*http.Client, error) {
	tr := &http.Transport{
		TLSClientConfig: o.TLSConfig,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: o.Timeout}
			return d.DialContext(ctx, network, addr)
		},
		TLSHandshakeTimeout: o.TLSHandshakeTimeout,
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &http.Client{Timeout: o.ConnectionTimeout, Transport: tr, Jar: jar}, nil
}

func (o *Options) getOrBuildHTTPClient() (HTTPClient, error) {
	if o.Client == nil {
		c, err := o.buildHTTPClient()
		if err != nil {
			return nil, err
		}
		o.Client = c
	}
	return o.Client, nil
}

// Dispatcher drives a single RPC operation call end to end against one
// endpoint address: building the envelope (plain or MTOM), issuing the
// HTTP POST with version-appropriate transport headers, and unwrapping the
// response, per spec.md §4.6.
type Dispatcher struct {
	Endpoint string
	Version  Version
	opts     *Options
}

// NewDispatcher returns a Dispatcher posting to endpoint. A nil opts uses
// DefaultOptions().
func NewDispatcher(endpoint string, version Version, opts *Options) *Dispatcher {
	if opts == nil {
		defOpts := DefaultOptions()
		opts = &defOpts
	}
	return &Dispatcher{Endpoint: endpoint, Version: version, opts: opts}
}

// CallRequest is the input to a single Call.
type CallRequest struct {
	OperationName string
	Namespace     string
	SOAPAction    string
	Params        Tree
	Headers       []Tree
}

// CallResult is the successful output of a Call.
type CallResult struct {
	Result      *Element
	Attachments []Attachment
}

// Call implements the Operation Dispatcher algorithm: it scans Params for
// Attachment leaves to decide between a plain envelope and an MTOM
// multipart message, builds version-specific transport headers, POSTs to
// the endpoint, and on a 500 response speculatively parses the body as a
// SOAP Fault before falling back to a plain TransportError. A successful
// response is unwrapped via UnwrapResponse; a Fault found there is
// returned as the call's error, never merged into Result.
func (d *Dispatcher) Call(ctx context.Context, req CallRequest) (*CallResult, error) {
	host := newAttachmentHost()
	params, attachments := scanAttachments(req.Params, host)

	envelopeXML, err := Build(req.OperationName, params, BuildOptions{
		Version:    d.Version,
		Namespace:  req.Namespace,
		Headers:    req.Headers,
		SOAPAction: req.SOAPAction,
	})
	if err != nil {
		return nil, &CallError{Reason: "building envelope", Err: err}
	}

	var body []byte
	var contentType string
	if len(attachments) > 0 {
		ct, mtomBody, err := BuildMTOM(envelopeXML, attachments)
		if err != nil {
			return nil, &CallError{Reason: "building MTOM message", Err: err}
		}
		contentType, body = ct, mtomBody
	} else {
		contentType, body = d.plainContentType(), envelopeXML
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &CallError{Reason: "building HTTP request", Err: err}
	}
	d.setTransportHeaders(httpReq, contentType, req.SOAPAction)

	client, err := d.opts.getOrBuildHTTPClient()
	if err != nil {
		return nil, &CallError{Reason: "building HTTP client", Err: err}
	}

	if d.opts.Debug {
		fmt.Printf("soapkit: request %s %s\nheaders: %v\nbody: %s\n", httpReq.Method, httpReq.URL, httpReq.Header, body)
	}

	res, err := client.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if ctx.Err() == context.DeadlineExceeded || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, &CallError{Reason: "timeout", Err: err}
		}
		return nil, &TransportError{Err: err}
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if d.opts.Debug {
		fmt.Printf("soapkit: response status=%d\nheaders: %v\nbody: %s\n", res.StatusCode, res.Header, respBody)
	}

	respContentType := res.Header.Get("Content-Type")
	rootXML, respAttachments, err := unwrapTransportBody(respContentType, respBody)
	if err != nil {
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return nil, &TransportError{Status: res.StatusCode, Err: err}
		}
		return nil, &CallError{Reason: "parsing response body", Err: err}
	}

	parsed, parseErr := ParseEnvelope(rootXML)
	if parseErr != nil {
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return nil, &TransportError{Status: res.StatusCode, Err: parseErr}
		}
		return nil, &CallError{Reason: "parsing response envelope", Err: parseErr}
	}

	result, fault, err := UnwrapResponse(parsed.Body, req.OperationName)
	if err != nil {
		return nil, &CallError{Reason: "unwrapping response", Err: err}
	}
	if fault != nil {
		return nil, fault
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &TransportError{Status: res.StatusCode}
	}

	return &CallResult{Result: result, Attachments: respAttachments}, nil
}

func (d *Dispatcher) plainContentType() string {
	if d.Version == Version12 {
		return `application/soap+xml; charset=utf-8`
	}
	return `text/xml; charset=utf-8`
}

func (d *Dispatcher) setTransportHeaders(req *http.Request, contentType, soapAction string) {
	if d.Version == Version12 && soapAction != "" {
		contentType = fmt.Sprintf(`%s; action="%s"`, contentType, soapAction)
	}
	req.Header.Set("Content-Type", contentType)
	if d.Version == Version11 {
		req.Header.Set("SOAPAction", fmt.Sprintf("%q", soapAction))
	}
	req.Header.Set("User-Agent", d.opts.UserAgent)
	if d.opts.BasicAuth != nil {
		req.SetBasicAuth(d.opts.BasicAuth.Login, d.opts.BasicAuth.Password)
	}
	for k, v := range d.opts.HTTPHeaders {
		req.Header.Set(k, v)
	}
}

// unwrapTransportBody extracts the root XML document and any attachments
// from an HTTP response body, transparently handling both a plain XML
// response and an MTOM multipart/related response.
func unwrapTransportBody(contentType string, body []byte) ([]byte, []Attachment, error) {
	if err := ValidateContentType(contentType); err != nil {
		return body, nil, nil
	}
	root, parts, err := ParseMultipart(contentType, body)
	if err != nil {
		return nil, nil, err
	}
	attachments := make([]Attachment, 0, len(parts))
	for _, p := range parts {
		attachments = append(attachments, Attachment{
			ContentID:               trimAngleBrackets(p.Headers["content-id"]),
			ContentType:             p.Headers["content-type"],
			ContentTransferEncoding: p.Headers["content-transfer-encoding"],
			Data:                    p.Content,
		})
	}
	return root, attachments, nil
}

func trimAngleBrackets(s string) string {
	if len(s) >= 2 && s[0] == '<' && s[len(s)-1] == '>' {
		return s[1 : len(s)-1]
	}
	return s
}
