// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package client implements the fully dynamic, WSDL-driven RPC client
// (spec.md §6 "Client API"): it fetches and analyzes a remote WSDL into a
// wsdl.ServiceModel, then dispatches calls against it without any
// generated code standing between the caller and the wire.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hooklift/soapkit/internal/logging"
	"github.com/hooklift/soapkit/soap"
	"github.com/hooklift/soapkit/wsdl"
)

// Options configures New.
type Options struct {
	// Timeout bounds both the WSDL fetch and every Call's HTTP round trip.
	// Defaults to 30s.
	Timeout time.Duration
	// SOAPVersion overrides the version inferred from the WSDL binding, for
	// documents whose binding namespace is ambiguous or absent. Only
	// soap.Version12 acts as an override: soap.Version11 is the zero value,
	// so it cannot switch a binding declared as SOAP 1.2 back to 1.1.
	SOAPVersion soap.Version
	// Headers are sent as default HTTP headers on every request.
	Headers map[string]string
	// Auth carries transport-level Basic credentials, independent of any
	// WS-Security header a caller adds per-call.
	Auth *soap.BasicAuth
	// HTTPClient overrides the transport; nil builds the Dispatcher default.
	HTTPClient soap.HTTPClient
	// Fetch overrides how the WSDL document itself (and any schemaLocation
	// imports) are retrieved; nil uses wsdl.DefaultFetcher(Timeout).
	Fetch wsdl.Fetcher
	// Log configures the logger that receives Analyzer diagnostics during
	// New. Defaults to logging.DefaultConfig().
	Log *logging.Config
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return 30 * time.Second
}

// Client is a WSDL-driven SOAP RPC client bound to one analyzed service.
// It holds an immutable wsdl.ServiceModel built once in New; Call may be
// invoked concurrently (spec.md §5).
type Client struct {
	model *wsdl.ServiceModel
	opts  Options
}

// New fetches wsdlURL, analyzes it into a ServiceModel, and returns a
// Client for that service. Each Call picks its endpoint per operation
// (see resolveEndpoint).
func New(wsdlURL string, opts Options) (*Client, error) {
	fetch := opts.Fetch
	if fetch == nil {
		fetch = wsdl.DefaultFetcher(opts.timeout())
	}
	wsdlBytes, err := fetch(wsdlURL)
	if err != nil {
		return nil, fmt.Errorf("soapkit/client: fetching wsdl: %w", err)
	}

	var logCfg logging.Config
	if opts.Log != nil {
		logCfg = *opts.Log
	} else {
		logCfg = logging.DefaultConfig()
	}

	model, err := wsdl.Analyze(wsdlBytes, wsdlURL, wsdl.AnalyzeOptions{
		Fetch: fetch,
		Log:   logging.New(logCfg),
	})
	if err != nil {
		return nil, err
	}

	return &Client{model: model, opts: opts}, nil
}

// ServiceModel exposes the underlying analyzed model, e.g. for callers
// that want to pass it to wsdl.Generate themselves.
func (c *Client) ServiceModel() *wsdl.ServiceModel {
	return c.model
}

// OperationSummary is one entry of ListOperations.
type OperationSummary struct {
	Name          string
	Documentation string
	Input         wsdl.Message
	Output        wsdl.Message
	SOAPAction    string
}

// ListOperations returns every operation the ServiceModel declares, in
// WSDL document order.
func (c *Client) ListOperations() []OperationSummary {
	out := make([]OperationSummary, 0, len(c.model.Operations))
	for _, op := range c.model.Operations {
		out = append(out, OperationSummary{
			Name:          op.Name,
			Documentation: op.Documentation,
			Input:         op.Input,
			Output:        op.Output,
			SOAPAction:    op.SOAPAction,
		})
	}
	return out
}

// GetOperationInfo looks up a single operation by exact name.
func (c *Client) GetOperationInfo(name string) (wsdl.Operation, error) {
	op, ok := c.model.OperationByName(name)
	if !ok {
		return wsdl.Operation{}, &soap.OperationNotFound{Name: name}
	}
	return op, nil
}

// ServiceInfo is the result of GetServiceInfo.
type ServiceInfo struct {
	ServiceName     string
	TargetNamespace string
	Endpoints       []wsdl.Endpoint
	Operations      []wsdl.Operation
}

// GetServiceInfo summarizes the whole analyzed service.
func (c *Client) GetServiceInfo() ServiceInfo {
	return ServiceInfo{
		ServiceName:     c.model.ServiceName,
		TargetNamespace: c.model.TargetNamespace,
		Endpoints:       c.model.Endpoints,
		Operations:      c.model.Operations,
	}
}

// CallOptions configures a single Call, overriding Options where set.
type CallOptions struct {
	SOAPVersion soap.Version
	// Headers are header trees inserted into soap:Header for this call
	// only (e.g. a WS-Security token built with soap.UsernameToken).
	Headers []soap.Tree
	Timeout time.Duration
}

// Call dispatches operation name with params against the ServiceModel's
// first endpoint matching the operation's binding, following spec.md §4.6.
// params is the operation's input as a *soap.Element (see soap.NewElement);
// the returned *soap.Element is the unwrapped output, never a surrounding
// envelope/body/response wrapper. A SOAP Fault returned by the peer comes
// back as *soap.Fault, distinguishable via errors.As.
func (c *Client) Call(ctx context.Context, name string, params soap.Tree, opts CallOptions) (*soap.Element, error) {
	op, ok := c.model.OperationByName(name)
	if !ok {
		return nil, &soap.OperationNotFound{Name: name}
	}

	if err := validateParams(op, params); err != nil {
		return nil, err
	}

	endpoint, version := c.resolveEndpoint(op, opts)

	dispatcherOpts := soap.DefaultOptions()
	if c.opts.HTTPClient != nil {
		dispatcherOpts.Client = c.opts.HTTPClient
	}
	if c.opts.Auth != nil {
		dispatcherOpts.BasicAuth = c.opts.Auth
	}
	if len(c.opts.Headers) > 0 {
		dispatcherOpts.HTTPHeaders = c.opts.Headers
	}
	timeout := c.opts.timeout()
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	dispatcherOpts.Timeout = timeout

	dispatcher := soap.NewDispatcher(endpoint, version, &dispatcherOpts)

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := dispatcher.Call(callCtx, soap.CallRequest{
		OperationName: name,
		Namespace:     c.model.TargetNamespace,
		SOAPAction:    op.SOAPAction,
		Params:        params,
		Headers:       opts.Headers,
	})
	if err != nil {
		return nil, err
	}
	return result.Result, nil
}

// resolveEndpoint picks the endpoint address and SOAP version for op: the
// binding it belongs to if one matches, else the model's first endpoint.
// If either opts.SOAPVersion or c.opts.SOAPVersion is soap.Version12 the
// call uses SOAP 1.2; neither can switch a 1.2 binding back to 1.1.
func (c *Client) resolveEndpoint(op wsdl.Operation, opts CallOptions) (address string, version soap.Version) {
	var ep wsdl.Endpoint
	found := false
	for _, e := range c.model.Endpoints {
		if e.BindingRef == op.BindingRef {
			ep = e
			found = true
			break
		}
	}
	if !found && len(c.model.Endpoints) > 0 {
		ep = c.model.Endpoints[0]
	}

	version = soap.Version11
	if ep.SOAPVersion == wsdl.SOAPVersion12 {
		version = soap.Version12
	}
	if c.opts.SOAPVersion == soap.Version12 {
		version = soap.Version12
	}
	if opts.SOAPVersion == soap.Version12 {
		version = soap.Version12
	}
	return ep.Address, version
}

// validateParams checks every required input part is present in params,
// per spec.md §4.6 step 2. Type checking is permissive: any present value
// is accepted, since lexical coercion happens at envelope-build time.
func validateParams(op wsdl.Operation, params soap.Tree) error {
	elem, ok := params.(*soap.Element)
	if !ok {
		if len(op.Input.Parts) == 0 {
			return nil
		}
		return &soap.ValidationError{Part: op.Input.Parts[0].Name, Reason: "params must be a tree/mapping"}
	}
	for _, part := range op.Input.Parts {
		if !part.Required {
			continue
		}
		if _, ok := elem.Get(part.Name); !ok {
			return &soap.ValidationError{Part: part.Name, Reason: "required part missing"}
		}
	}
	return nil
}

// GenerateServiceReport renders a human-readable summary of the analyzed
// service: its name, namespace, endpoints, and every operation with its
// input/output parts.
func (c *Client) GenerateServiceReport() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Service: %s\n", c.model.ServiceName)
	fmt.Fprintf(&b, "Namespace: %s\n", c.model.TargetNamespace)
	fmt.Fprintf(&b, "Endpoints:\n")
	for _, ep := range c.model.Endpoints {
		fmt.Fprintf(&b, "  - %s (%s)\n", ep.Address, versionLabel(ep.SOAPVersion))
	}
	fmt.Fprintf(&b, "Operations (%d):\n", len(c.model.Operations))
	for _, op := range c.model.Operations {
		fmt.Fprintf(&b, "  - %s\n", op.Name)
		if op.Documentation != "" {
			fmt.Fprintf(&b, "      %s\n", op.Documentation)
		}
		fmt.Fprintf(&b, "      soapAction: %s\n", op.SOAPAction)
		fmt.Fprintf(&b, "      input:  %s\n", partsSummary(op.Input))
		if len(op.Output.Parts) > 0 {
			fmt.Fprintf(&b, "      output: %s\n", partsSummary(op.Output))
		}
	}
	return b.String()
}

func partsSummary(msg wsdl.Message) string {
	if len(msg.Parts) == 0 {
		return "(none)"
	}
	names := make([]string, len(msg.Parts))
	for i, p := range msg.Parts {
		names[i] = p.Name + ":" + p.TypeRef
	}
	return strings.Join(names, ", ")
}

func versionLabel(v wsdl.SOAPVersion) string {
	switch v {
	case wsdl.SOAPVersion12:
		return "SOAP 1.2"
	case wsdl.SOAPVersion11:
		return "SOAP 1.1"
	default:
		return "unknown"
	}
}
