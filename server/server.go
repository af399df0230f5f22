// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package server implements the declarative SOAP service host (spec.md §6
// "Server API" and the HTTP surface in §6): operations are registered by
// name with their input/output shape and a Handler, and ServeHTTP answers
// both the WSDL GET and the SOAP POST surface from that registration,
// following the request routing shape of the teacher's retrieved SOAP
// mock handler (getmockd-mockd's pkg/soap.Handler.ServeHTTP), generalized
// from static mock responses to caller-supplied Handler functions.
package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/hooklift/soapkit/internal/logging"
	"github.com/hooklift/soapkit/soap"
	"github.com/hooklift/soapkit/wsdl"
)

// maxBodySize bounds the SOAP request body read, following the teacher's
// maxSOAPBodySize guard in pkg/soap.Handler.ServeHTTP.
const maxBodySize = 10 << 20

// ParamSpec is one ordered, named, typed input or output parameter of a
// registered Operation.
type ParamSpec struct {
	Name     string
	TypeRef  string
	Required bool
}

// Handler is a registered operation's implementation: it receives the
// parsed input parameters and returns either the output parameters or a
// Fault, per spec.md §6.
type Handler func(params *soap.Element) (*soap.Element, *soap.Fault)

// Operation is one declaratively registered RPC.
type Operation struct {
	Name        string
	Description string
	SOAPAction  string
	Input       []ParamSpec
	Output      []ParamSpec
	Handle      Handler
}

// Options configures a Server.
type Options struct {
	ServiceName     string
	TargetNamespace string
	// Address is the endpoint location published in the generated WSDL's
	// soap:address.
	Address string
	Version soap.Version
	Log     *slog.Logger
}

// Server is an HTTP handler that publishes a WSDL document and dispatches
// SOAP calls to registered Operations.
type Server struct {
	opts Options
	log  *slog.Logger

	mu         sync.RWMutex
	operations map[string]Operation
	order      []string

	wsdlOnce sync.Once
	wsdlBody []byte
	wsdlErr  error
}

// New returns an empty Server; operations are added with Register.
func New(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = logging.New(logging.DefaultConfig())
	}
	return &Server{
		opts:       opts,
		log:        log,
		operations: map[string]Operation{},
	}
}

// Register adds op to the service. Registering the same name twice
// replaces the earlier registration and invalidates the cached WSDL.
func (s *Server) Register(op Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.operations[op.Name]; !exists {
		s.order = append(s.order, op.Name)
	}
	s.operations[op.Name] = op
	s.wsdlOnce = sync.Once{}
	s.wsdlBody = nil
	s.wsdlErr = nil
}

// SoapFault constructs a Fault for a Handler to return, per spec.md §6's
// soap_fault(code, reason) constructor.
func SoapFault(code, reason string) *soap.Fault {
	return &soap.Fault{Code: code, String: reason}
}

// ServeHTTP implements http.Handler: a GET carrying a "wsdl" query
// parameter (case-insensitive, any value) serves the generated WSDL; a
// POST carries a SOAP envelope; any other method is rejected with 405.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for key := range r.URL.Query() {
		if strings.EqualFold(key, "wsdl") {
			s.serveWSDL(w, r)
			return
		}
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	defer r.Body.Close()
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	parsed, err := soap.ParseEnvelope(body)
	if err != nil {
		http.Error(w, "malformed XML: "+err.Error(), http.StatusBadRequest)
		return
	}

	version := soap.Version11
	if parsed.EnvelopeNS == soap.NSEnvelope12 {
		version = soap.Version12
	}

	opName, opBody, ok := soap.FindOperationElement(parsed.Body)
	if !ok {
		s.writeFault(w, &soap.Fault{Code: "Client", String: "no operation element found in Body"}, version)
		return
	}

	s.mu.RLock()
	op, found := s.operations[opName]
	s.mu.RUnlock()
	if !found {
		s.writeFault(w, &soap.Fault{Code: "Client", String: fmt.Sprintf("unknown operation %q", opName)}, version)
		return
	}

	params := opBody
	if params == nil {
		params = soap.NewElement()
	}
	if err := validateRequired(op.Input, params); err != nil {
		s.writeFault(w, &soap.Fault{Code: "Client", String: err.Error()}, version)
		return
	}

	output, fault := s.invoke(op, params)
	if fault != nil {
		s.writeFault(w, fault, version)
		return
	}

	s.writeResult(w, op.Name, output, version)
}

// invoke calls op.Handle, converting a panic into a Server fault so a
// single misbehaving handler cannot take the process down (spec.md §7:
// "the core never panics or aborts on peer misbehavior").
func (s *Server) invoke(op Operation, params *soap.Element) (output *soap.Element, fault *soap.Fault) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("soapkit/server: operation handler panicked", "operation", op.Name, "recovered", r)
			fault = &soap.Fault{Code: "Server", String: fmt.Sprintf("internal error: %v", r)}
		}
	}()
	return op.Handle(params)
}

func validateRequired(specs []ParamSpec, params *soap.Element) error {
	for _, p := range specs {
		if !p.Required {
			continue
		}
		if _, ok := params.Get(p.Name); !ok {
			return fmt.Errorf("required part %q missing", p.Name)
		}
	}
	return nil
}

func (s *Server) writeFault(w http.ResponseWriter, f *soap.Fault, version soap.Version) {
	envelope := wrapEnvelope(soap.EmitFault(f, version), version)
	xmlBytes, err := soap.Serialize(envelope)
	if err != nil {
		http.Error(w, "failed to build fault response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType(version))
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write(xmlBytes)
}

func (s *Server) writeResult(w http.ResponseWriter, opName string, output *soap.Element, version soap.Version) {
	if output == nil {
		output = soap.NewElement()
	}
	body := soap.NewElement()
	body.SetOnce(opName+"Response", output)
	envelope := wrapEnvelope(body, version)
	xmlBytes, err := soap.Serialize(envelope)
	if err != nil {
		s.writeFault(w, &soap.Fault{Code: "Server", String: "failed to build response: " + err.Error()}, version)
		return
	}
	w.Header().Set("Content-Type", contentType(version))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xmlBytes)
}

// wrapEnvelope wraps a ready-built Body content element in a full
// soap:Envelope/soap:Body, the mirror of soap.Build for responses whose
// Body is already assembled (a Fault, or an operation's Response wrapper)
// rather than derived from a parameter tree.
func wrapEnvelope(bodyContent *soap.Element, version soap.Version) *soap.Element {
	ns := soap.NSEnvelope11
	if version == soap.Version12 {
		ns = soap.NSEnvelope12
	}
	envelope := soap.NewElement()
	envelope.SetAttr("xmlns:soap", ns)
	body := soap.NewElement()
	for _, k := range bodyContent.Keys() {
		v, _ := bodyContent.Get(k)
		body.Set(k, v)
	}
	envelope.SetOnce("soap:Body", body)
	root := soap.NewElement()
	root.SetOnce("soap:Envelope", envelope)
	return root
}

func contentType(version soap.Version) string {
	if version == soap.Version12 {
		return "application/soap+xml; charset=utf-8"
	}
	return "text/xml; charset=utf-8"
}

func (s *Server) serveWSDL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := s.wsdl()
	if err != nil {
		http.Error(w, "failed to generate WSDL: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) wsdl() ([]byte, error) {
	s.wsdlOnce.Do(func() {
		s.wsdlBody, s.wsdlErr = wsdl.Generate(s.model(), wsdl.GenerateOptions{
			ServiceAddress: s.opts.Address,
			Version:        wsdlVersion(s.opts.Version),
		})
	})
	return s.wsdlBody, s.wsdlErr
}

func wsdlVersion(v soap.Version) wsdl.SOAPVersion {
	if v == soap.Version12 {
		return wsdl.SOAPVersion12
	}
	return wsdl.SOAPVersion11
}

// model builds a ServiceModel snapshot from the currently registered
// operations, for WSDL generation. It runs when the WSDL is first served
// after a Register (wsdl caches the result until the next Register) and
// freezes the registrations as they stand at that moment; POST dispatch
// in ServeHTTP reads the live registration table instead.
func (s *Server) model() *wsdl.ServiceModel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	operations := make([]wsdl.Operation, 0, len(s.order))
	for _, name := range s.order {
		op := s.operations[name]
		operations = append(operations, wsdl.Operation{
			Name:          op.Name,
			Documentation: op.Description,
			SOAPAction:    op.SOAPAction,
			Style:         wsdl.StyleDocument,
			Input:         toMessage(op.Name+"Request", op.Input),
			Output:        toMessage(op.Name+"Response", op.Output),
		})
	}

	return &wsdl.ServiceModel{
		TargetNamespace: s.opts.TargetNamespace,
		ServiceName:     s.opts.ServiceName,
		Operations:      operations,
	}
}

func toMessage(name string, specs []ParamSpec) wsdl.Message {
	msg := wsdl.Message{Name: name}
	for _, p := range specs {
		msg.Parts = append(msg.Parts, wsdl.MessagePartRef{
			Name:     p.Name,
			TypeRef:  p.TypeRef,
			Required: p.Required,
		})
	}
	return msg
}
