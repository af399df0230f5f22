package wsdl

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxImportDepth bounds transitive xsd:import/xsd:include resolution,
// following the teacher's resolveXSDExternals maxRecursion constant
// (gowsdl.go). Exceeding it does not fail the analysis: unresolved
// external schemas simply leave their referenced types unindexed, and
// the resolver degrades those references to "string" (spec.md §9).
const maxImportDepth = 20

// Fetcher retrieves the bytes at a URL, used to follow schemaLocation
// references during analysis. *http.Client satisfies it via its Get
// method's shape once adapted by DefaultFetcher.
type Fetcher func(url string) ([]byte, error)

// DefaultFetcher fetches over HTTP with the given timeout, grounded in the
// teacher's downloadFile (gowsdl.go).
func DefaultFetcher(timeout time.Duration) Fetcher {
	client := &http.Client{Timeout: timeout}
	return func(rawURL string) ([]byte, error) {
		resp, err := client.Get(rawURL)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("wsdl: fetch %s: unexpected status %d", rawURL, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
}

// AnalyzeOptions configures Analyze.
type AnalyzeOptions struct {
	// Fetch resolves schemaLocation references found during import/include
	// resolution. Defaults to DefaultFetcher(30 * time.Second).
	Fetch Fetcher
	Log   *slog.Logger
}

func (o AnalyzeOptions) fetcher() Fetcher {
	if o.Fetch != nil {
		return o.Fetch
	}
	return DefaultFetcher(30 * time.Second)
}

func (o AnalyzeOptions) logger() *slog.Logger {
	if o.Log != nil {
		return o.Log
	}
	return slog.Default()
}

// Analyze parses a WSDL 1.1 document plus its inline and imported XSD
// schemas into an immutable ServiceModel (spec.md §4.5). baseURL anchors
// relative schemaLocation and soap:address resolution.
func Analyze(wsdlBytes []byte, baseURL string, opts AnalyzeOptions) (*ServiceModel, error) {
	var defs Definitions
	if err := xml.Unmarshal(wsdlBytes, &defs); err != nil {
		return nil, &AnalysisError{Kind: AnalysisMalformedXML, Detail: err.Error()}
	}
	if defs.XMLName.Local != "definitions" {
		return nil, &AnalysisError{Kind: AnalysisMissingDefinitions, Detail: "root element is not wsdl:definitions"}
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &AnalysisError{Kind: AnalysisFetchFailed, Detail: "invalid base_url: " + err.Error()}
	}

	schemas := append([]*XSDSchema{}, defs.Types.Schemas...)
	visited := map[string]bool{}
	log := opts.logger()
	for _, schema := range defs.Types.Schemas {
		resolveExternals(schema, base, opts.fetcher(), visited, 0, &schemas, log)
	}

	res := newResolver(schemas, defs.TargetNamespace, defs.Xmlns)

	model := &ServiceModel{
		TargetNamespace: defs.TargetNamespace,
		ServiceName:     defs.Name,
		Types:           res.types,
	}

	messagesByName := indexMessages(defs.Messages)

	operations, err := buildOperations(&defs, messagesByName, res)
	if err != nil {
		return nil, err
	}
	model.Operations = operations

	model.Endpoints = buildEndpoints(&defs, base)

	return model, nil
}

// resolveExternals walks schema's xsd:import/xsd:include, fetching and
// unmarshaling each external schemaLocation and appending it to *schemas.
// It bounds recursion at maxImportDepth and tracks visited URLs to break
// import cycles, degrading unresolved references rather than failing the
// whole analysis — the Analyzer's documented answer to the open question
// on WSDL import resolution (spec.md §9).
func resolveExternals(schema *XSDSchema, base *url.URL, fetch Fetcher, visited map[string]bool, depth int, schemas *[]*XSDSchema, log *slog.Logger) {
	if depth >= maxImportDepth {
		log.Warn("wsdl: import depth limit reached, leaving remaining references unresolved")
		return
	}

	resolve := func(schemaLocation string) {
		if schemaLocation == "" {
			return
		}
		ref, err := base.Parse(schemaLocation)
		if err != nil {
			log.Warn("wsdl: cannot resolve schemaLocation", "location", schemaLocation, "error", err)
			return
		}
		key := ref.String()
		if visited[key] {
			return
		}
		visited[key] = true

		data, err := fetch(key)
		if err != nil {
			log.Warn("wsdl: failed to fetch external schema, degrading referencing types to string", "location", key, "error", err)
			return
		}
		var external XSDSchema
		if err := xml.Unmarshal(data, &external); err != nil {
			log.Warn("wsdl: external schema is malformed", "location", key, "error", err)
			return
		}
		*schemas = append(*schemas, &external)
		if len(external.Imports) > 0 || len(external.Includes) > 0 {
			resolveExternals(&external, ref, fetch, visited, depth+1, schemas, log)
		}
	}

	for _, imp := range schema.Imports {
		resolve(imp.SchemaLocation)
	}
	for _, inc := range schema.Includes {
		resolve(inc.SchemaLocation)
	}
}

func indexMessages(messages []WSDLMessage) map[string]WSDLMessage {
	out := make(map[string]WSDLMessage, len(messages))
	for _, m := range messages {
		out[m.Name] = m
	}
	return out
}

// buildOperations walks every binding, joining it to its portType by
// "type" reference to resolve style and per-operation SOAPAction (the SOAP
// version is resolved per endpoint in buildEndpoints), following the teacher's findSOAPAction/findServiceAddress
// pattern (gowsdl.go) generalized from code generation to model
// construction.
func buildOperations(defs *Definitions, messagesByName map[string]WSDLMessage, res *resolver) ([]Operation, error) {
	portTypesByName := make(map[string]PortType, len(defs.PortTypes))
	for _, pt := range defs.PortTypes {
		portTypesByName[pt.Name] = pt
	}
	if len(defs.PortTypes) == 0 {
		return nil, &AnalysisError{Kind: AnalysisMissingPortType, Detail: "no wsdl:portType declared"}
	}
	if len(defs.Bindings) == 0 {
		return nil, &AnalysisError{Kind: AnalysisMissingBinding, Detail: "no wsdl:binding declared"}
	}

	var operations []Operation
	for _, binding := range defs.Bindings {
		portTypeName := localName(binding.Type)
		portType, ok := portTypesByName[portTypeName]
		if !ok {
			continue
		}
		style := bindingStyle(binding)

		actionsByOp := map[string]string{}
		for _, bop := range binding.Operations {
			actionsByOp[bop.Name] = bop.SOAPOperation.SOAPAction
		}

		for _, op := range portType.Operations {
			built := Operation{
				Name:          op.Name,
				Documentation: strings.TrimSpace(op.Documentation),
				SOAPAction:    actionsByOp[op.Name],
				Style:         style,
				BindingRef:    binding.Name,
			}
			if op.Input != nil {
				msg, err := resolveMessage(op.Input.Message, messagesByName, res)
				if err != nil {
					return nil, err
				}
				built.Input = msg
			}
			if op.Output != nil {
				msg, err := resolveMessage(op.Output.Message, messagesByName, res)
				if err != nil {
					return nil, err
				}
				built.Output = msg
			}
			for _, f := range op.Faults {
				msg, err := resolveMessage(f.Message, messagesByName, res)
				if err != nil {
					return nil, err
				}
				built.Faults = append(built.Faults, msg)
			}
			operations = append(operations, built)
		}
	}
	return operations, nil
}

func resolveMessage(ref string, byName map[string]WSDLMessage, res *resolver) (Message, error) {
	name := localName(ref)
	wmsg, ok := byName[name]
	if !ok {
		return Message{}, &AnalysisError{Kind: AnalysisUnresolvedMessage, Detail: fmt.Sprintf("message %q not declared", name)}
	}
	msg := Message{Name: wmsg.Name}
	for _, part := range wmsg.Parts {
		if part.Element != "" {
			// Document/literal wrapped style (spec.md §4.5/§4.8): the
			// wsdl:part itself is a single wrapper element ("parameters");
			// the caller-visible parts are that element's fields, so
			// resolving the wrapper and projecting its fields is what
			// turns the wire-level wrapper into the flat {name -> type_ref}
			// Message the rest of the toolkit (and callers) operate on.
			wrapper := res.resolveRef(nil, part.Element)
			if wrapper.Kind == XsdComplex {
				for _, f := range wrapper.Complex {
					msg.Parts = append(msg.Parts, MessagePartRef{
						Name:     f.Name,
						TypeRef:  f.TypeRef,
						Required: f.MinOccurs > 0,
					})
				}
				continue
			}
		}
		typeRef := part.Type
		res.resolveRef(nil, typeRef)
		msg.Parts = append(msg.Parts, MessagePartRef{
			Name:     part.Name,
			TypeRef:  typeRef,
			Required: true,
		})
	}
	return msg, nil
}

// bindingVersion infers the SOAP version from the binding namespace
// (wsdl/soap/ vs wsdl/soap12/), per spec.md §4.5 step 5.
func bindingVersion(b Binding) SOAPVersion {
	if b.SOAPBinding == nil {
		return SOAPVersionUnknown
	}
	if b.SOAPBinding.IsVersion12() {
		return SOAPVersion12
	}
	return SOAPVersion11
}

func bindingStyle(b Binding) Style {
	if b.SOAPBinding != nil && strings.EqualFold(b.SOAPBinding.Style, "rpc") {
		return StyleRPC
	}
	return StyleDocument
}

func buildEndpoints(defs *Definitions, base *url.URL) []Endpoint {
	bindingTransport := map[string]string{}
	bindingVersionByName := map[string]SOAPVersion{}
	for _, b := range defs.Bindings {
		if b.SOAPBinding != nil {
			bindingTransport[b.Name] = b.SOAPBinding.Transport
		}
		bindingVersionByName[b.Name] = bindingVersion(b)
	}

	var endpoints []Endpoint
	for _, svc := range defs.Services {
		for _, port := range svc.Ports {
			bindingName := localName(port.Binding)
			address := port.SOAPAddress.Location
			if resolved, err := base.Parse(address); err == nil {
				address = resolved.String()
			}
			endpoints = append(endpoints, Endpoint{
				Address:     address,
				BindingRef:  bindingName,
				Transport:   bindingTransport[bindingName],
				SOAPVersion: bindingVersionByName[bindingName],
			})
		}
	}
	return endpoints
}

func localName(qname string) string {
	parts := strings.SplitN(qname, ":", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return parts[0]
}
