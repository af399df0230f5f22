// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package example wires a declarative Add(a, b) -> result calculator
// service (server package) to the dynamic client (client package) against
// an in-process httptest server, demonstrating the round trip described
// as the Calculator Add scenario in spec.md §8.
package example

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/hooklift/soapkit/client"
	"github.com/hooklift/soapkit/server"
	"github.com/hooklift/soapkit/soap"
)

const (
	calculatorNamespace = "urn:example:calculator"
	calculatorService   = "CalculatorService"
)

// NewCalculatorServer builds a Server exposing the Add and Divide
// operations. A request missing "a" or "b" never reaches a handler: server.ServeHTTP
// rejects it as a validation Fault beforehand.
func NewCalculatorServer(address string) *server.Server {
	s := server.New(server.Options{
		ServiceName:     calculatorService,
		TargetNamespace: calculatorNamespace,
		Address:         address,
		Version:         soap.Version11,
	})

	s.Register(server.Operation{
		Name:        "Add",
		Description: "Adds two decimal numbers and returns their sum.",
		SOAPAction:  calculatorNamespace + "/Add",
		Input: []server.ParamSpec{
			{Name: "a", TypeRef: "decimal", Required: true},
			{Name: "b", TypeRef: "decimal", Required: true},
		},
		Output: []server.ParamSpec{
			{Name: "result", TypeRef: "decimal", Required: true},
		},
		Handle: addHandler,
	})

	s.Register(server.Operation{
		Name:        "Divide",
		Description: "Divides a by b, returning a Fault on division by zero.",
		SOAPAction:  calculatorNamespace + "/Divide",
		Input: []server.ParamSpec{
			{Name: "a", TypeRef: "decimal", Required: true},
			{Name: "b", TypeRef: "decimal", Required: true},
		},
		Output: []server.ParamSpec{
			{Name: "result", TypeRef: "decimal", Required: true},
		},
		Handle: divideHandler,
	})

	return s
}

func addHandler(params *soap.Element) (*soap.Element, *soap.Fault) {
	a, b, fault := parseOperands(params)
	if fault != nil {
		return nil, fault
	}
	out := soap.NewElement()
	out.SetOnce("result", formatDecimal(a+b))
	return out, nil
}

func divideHandler(params *soap.Element) (*soap.Element, *soap.Fault) {
	a, b, fault := parseOperands(params)
	if fault != nil {
		return nil, fault
	}
	if b == 0 {
		return nil, server.SoapFault("Client", "Division by zero")
	}
	out := soap.NewElement()
	out.SetOnce("result", formatDecimal(a/b))
	return out, nil
}

func parseOperands(params *soap.Element) (a, b float64, fault *soap.Fault) {
	aVal, _ := params.Get("a")
	bVal, _ := params.Get("b")
	aStr, _ := soap.TextOf(aVal)
	bStr, _ := soap.TextOf(bVal)
	a, err := strconv.ParseFloat(aStr, 64)
	if err != nil {
		return 0, 0, server.SoapFault("Client", "invalid value for part \"a\"")
	}
	b, err = strconv.ParseFloat(bStr, 64)
	if err != nil {
		return 0, 0, server.SoapFault("Client", "invalid value for part \"b\"")
	}
	return a, b, nil
}

// formatDecimal renders a float64 in the canonical XSD decimal lexical
// form: no trailing zeros, no exponent, per spec.md §4.6 step 2.
func formatDecimal(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// RunAddRoundTrip starts an in-process calculator server, fetches its own
// generated WSDL, dispatches an Add(10, 5) call through the dynamic
// client, and returns the result tree's "result" part as a string
// ("15" per spec.md §8 scenario 1).
func RunAddRoundTrip(ctx context.Context) (string, error) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	calcServer := NewCalculatorServer(ts.URL + "/calculator")
	mux.Handle("/calculator", calcServer)

	c, err := client.New(ts.URL+"/calculator?wsdl", client.Options{})
	if err != nil {
		return "", fmt.Errorf("example: building client: %w", err)
	}

	params := soap.NewElement()
	params.SetOnce("a", "10")
	params.SetOnce("b", "5")

	result, err := c.Call(ctx, "Add", params, client.CallOptions{})
	if err != nil {
		return "", fmt.Errorf("example: calling Add: %w", err)
	}

	resultVal, _ := result.Get("result")
	resultStr, _ := soap.TextOf(resultVal)
	return resultStr, nil
}
