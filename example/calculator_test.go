package example

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooklift/soapkit/client"
	"github.com/hooklift/soapkit/soap"
)

func TestRunAddRoundTrip(t *testing.T) {
	result, err := RunAddRoundTrip(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "15", result)
}

func TestDivideByZeroReturnsFault(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	calcServer := NewCalculatorServer(ts.URL + "/calculator")
	mux.Handle("/calculator", calcServer)

	c, err := client.New(ts.URL+"/calculator?wsdl", client.Options{})
	require.NoError(t, err)

	params := soap.NewElement()
	params.SetOnce("a", "10")
	params.SetOnce("b", "0")

	_, err = c.Call(context.Background(), "Divide", params, client.CallOptions{})
	require.Error(t, err)

	var fault *soap.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "Division by zero", fault.String)
}

func TestGetServiceInfoListsOperations(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	calcServer := NewCalculatorServer(ts.URL + "/calculator")
	mux.Handle("/calculator", calcServer)

	c, err := client.New(ts.URL+"/calculator?wsdl", client.Options{})
	require.NoError(t, err)

	info := c.GetServiceInfo()
	assert.Equal(t, calculatorService, info.ServiceName)
	assert.Equal(t, calculatorNamespace, info.TargetNamespace)

	ops := c.ListOperations()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Name
	}
	assert.Contains(t, names, "Add")
	assert.Contains(t, names, "Divide")
}
