package insomnia

import (
	"errors"
	"testing"

	"github.com/nirholas/specbridge/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const export = `{
  "_type": "export",
  "__export_format": 4,
  "resources": [
    {"_id": "wrk_1", "_type": "workspace", "name": "Billing API"},
    {
      "_id": "env_1",
      "_type": "environment",
      "data": {"base_url": "https://billing.example.com"}
    },
    {"_id": "fld_1", "_type": "request_group", "parentId": "wrk_1", "name": "Invoices"},
    {
      "_id": "req_1",
      "_type": "request",
      "parentId": "fld_1",
      "name": "List Invoices",
      "method": "GET",
      "url": "{{ _.base_url }}/invoices",
      "parameters": [{"name": "status", "value": "open"}]
    },
    {
      "_id": "req_2",
      "_type": "request",
      "parentId": "fld_1",
      "name": "Get Invoice",
      "method": "GET",
      "url": "{{ _.base_url }}/invoices/:invoiceId",
      "authentication": {"type": "bearer", "token": "{{ _.token }}"}
    },
    {
      "_id": "req_3",
      "_type": "request",
      "parentId": "wrk_1",
      "name": "Create Invoice",
      "method": "POST",
      "url": "{{ _.base_url }}/invoices",
      "body": {
        "mimeType": "application/json",
        "text": "{\"customer_id\": \"c-1\", \"amount\": 12.5}"
      }
    }
  ]
}`

func TestExtractExport(t *testing.T) {
	result, err := Extract([]byte(export))
	require.NoError(t, err)

	assert.Equal(t, ir.FormatInsomnia, result.Format)
	assert.Equal(t, "Billing API", result.Info.Title)

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	// Requests are ordered by resource id.
	assert.Equal(t, []string{
		"invoices_list_invoices",
		"invoices_get_invoice",
		"create_invoice",
	}, names)
}

func TestEnvironmentSubstitution(t *testing.T) {
	result, err := Extract([]byte(export))
	require.NoError(t, err)

	tool := findTool(t, result, "invoices_list_invoices")
	require.NotNil(t, tool.Metadata.HTTP)
	assert.Equal(t, "https://billing.example.com", tool.Metadata.HTTP.BaseURL)
	assert.Equal(t, "/invoices", tool.Metadata.HTTP.Path)
	assert.Equal(t, "Invoices", tool.Metadata.Folder)

	require.Contains(t, tool.InputSchema.Properties, "status")
	assert.Equal(t, "open", tool.InputSchema.Properties["status"].Example)
}

func TestPathParamAndAuth(t *testing.T) {
	result, err := Extract([]byte(export))
	require.NoError(t, err)

	tool := findTool(t, result, "invoices_get_invoice")
	assert.Equal(t, "/invoices/{invoiceId}", tool.Metadata.HTTP.Path)
	require.Contains(t, tool.InputSchema.Properties, "invoiceId")
	assert.True(t, tool.InputSchema.IsRequired("invoiceId"))

	require.NotNil(t, tool.Metadata.Auth)
	assert.Equal(t, ir.AuthBearer, tool.Metadata.Auth.Type)
}

func TestJSONBodyFlattened(t *testing.T) {
	result, err := Extract([]byte(export))
	require.NoError(t, err)

	tool := findTool(t, result, "create_invoice")
	require.Contains(t, tool.InputSchema.Properties, "customer_id")
	require.Contains(t, tool.InputSchema.Properties, "amount")
	assert.Equal(t, ir.TypeString, tool.InputSchema.Properties["customer_id"].Type)
	assert.Equal(t, ir.TypeNumber, tool.InputSchema.Properties["amount"].Type)
}

func TestExtractMalformed(t *testing.T) {
	_, err := Extract([]byte(`{"_type": "workspace"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrMalformedSpec))

	_, err = Extract([]byte(`not json`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrMalformedSpec))
}

func findTool(t *testing.T, result *ir.UnifiedParseResult, name string) ir.ToolDefinition {
	t.Helper()
	for _, tool := range result.Tools {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not found", name)
	return ir.ToolDefinition{}
}
