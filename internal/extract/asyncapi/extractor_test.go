package asyncapi

import (
	"errors"
	"testing"

	"github.com/nirholas/specbridge/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventsDoc = `{
  "asyncapi": "2.6.0",
  "info": {"title": "Order Events", "version": "1.0.0"},
  "servers": {
    "production": {"url": "broker.example.com", "protocol": "kafka"}
  },
  "channels": {
    "orders/created": {
      "publish": {
        "operationId": "publishOrderCreated",
        "summary": "Emit an order created event",
        "message": {
          "payload": {
            "type": "object",
            "properties": {
              "order_id": {"type": "string"},
              "total": {"type": "number"}
            },
            "required": ["order_id"]
          }
        }
      },
      "subscribe": {
        "message": {
          "payload": {"type": "string"}
        }
      }
    },
    "inventory/low": {
      "subscribe": {
        "message": {
          "payload": {
            "type": "object",
            "properties": {"sku": {"type": "string"}}
          }
        }
      }
    }
  }
}`

func TestExtractEvents(t *testing.T) {
	result, err := Extract([]byte(eventsDoc))
	require.NoError(t, err)

	assert.Equal(t, ir.FormatAsyncAPI, result.Format)
	assert.Equal(t, "Order Events", result.Info.Title)

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	// Channels are visited in sorted order, publish before subscribe.
	assert.Equal(t, []string{
		"subscribe_inventory_low",
		"publish_order_created",
		"subscribe_orders_created",
	}, names)
}

func TestObjectPayloadBecomesInputSchema(t *testing.T) {
	result, err := Extract([]byte(eventsDoc))
	require.NoError(t, err)

	tool := findTool(t, result, "publish_order_created")
	assert.Equal(t, "Emit an order created event", tool.Description)
	require.Contains(t, tool.InputSchema.Properties, "order_id")
	require.Contains(t, tool.InputSchema.Properties, "total")
	assert.Equal(t, ir.TypeNumber, tool.InputSchema.Properties["total"].Type)
	assert.True(t, tool.InputSchema.IsRequired("order_id"))
	assert.False(t, tool.InputSchema.IsRequired("total"))
}

func TestScalarPayloadNestsUnderMessage(t *testing.T) {
	result, err := Extract([]byte(eventsDoc))
	require.NoError(t, err)

	tool := findTool(t, result, "subscribe_orders_created")
	require.Contains(t, tool.InputSchema.Properties, "message")
	assert.Equal(t, ir.TypeString, tool.InputSchema.Properties["message"].Type)
	assert.True(t, tool.InputSchema.IsRequired("message"))
}

func TestChannelBinding(t *testing.T) {
	result, err := Extract([]byte(eventsDoc))
	require.NoError(t, err)

	tool := findTool(t, result, "subscribe_inventory_low")
	require.NotNil(t, tool.Metadata.Channel)
	assert.Equal(t, "inventory/low", tool.Metadata.Channel.Channel)
	assert.Equal(t, "subscribe", tool.Metadata.Channel.Operation)
	assert.Equal(t, "kafka", tool.Metadata.Channel.Protocol)
}

func TestExtractYAML(t *testing.T) {
	doc := `
asyncapi: "2.6.0"
info:
  title: Ping
channels:
  ping:
    publish:
      message:
        payload:
          type: object
          properties:
            text:
              type: string
`
	result, err := Extract([]byte(doc))
	require.NoError(t, err)
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "publish_ping", result.Tools[0].Name)
	assert.Contains(t, result.Tools[0].InputSchema.Properties, "text")
}

func TestExtractMalformed(t *testing.T) {
	_, err := Extract([]byte(`{"openapi": "3.0.0"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrMalformedSpec))

	_, err = Extract([]byte(`{not json`))
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
