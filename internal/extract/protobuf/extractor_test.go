package protobuf

import (
	"errors"
	"testing"

	"github.com/nirholas/specbridge/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopProto = `
syntax = "proto3";

package shop.v1;

import "google/api/annotations.proto";
import "google/protobuf/timestamp.proto";

option go_package = "example.com/shop/v1;shopv1";

enum Status {
  STATUS_UNSPECIFIED = 0;
  ACTIVE = 1;
  ARCHIVED = 2;
}

message Empty {}

message Item {
  string id = 1;
  string name = 2;
  double price = 3;
  Status status = 4;
  repeated string tags = 5;
  map<string, string> labels = 6;
  google.protobuf.Timestamp created_at = 7;
  Nested nested = 8;

  message Nested {
    int32 depth = 1;
  }
}

message GetItemRequest {
  string item_id = 1;
}

message Tree {
  string label = 1;
  repeated Tree children = 2;
}

service ItemService {
  rpc GetItem(GetItemRequest) returns (Item) {
    option (google.api.http) = {
      get: "/v1/items/{item_id}"
    };
  }
  rpc ListItems(Empty) returns (stream Item);
  rpc UploadItems(stream Item) returns (Empty);
}
`

func TestParseFile(t *testing.T) {
	file, err := ParseFile(shopProto)
	require.NoError(t, err)

	assert.Equal(t, "shop.v1", file.Package)
	assert.Contains(t, file.Imports, "google/api/annotations.proto")
	assert.Equal(t, "example.com/shop/v1;shopv1", file.Options["go_package"])
	require.Len(t, file.Services, 1)
	assert.Len(t, file.Enums, 1)
	assert.Len(t, file.Messages, 4)
}

func TestParseFile_Fields(t *testing.T) {
	file, err := ParseFile(shopProto)
	require.NoError(t, err)

	var item *Message
	for _, m := range file.Messages {
		if m.Name == "Item" {
			item = m
		}
	}
	require.NotNil(t, item)
	require.Len(t, item.Fields, 8)

	byName := map[string]Field{}
	for _, f := range item.Fields {
		byName[f.Name] = f
	}
	assert.Equal(t, 1, byName["id"].Number)
	assert.True(t, byName["tags"].Repeated)
	assert.True(t, byName["labels"].IsMap)
	assert.Equal(t, "string", byName["labels"].KeyType)
	assert.Equal(t, "google.protobuf.Timestamp", byName["created_at"].Type)

	// Nested message is scanned recursively.
	require.Len(t, item.Messages, 1)
	assert.Equal(t, "Item.Nested", item.Messages[0].FullName)
}

func TestParseFile_Malformed(t *testing.T) {
	_, err := ParseFile("nothing proto-like here")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrMalformedSpec))
}

func TestExtract_Streaming(t *testing.T) {
	result, err := Extract([]byte(shopProto))
	require.NoError(t, err)
	require.Len(t, result.Tools, 3)

	byName := map[string]ir.ToolDefinition{}
	for _, tool := range result.Tools {
		byName[tool.Name] = tool
	}

	list := byName["item_service_list_items"]
	require.NotNil(t, list.Metadata.GRPC)
	assert.True(t, list.Metadata.GRPC.ServerStreaming)
	assert.False(t, list.Metadata.GRPC.ClientStreaming)

	upload := byName["item_service_upload_items"]
	require.NotNil(t, upload.Metadata.GRPC)
	assert.True(t, upload.Metadata.GRPC.ClientStreaming)
	assert.False(t, upload.Metadata.GRPC.ServerStreaming)
}

func TestExtract_TranscodingAnnotation(t *testing.T) {
	result, err := Extract([]byte(shopProto))
	require.NoError(t, err)

	var get ir.ToolDefinition
	for _, tool := range result.Tools {
		if tool.Name == "item_service_get_item" {
			get = tool
		}
	}
	require.NotNil(t, get.Metadata.GRPC)
	require.NotNil(t, get.Metadata.GRPC.HTTPRule)
	assert.Equal(t, "GET", get.Metadata.GRPC.HTTPRule.Method)
	assert.Equal(t, "/v1/items/{item_id}", get.Metadata.GRPC.HTTPRule.Path)

	// Transcoded path params are required.
	assert.True(t, get.InputSchema.IsRequired("item_id"))
	assert.Equal(t, ir.TypeString, get.InputSchema.Properties["item_id"].Type)
}

func TestExtract_SharedRequestMessage(t *testing.T) {
	proto := `
syntax = "proto3";

package shop.v1;

message LookupRequest {
  string query = 1;
}

message LookupResponse {}

service LookupService {
  rpc Find(LookupRequest) returns (LookupResponse) {
    option (google.api.http) = {
      get: "/v1/lookup/{entry_id}"
    };
  }
  rpc FindAll(LookupRequest) returns (LookupResponse);
}
`
	result, err := Extract([]byte(proto))
	require.NoError(t, err)

	tools := map[string]ir.ToolDefinition{}
	for _, tool := range result.Tools {
		tools[tool.Name] = tool
	}

	find := tools["lookup_service_find"]
	assert.True(t, find.InputSchema.IsRequired("entry_id"))
	assert.Contains(t, find.InputSchema.Properties, "entry_id")

	// The transcoding rule's path parameter stays local to its rpc even
	// though both rpcs share the same request message.
	findAll := tools["lookup_service_find_all"]
	assert.NotContains(t, findAll.InputSchema.Properties, "entry_id")
	assert.False(t, findAll.InputSchema.IsRequired("entry_id"))
	assert.Contains(t, findAll.InputSchema.Properties, "query")
}

func TestMessageTable_Schema(t *testing.T) {
	file, err := ParseFile(shopProto)
	require.NoError(t, err)
	table := NewMessageTable(file)

	schema := table.Schema("Item")
	require.Equal(t, ir.TypeObject, schema.Type)
	assert.Equal(t, ir.TypeString, schema.Properties["id"].Type)
	assert.Equal(t, ir.TypeNumber, schema.Properties["price"].Type)
	assert.Equal(t, ir.TypeArray, schema.Properties["tags"].Type)
	assert.Equal(t, ir.TypeString, schema.Properties["tags"].Items.Type)
	assert.Equal(t, ir.TypeObject, schema.Properties["labels"].Type)

	// Enum fields carry their values.
	status := schema.Properties["status"]
	require.NotNil(t, status)
	assert.Contains(t, status.Enum, "ACTIVE")

	// Well-known Timestamp projects to a date-time string.
	created := schema.Properties["created_at"]
	assert.Equal(t, ir.TypeString, created.Type)
	assert.Equal(t, "date-time", created.Format)

	// Memoized: same pointer on re-derivation.
	assert.Same(t, schema, table.Schema("Item"))
}

func TestMessageTable_RecursiveMessage(t *testing.T) {
	file, err := ParseFile(shopProto)
	require.NoError(t, err)
	table := NewMessageTable(file)

	tree := table.Schema("Tree")
	require.Equal(t, ir.TypeObject, tree.Type)
	children := tree.Properties["children"]
	require.NotNil(t, children)
	require.Equal(t, ir.TypeArray, children.Type)
	// Self-reference collapses to $ref instead of recursing forever.
	assert.Equal(t, "#/$defs/Tree", children.Items.Ref)
}

func TestMessageTable_UnresolvedType(t *testing.T) {
	file, err := ParseFile(shopProto)
	require.NoError(t, err)
	table := NewMessageTable(file)

	node := table.Schema("does.not.Exist")
	assert.Equal(t, ir.TypeObject, node.Type)
	assert.Contains(t, node.Description, "does.not.Exist")
}
