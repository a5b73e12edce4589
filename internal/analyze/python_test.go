package analyze

import (
	"testing"

	"github.com/nirholas/specbridge/internal/extract/openapi"
	"github.com/nirholas/specbridge/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fastapiApp = `from fastapi import FastAPI
from typing import Optional, List
from models import ItemCreate

app = FastAPI()

@app.get("/items/{item_id}")
def read_item(item_id: int, verbose: bool = False):
    """Fetch a single item.

    Returns the item with all of its attributes.
    """
    return {}

@app.post("/items")
def create_item(body: ItemCreate):
    """Create an item."""
    return {}

@app.get("/search", deprecated=True)
def search_items(q: str, limit: Optional[int] = None):
    return []
`

const pydanticModels = `from pydantic import BaseModel
from typing import Optional, List

class ItemCreate(BaseModel):
    name: str
    price: float
    tags: List[str] = []
    note: Optional[str] = None
`

const flaskApp = `from flask import Flask

app = Flask(__name__)

@app.route('/ping')
def ping():
    return 'pong'

@app.route('/widgets/<int:widget_id>', methods=['GET', 'DELETE'])
def widget(widget_id):
    """Operate on one widget."""
    return {}
`

func pythonFiles() []File {
	return []File{
		{Path: "app.py", Content: fastapiApp},
		{Path: "models.py", Content: pydanticModels},
	}
}

func TestPythonCanAnalyze(t *testing.T) {
	a := NewPythonAnalyzer()
	assert.True(t, a.CanAnalyze(pythonFiles()))
	assert.True(t, a.CanAnalyze([]File{{Path: "app.py", Content: flaskApp}}))
	assert.False(t, a.CanAnalyze([]File{{Path: "app.ts", Content: expressApp}}))
}

func TestFastAPIRoutes(t *testing.T) {
	a := NewPythonAnalyzer()
	res := a.Analyze(pythonFiles())
	require.Len(t, res.Endpoints, 3)

	read := res.Endpoints[0]
	assert.Equal(t, "GET", read.Method)
	assert.Equal(t, "/items/{item_id}", read.Path)
	assert.Equal(t, "read_item", read.OperationID)
	assert.Equal(t, "Fetch a single item.", read.Summary)
	assert.Equal(t, "Returns the item with all of its attributes.", read.Description)

	require.Len(t, read.Parameters, 2)
	assert.Equal(t, openapi.InPath, read.Parameters[0].In)
	assert.Equal(t, ir.TypeInteger, read.Parameters[0].Schema.Type)
	assert.True(t, read.Parameters[0].Required)
	assert.Equal(t, "verbose", read.Parameters[1].Name)
	assert.Equal(t, openapi.InQuery, read.Parameters[1].In)
	assert.Equal(t, ir.TypeBoolean, read.Parameters[1].Schema.Type)
	assert.False(t, read.Parameters[1].Required)
}

func TestPydanticBodyBinding(t *testing.T) {
	a := NewPythonAnalyzer()
	res := a.Analyze(pythonFiles())

	create := res.Endpoints[1]
	assert.Equal(t, "create_item", create.OperationID)
	require.NotNil(t, create.Body)
	body := create.Body.Schema
	require.Contains(t, body.Properties, "name")
	require.Contains(t, body.Properties, "price")
	require.Contains(t, body.Properties, "tags")
	assert.Equal(t, ir.TypeNumber, body.Properties["price"].Type)
	assert.Equal(t, ir.TypeArray, body.Properties["tags"].Type)
	assert.Equal(t, ir.TypeString, body.Properties["tags"].Items.Type)
	assert.True(t, body.IsRequired("name"))
	assert.False(t, body.IsRequired("tags"))
	assert.False(t, body.IsRequired("note"))
}

func TestFastAPIDeprecatedFlag(t *testing.T) {
	a := NewPythonAnalyzer()
	res := a.Analyze(pythonFiles())

	search := res.Endpoints[2]
	assert.Equal(t, "search_items", search.OperationID)
	assert.True(t, search.Deprecated)
	require.Len(t, search.Parameters, 2)
	assert.True(t, search.Parameters[0].Required)
	assert.False(t, search.Parameters[1].Required)
	assert.Equal(t, ir.TypeInteger, search.Parameters[1].Schema.Type)
}

func TestFlaskRoutes(t *testing.T) {
	a := NewPythonAnalyzer()
	res := a.Analyze([]File{{Path: "app.py", Content: flaskApp}})
	require.Len(t, res.Endpoints, 3)

	ping := res.Endpoints[0]
	assert.Equal(t, "GET", ping.Method)
	assert.Equal(t, "/ping", ping.Path)

	// One endpoint per declared method.
	assert.Equal(t, "GET", res.Endpoints[1].Method)
	assert.Equal(t, "DELETE", res.Endpoints[2].Method)
	assert.Equal(t, "/widgets/{widget_id}", res.Endpoints[1].Path)
	require.Len(t, res.Endpoints[1].Parameters, 1)
	assert.Equal(t, "widget_id", res.Endpoints[1].Parameters[0].Name)
	assert.True(t, res.Endpoints[1].Parameters[0].Required)
}

func TestRunWithPythonSources(t *testing.T) {
	result := Run(pythonFiles(), openapi.DefaultOptions())
	require.NotNil(t, result)

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"read_item", "create_item", "search_items"}, names)

	create := result.Tools[1]
	require.Contains(t, create.InputSchema.Properties, "name")
	assert.True(t, create.InputSchema.IsRequired("name"))
}
