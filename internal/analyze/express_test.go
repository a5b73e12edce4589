package analyze

import (
	"testing"

	"github.com/nirholas/specbridge/internal/extract/openapi"
	"github.com/nirholas/specbridge/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expressApp = `import express from 'express';
import { CreateUserInput } from './types';

const app = express();

/**
 * List all users
 * @tags users
 * @param limit Maximum number of users to return
 */
app.get('/users', (req, res) => {
  const limit = req.query.limit;
  const { offset } = req.query;
  res.json([]);
});

// Fetch one user by id
app.get('/users/:userId', (req, res) => {
  res.json({});
});

app.post('/users', (req, res) => {
  const input = req.body as CreateUserInput;
  res.status(201).json(input);
});
`

const expressTypes = `export interface CreateUserInput {
  name: string;
  email?: string;
  age: number;
  active: boolean;
}
`

func expressFiles() []File {
	return []File{
		{Path: "src/app.ts", Content: expressApp},
		{Path: "src/types.ts", Content: expressTypes},
	}
}

func TestExpressCanAnalyze(t *testing.T) {
	a := NewExpressAnalyzer()
	assert.True(t, a.CanAnalyze(expressFiles()))
	assert.False(t, a.CanAnalyze([]File{{Path: "main.py", Content: "print('hi')"}}))
	// An import alone is not enough, a route declaration must exist too.
	assert.False(t, a.CanAnalyze([]File{{Path: "a.ts", Content: "import express from 'express';"}}))
}

func TestExpressRoutes(t *testing.T) {
	a := NewExpressAnalyzer()
	res := a.Analyze(expressFiles())
	require.Len(t, res.Endpoints, 3)

	list := res.Endpoints[0]
	assert.Equal(t, "GET", list.Method)
	assert.Equal(t, "/users", list.Path)
	assert.Equal(t, "List all users", list.Summary)
	assert.Equal(t, []string{"users"}, list.Tags)

	names := map[string]openapi.Parameter{}
	for _, p := range list.Parameters {
		names[p.Name] = p
	}
	require.Contains(t, names, "limit")
	require.Contains(t, names, "offset")
	assert.Equal(t, openapi.InQuery, names["limit"].In)
	assert.Equal(t, "Maximum number of users to return", names["limit"].Description)
}

func TestExpressPathParamNormalized(t *testing.T) {
	a := NewExpressAnalyzer()
	res := a.Analyze(expressFiles())

	get := res.Endpoints[1]
	assert.Equal(t, "/users/{userId}", get.Path)
	assert.Equal(t, "Fetch one user by id", get.Summary)
	require.Len(t, get.Parameters, 1)
	assert.Equal(t, openapi.InPath, get.Parameters[0].In)
	assert.True(t, get.Parameters[0].Required)
}

func TestExpressBodyFromInterface(t *testing.T) {
	a := NewExpressAnalyzer()
	res := a.Analyze(expressFiles())

	create := res.Endpoints[2]
	require.NotNil(t, create.Body)
	body := create.Body.Schema
	require.Contains(t, body.Properties, "name")
	require.Contains(t, body.Properties, "email")
	assert.Equal(t, ir.TypeString, body.Properties["name"].Type)
	assert.Equal(t, ir.TypeNumber, body.Properties["age"].Type)
	assert.Equal(t, ir.TypeBoolean, body.Properties["active"].Type)
	assert.True(t, body.IsRequired("name"))
	assert.False(t, body.IsRequired("email"))
}

func TestExpressUnknownBodyTypeWarns(t *testing.T) {
	a := NewExpressAnalyzer()
	res := a.Analyze([]File{{Path: "app.js", Content: `
const express = require('express');
const app = express();
app.post('/orders', (req, res) => {
  const order = req.body as OrderInput;
});
`}})
	require.Len(t, res.Endpoints, 1)
	assert.Nil(t, res.Endpoints[0].Body)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "OrderInput")
}

func TestRunProducesTools(t *testing.T) {
	result := Run(expressFiles(), openapi.DefaultOptions())
	require.NotNil(t, result)
	assert.Equal(t, ir.FormatSourceCode, result.Format)

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"get_users", "get_users_user_id", "post_users"}, names)

	for _, tool := range result.Tools {
		assert.Equal(t, ir.FormatSourceCode, tool.Metadata.Format)
		assert.Equal(t, ir.ConfidenceLow, tool.Metadata.Confidence)
	}
}

func TestRunUnrecognizedInput(t *testing.T) {
	assert.Nil(t, Run([]File{{Path: "main.go", Content: "package main"}}, openapi.DefaultOptions()))
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		params []string
	}{
		{"/users/:id", "/users/{id}", []string{"id"}},
		{"/items/<int:item_id>", "/items/{item_id}", []string{"item_id"}},
		{"/files/<path>", "/files/{path}", []string{"path"}},
		{"/orders/{order_id}", "/orders/{order_id}", []string{"order_id"}},
		{"/health", "/health", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, params := normalizePath(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.params, params)
		})
	}
}
