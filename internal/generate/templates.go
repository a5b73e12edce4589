package generate

import (
	"encoding/json"
	"strings"
	"text/template"
)

var templateFuncs = template.FuncMap{
	// listJSON renders a string slice as a JSON array literal.
	"listJSON": func(list []string) string {
		if len(list) == 0 {
			return "[]"
		}
		out, err := json.Marshal(list)
		if err != nil {
			return "[]"
		}
		return string(out)
	},
}

func execTemplate(text string, data any) (string, error) {
	tmpl, err := template.New("file").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

const manifestTemplate = `{
  "name": "{{.ServerName}}",
  "version": "{{.ServerVersion}}",
  "description": "MCP server generated from an API specification ({{.ToolCount}} tools)",
  "type": "module",
{{- if .TypeScript}}
  "main": "dist/index.js",
  "scripts": {
    "build": "tsc",
    "start": "node dist/index.js"
  },
{{- else}}
  "main": "src/index.js",
  "scripts": {
    "start": "node src/index.js"
  },
{{- end}}
  "dependencies": {
    "@modelcontextprotocol/sdk": "^1.0.0"
  }{{if .TypeScript}},
  "devDependencies": {
    "typescript": "^5.4.0",
    "@types/node": "^20.0.0"
  }{{end}}
}
`

const readmeTemplate = `# {{.ServerName}}

An MCP server exposing {{.ToolCount}} tools, generated from an API
specification.

## Setup

` + "```" + `sh
npm install
{{- if .TypeScript}}
npm run build
{{- end}}
npm start
` + "```" + `
{{- if .EnvVars}}

## Environment variables

| Variable | Purpose |
| --- | --- |
{{- range .EnvVars}}
| {{.}} | API credential |
{{- end}}
{{- end}}

## Tools
{{range .Groups}}
### {{.Name}}
{{range .Tools}}
- ` + "`{{.Name}}`" + `{{if .Deprecated}} (deprecated){{end}} — {{.Description}}
{{- end}}
{{end}}`

const runtimeTemplate = `/* Shared runtime for generated tools. */
{{if .TypeScript}}
export interface EndpointSpec {
  method: string;
  path: string;
  baseUrl?: string;
  contentType?: string;
  pathParams: string[];
  queryProps: string[];
  bodyProps: string[];
}

type ToolInput = Record<string, unknown>;
{{end}}
const DEFAULT_BASE_URL = {{if .BaseURL}}"{{.BaseURL}}"{{else}}process.env.API_BASE_URL || ""{{end}};

export function validateInput(toolName{{if .TypeScript}}: string{{end}}, required{{if .TypeScript}}: string[]{{end}}, input{{if .TypeScript}}: ToolInput{{end}}) {
  const missing = required.filter((key) => input[key] === undefined || input[key] === null);
  if (missing.length > 0) {
    throw new Error(toolName + ": missing required argument(s): " + missing.join(", "));
  }
}

export function authHeaders(){{if .TypeScript}}: Record<string, string>{{end}} {
{{- if .Auth}}
  const credential = process.env.{{.Auth.EnvVar}};
  if (!credential) {
    return {};
  }
{{- if eq (printf "%s" .Auth.Type) "bearer"}}
  return { Authorization: "Bearer " + credential };
{{- else if eq (printf "%s" .Auth.Type) "basic"}}
  return { Authorization: "Basic " + Buffer.from(credential).toString("base64") };
{{- else if eq (printf "%s" .Auth.Type) "apiKey"}}
  return { "{{if .Auth.Header}}{{.Auth.Header}}{{else}}X-API-Key{{end}}": credential };
{{- else}}
  return { Authorization: "Bearer " + credential };
{{- end}}
{{- else}}
  return {};
{{- end}}
}
{{if .Features.Retry}}
const RETRY_ATTEMPTS = 3;
const RETRY_BASE_DELAY_MS = 250;

export async function withRetry(fn{{if .TypeScript}}: () => Promise<unknown>{{end}}) {
  let lastError{{if .TypeScript}}: unknown{{end}};
  for (let attempt = 0; attempt < RETRY_ATTEMPTS; attempt++) {
    try {
      return await fn();
    } catch (err) {
      lastError = err;
      const delay = RETRY_BASE_DELAY_MS * Math.pow(2, attempt);
      await new Promise((resolve) => setTimeout(resolve, delay));
    }
  }
  throw lastError;
}
{{end}}{{if gt .Features.CacheTTL 0}}
const CACHE_TTL_MS = {{.Features.CacheTTL}} * 1000;
const responseCache = new Map();

export async function cached(key{{if .TypeScript}}: string{{end}}, fn{{if .TypeScript}}: () => Promise<unknown>{{end}}) {
  const hit = responseCache.get(key);
  if (hit && hit.expires > Date.now()) {
    return hit.value;
  }
  const value = await fn();
  responseCache.set(key, { value, expires: Date.now() + CACHE_TTL_MS });
  return value;
}
{{end}}
export async function callEndpoint(spec{{if .TypeScript}}: EndpointSpec{{end}}, input{{if .TypeScript}}: ToolInput{{end}}) {
  let path = spec.path;
  for (const param of spec.pathParams) {
    path = path.replace("{" + param + "}", encodeURIComponent(String(input[param])));
  }
  const base = spec.baseUrl || DEFAULT_BASE_URL;
  const url = new URL(base + path);
  for (const key of spec.queryProps) {
    if (input[key] !== undefined && input[key] !== null) {
      url.searchParams.set(key, String(input[key]));
    }
  }

  const headers{{if .TypeScript}}: Record<string, string>{{end}} = { Accept: "application/json", ...authHeaders() };
  let body;
  if (spec.bodyProps.length > 0) {
    const payload = {};
    for (const key of spec.bodyProps) {
      if (input[key] !== undefined) {
        payload[key] = input[key];
      }
    }
    headers["Content-Type"] = spec.contentType || "application/json";
    body = JSON.stringify(payload);
  }

  const response = await fetch(url.toString(), { method: spec.method, headers, body });
  if (!response.ok) {
    const text = await response.text();
    throw new Error(spec.method + " " + path + " failed with " + response.status + ": " + text);
  }
  const contentType = response.headers.get("content-type") || "";
  if (contentType.includes("application/json")) {
    return response.json();
  }
  return response.text();
}
{{if .Features.PaginationAutoFollow}}
const PAGINATION_CAP = {{.PaginationCap}};

/* Follows next-page references found in well-known response shapes
 * (next, nextPage, or HAL-style _links.next.href), bounded by a safety
 * cap so a misbehaving host API cannot loop forever. */
export async function callPaginated(spec{{if .TypeScript}}: EndpointSpec{{end}}, input{{if .TypeScript}}: ToolInput{{end}}, pageParam{{if .TypeScript}}: string{{end}}) {
  const pages = [];
  let current = await callEndpoint(spec, input);
  pages.push(current);
  for (let i = 1; i < PAGINATION_CAP; i++) {
    const next = nextPageRef(current);
    if (!next) {
      break;
    }
    if (typeof next === "string" && next.startsWith("http")) {
      const response = await fetch(next, { headers: { Accept: "application/json", ...authHeaders() } });
      if (!response.ok) {
        break;
      }
      current = await response.json();
    } else {
      current = await callEndpoint(spec, { ...input, [pageParam]: next });
    }
    pages.push(current);
  }
  return mergePages(pages);
}

function nextPageRef(page{{if .TypeScript}}: any{{end}}) {
  if (!page || typeof page !== "object") {
    return undefined;
  }
  if (page.next !== undefined && page.next !== null) {
    return page.next;
  }
  if (page.nextPage !== undefined && page.nextPage !== null) {
    return page.nextPage;
  }
  if (page._links && page._links.next && page._links.next.href) {
    return page._links.next.href;
  }
  return undefined;
}

function mergePages(pages{{if .TypeScript}}: any[]{{end}}) {
  if (pages.every((p) => Array.isArray(p))) {
    return pages.flat();
  }
  const arrayKeys = Object.keys(pages[0] || {}).filter((k) => Array.isArray(pages[0][k]));
  if (arrayKeys.length === 1) {
    const key = arrayKeys[0];
    return { ...pages[pages.length - 1], [key]: pages.flatMap((p) => p[key] || []) };
  }
  return pages;
}
{{end}}`

const groupTemplate = `/* Tools in group "{{.Group.Name}}". */
import { callEndpoint{{if .Features.PaginationAutoFollow}}, callPaginated{{end}}{{if .Features.Retry}}, withRetry{{end}}{{if gt .Features.CacheTTL 0}}, cached{{end}}{{if .Features.InputValidation}}, validateInput{{end}} } from "../runtime.js";
{{range .Group.Tools}}
export const {{.Symbol}}Tool = {
  name: "{{.Name}}",
  description: {{printf "%q" .Description}},
  inputSchema: {{.SchemaJSON}}
};

export async function {{.Symbol}}(input{{if $.TypeScript}}: Record<string, unknown>{{end}}) {
{{- if $.Features.InputValidation}}
  validateInput("{{.Name}}", {{.RequiredJSON}}, input);
{{- end}}
{{- if .HTTPBound}}
  const spec = {
    method: "{{.Method}}",
    path: "{{.Path}}",
    baseUrl: {{if .BaseURL}}"{{.BaseURL}}"{{else}}undefined{{end}},
    contentType: {{if .ContentType}}"{{.ContentType}}"{{else}}undefined{{end}},
    pathParams: {{listJSON .PathParams}},
    queryProps: {{listJSON .QueryProps}},
    bodyProps: {{listJSON .BodyProps}}
  };
{{- if .Paginated}}
  const invoke = () => callPaginated(spec, input, "{{.PageParam}}");
{{- else}}
  const invoke = () => callEndpoint(spec, input);
{{- end}}
{{- if .Cacheable}}
  const run = () => cached("{{.Name}}:" + JSON.stringify(input), invoke);
{{- else}}
  const run = invoke;
{{- end}}
{{- if $.Features.Retry}}
  return withRetry(run);
{{- else}}
  return run();
{{- end}}
{{- else}}
  throw new Error("{{.Name}} is not directly callable from this server: {{.FormatNote}}. Arguments received: " + JSON.stringify(input));
{{- end}}
}
{{end}}
export const {{.Group.Symbol}} = [
{{- range $i, $t := .Group.Tools}}
  { tool: {{$t.Symbol}}Tool, handler: {{$t.Symbol}} },
{{- end}}
];
`

const indexTemplate = `/* Entry point for the generated MCP server. */
import { Server } from "@modelcontextprotocol/sdk/server/index.js";
import { StdioServerTransport } from "@modelcontextprotocol/sdk/server/stdio.js";
import { CallToolRequestSchema, ListToolsRequestSchema } from "@modelcontextprotocol/sdk/types.js";
{{- range .Groups}}
import { {{.Symbol}} } from "./tools/{{.FileName}}.js";
{{- end}}

const registry = [
{{- range .Groups}}
  ...{{.Symbol}},
{{- end}}
];

const server = new Server(
  { name: "{{.ServerName}}", version: "{{.ServerVersion}}" },
  { capabilities: { tools: {} } }
);

server.setRequestHandler(ListToolsRequestSchema, async () => ({
  tools: registry.map((entry) => entry.tool),
}));

server.setRequestHandler(CallToolRequestSchema, async (request) => {
  const entry = registry.find((e) => e.tool.name === request.params.name);
  if (!entry) {
    throw new Error("Unknown tool: " + request.params.name);
  }
  try {
    const result = await entry.handler(request.params.arguments || {});
    const text = typeof result === "string" ? result : JSON.stringify(result, null, 2);
    return { content: [{ type: "text", text }] };
  } catch (err) {
    const message = err instanceof Error ? err.message : String(err);
    return { content: [{ type: "text", text: "Error: " + message }], isError: true };
  }
});

const transport = new StdioServerTransport();
await server.connect(transport);
`
