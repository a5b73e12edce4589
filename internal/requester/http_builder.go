package requester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nirholas/specbridge/internal/ir"
)

// ToolRequestBuilder builds HTTP requests for one tool's binding.
type ToolRequestBuilder struct {
	baseURL string
	headers map[string]string
	authMgr AuthManager
	tool    ir.ToolDefinition
}

// NewToolRequestBuilder creates a builder for one tool. baseURL overrides
// the binding's own base URL when set.
func NewToolRequestBuilder(tool ir.ToolDefinition, baseURL string, headers map[string]string, authMgr AuthManager) *ToolRequestBuilder {
	return &ToolRequestBuilder{
		baseURL: baseURL,
		headers: headers,
		authMgr: authMgr,
		tool:    tool,
	}
}

// BuildRequest builds a request from the tool's binding and call arguments
func (b *ToolRequestBuilder) BuildRequest(ctx context.Context, params map[string]interface{}) (*Request, error) {
	binding := b.tool.Metadata.HTTP
	if binding == nil {
		return nil, fmt.Errorf("tool %q has no HTTP binding", b.tool.Name)
	}

	pathParams := templateParams(binding.Path)
	requestURL := b.buildURL(binding, params, pathParams)

	if isQueryMethod(binding.Method) {
		requestURL = addQueryParams(requestURL, params, pathParams)
	}

	body, contentType, err := b.createRequestBody(binding, params, pathParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create request body: %w", err)
	}

	// Merge headers: binding-level first, endpoint-level overrides
	headers := make(map[string]string)
	for k, v := range binding.Headers {
		headers[k] = v
	}
	for k, v := range b.headers {
		headers[k] = v
	}

	httpReq, err := http.NewRequestWithContext(ctx, binding.Method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if err := b.authMgr.ApplyAuth(httpReq, b.tool.Metadata.Auth); err != nil {
		return nil, fmt.Errorf("failed to apply authentication: %w", err)
	}

	return &Request{
		URL:         httpReq.URL.String(),
		Method:      binding.Method,
		Body:        body,
		Headers:     headers,
		ContentType: contentType,
		HttpRequest: httpReq,
	}, nil
}

func (b *ToolRequestBuilder) buildURL(binding *ir.HTTPBinding, params map[string]interface{}, pathParams map[string]bool) string {
	base := b.baseURL
	if base == "" {
		base = binding.BaseURL
	}
	requestURL := strings.TrimSuffix(base, "/") + binding.Path

	for key := range pathParams {
		if value, ok := params[key]; ok {
			placeholder := fmt.Sprintf("{%s}", key)
			requestURL = strings.ReplaceAll(requestURL, placeholder, url.PathEscape(fmt.Sprintf("%v", value)))
		}
	}
	return requestURL
}

func addQueryParams(baseURL string, params map[string]interface{}, pathParams map[string]bool) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}

	q := u.Query()
	for key, value := range params {
		if pathParams[key] || key == "body" {
			continue
		}
		q.Set(key, fmt.Sprintf("%v", value))
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func (b *ToolRequestBuilder) createRequestBody(binding *ir.HTTPBinding, params map[string]interface{}, pathParams map[string]bool) (io.Reader, string, error) {
	if isQueryMethod(binding.Method) {
		return nil, "", nil
	}

	contentType := binding.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	// An explicit "body" argument carries the whole payload (nested body
	// schemas); otherwise the flattened non-path arguments become it.
	payload := params["body"]
	if payload == nil {
		flattened := make(map[string]interface{})
		for key, value := range params {
			if pathParams[key] {
				continue
			}
			flattened[key] = value
		}
		if len(flattened) == 0 {
			return nil, "", nil
		}
		payload = flattened
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	return bytes.NewBuffer(jsonData), contentType, nil
}

func isQueryMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodDelete, http.MethodHead:
		return true
	}
	return false
}

// templateParams extracts the placeholder names of a path pattern.
func templateParams(path string) map[string]bool {
	params := map[string]bool{}
	for _, segment := range strings.Split(path, "/") {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			params[strings.Trim(segment, "{}")] = true
		}
	}
	return params
}
