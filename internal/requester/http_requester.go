package requester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nirholas/specbridge/internal/config"
	"github.com/nirholas/specbridge/internal/ir"
	"github.com/nirholas/specbridge/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// HTTPRequester handles both request building and execution
type HTTPRequester struct {
	client  *http.Client
	baseURL string
	authMgr AuthManager
}

type HTTPRequesterParams struct {
	fx.In

	Config      *config.Config
	AuthManager AuthManager
}

// NewHTTPRequester creates a new HTTPRequester with default configuration
func NewHTTPRequester(params HTTPRequesterParams) *HTTPRequester {
	requester := &HTTPRequester{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: params.Config.Server.BaseURL,
		authMgr: params.AuthManager,
	}
	if timeout, err := time.ParseDuration(params.Config.Server.Timeout); err == nil && timeout > 0 {
		requester.client.Timeout = timeout
	}
	return requester
}

// SetTimeout sets the timeout for the HTTP client
func (r *HTTPRequester) SetTimeout(timeout time.Duration) {
	r.client.Timeout = timeout
}

// BuildToolExecutor creates a function that can execute calls for one tool
func (r *HTTPRequester) BuildToolExecutor(tool ir.ToolDefinition) (ToolExecutor, error) {
	if tool.Metadata.HTTP == nil {
		return nil, fmt.Errorf("tool %q has no HTTP binding", tool.Name)
	}
	builder := NewToolRequestBuilder(tool, r.baseURL, nil, r.authMgr)

	return func(ctx context.Context, params map[string]interface{}) (*Response, error) {
		req, err := builder.BuildRequest(ctx, params)
		if err != nil {
			return nil, err
		}
		logger.Info("request route", zap.String("tool", tool.Name), zap.String("url", req.URL))

		resp, err := r.execute(req)
		if err != nil {
			logger.Error("failed to execute request", zap.Error(err))
			return nil, err
		}
		return resp, nil
	}, nil
}

// execute performs the actual HTTP request execution
func (r *HTTPRequester) execute(req *Request) (*Response, error) {
	resp, err := r.client.Do(req.HttpRequest)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       bodyBytes,
		Headers:    resp.Header,
	}, nil
}
