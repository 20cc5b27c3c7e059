package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// maxResponseBody caps how much of a flow response is read (32 MB).
const maxResponseBody int64 = 32 << 20

// FlowClient calls an HTTP flow endpoint that accepts a Request and answers
// with a Response, optionally wrapped as {"result": ...}.
type FlowClient struct {
	endpoint   string
	apiKey     string
	reportOnly bool
	httpClient *http.Client
}

// FlowOption configures a FlowClient.
type FlowOption func(*FlowClient)

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) FlowOption {
	return func(c *FlowClient) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) FlowOption {
	return func(c *FlowClient) { c.httpClient = hc }
}

// WithReportOnly accepts responses that carry only a report; the base image
// is kept in that case.
func WithReportOnly() FlowOption {
	return func(c *FlowClient) { c.reportOnly = true }
}

// NewFlowClient creates a client for endpoint.
func NewFlowClient(endpoint string, opts ...FlowOption) *FlowClient {
	c := &FlowClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Optimize sends one combined request.
func (c *FlowClient) Optimize(ctx context.Context, base model.Artifact, style model.StyleSpec) (*model.OptimizationResult, error) {
	req, err := NewRequest(base, style)
	if err != nil {
		return nil, err
	}
	resp, err := c.call(ctx, req)
	if err != nil {
		return nil, asOptimizationError("optimize request failed", err)
	}
	var fallback *model.Artifact
	if c.reportOnly {
		fallback = &base
	}
	return resp.Result(fallback)
}

// Report implements Reporter by reading only the report field.
func (c *FlowClient) Report(ctx context.Context, req Request) (string, error) {
	resp, err := c.call(ctx, req)
	if err != nil {
		return "", asOptimizationError("report request failed", err)
	}
	if strings.TrimSpace(resp.OptimizationReport) == "" {
		return "", &model.OptimizationError{Reason: "response missing optimizationReport"}
	}
	return resp.OptimizationReport, nil
}

// Paint implements Painter by reading only the image field.
func (c *FlowClient) Paint(ctx context.Context, req Request) (model.Artifact, error) {
	resp, err := c.call(ctx, req)
	if err != nil {
		return model.Artifact{}, asOptimizationError("image request failed", err)
	}
	if resp.OptimizedQRCodeDataURI == "" {
		return model.Artifact{}, &model.OptimizationError{Reason: "response missing optimizedQrCodeDataUri"}
	}
	a, err := model.ParseDataURI(resp.OptimizedQRCodeDataURI)
	if err != nil {
		return model.Artifact{}, &model.OptimizationError{Reason: "invalid optimizedQrCodeDataUri", Err: err}
	}
	return a, nil
}

type flowRequest struct {
	Data Request `json:"data"`
}

type flowEnvelope struct {
	Result *Response        `json:"result,omitempty"`
	Error  *json.RawMessage `json:"error,omitempty"`
	Response
}

// flowError is a non-200 reply from the flow endpoint.
type flowError struct {
	StatusCode int
	Message    string
}

func (e *flowError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (c *FlowClient) call(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(flowRequest{Data: req})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &flowError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	var env flowEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if env.Error != nil {
		return nil, fmt.Errorf("flow error: %s", errorMessage(*env.Error))
	}
	if env.Result != nil {
		return env.Result, nil
	}
	return &env.Response, nil
}

// errorMessage extracts a readable message from an error body such as
// {"error":{"message":"..."}}, {"error":"..."} or plain text.
func errorMessage(body []byte) string {
	var plain string
	if json.Unmarshal(body, &plain) == nil && plain != "" {
		return plain
	}
	var shaped struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &shaped); err == nil {
		if shaped.Message != "" {
			return shaped.Message
		}
		if len(shaped.Error) > 0 {
			var s string
			if json.Unmarshal(shaped.Error, &s) == nil {
				return s
			}
			var obj struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(shaped.Error, &obj) == nil && obj.Message != "" {
				return obj.Message
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
