package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm api error: %d %s", e.Code, e.Body)
}

// HTTPConfig configures HTTPClient.
type HTTPConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// HTTPClient talks to an OpenAI-compatible /chat/completions endpoint.
type HTTPClient struct {
	http        *resty.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewHTTPClient creates a Resty-backed client. Timeout bounds every call
// in addition to any deadline carried by the request context.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	if cfg.APIKey != "" {
		rc.SetAuthToken(cfg.APIKey)
	}
	return &HTTPClient{
		http:        rc,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Invoke implements Client. Unset request fields take the client defaults.
func (c *HTTPClient) Invoke(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxTokens
	}
	if req.Temperature == nil {
		t := c.temperature
		req.Temperature = &t
	}

	var completion Response
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&completion).
		Post("/chat/completions")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, &StatusError{Code: resp.StatusCode(), Body: truncate(resp.String(), 512)}
	}
	return &completion, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Ensure interface compliance.
var _ Client = (*HTTPClient)(nil)
