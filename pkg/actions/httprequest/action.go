// Package httprequest provides the generic HTTP caller action.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Acurioustractor/actflow/pkg/models"
)

const defaultTimeout = 30 * time.Second

// Action performs a single HTTP request. Retries are owned by the engine's
// step retry policy, not the action.
type Action struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
	Timeout time.Duration

	client *http.Client
}

func NewAction(config map[string]any) (*Action, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, errors.New("http_request action requires a url")
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	body, _ := config["body"].(string)

	headers := make(map[string]string)
	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for key, value := range headersConfig {
			if str, ok := value.(string); ok {
				headers[key] = str
			}
		}
	}

	timeout := defaultTimeout
	if seconds, ok := config["timeout_seconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
	}

	return &Action{
		Method:  strings.ToUpper(method),
		URL:     url,
		Headers: headers,
		Body:    body,
		Timeout: timeout,
		client:  &http.Client{},
	}, nil
}

func (a *Action) Execute(ctx context.Context, _ models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_kind", "http_request", "method", a.Method, "url", a.URL)
	logger.Debug("Executing HTTP request")

	reqCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	var bodyReader io.Reader
	if a.Body != "" {
		bodyReader = strings.NewReader(a.Body)
	}

	req, err := http.NewRequestWithContext(reqCtx, a.Method, a.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("Failed to close response body", "error", err)
		}
	}()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var body any
	if err := json.Unmarshal(rawBody, &body); err != nil {
		body = string(rawBody)
	}

	logger.Debug("HTTP request completed", "status_code", resp.StatusCode, "body_bytes", len(rawBody))

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("http request returned status %d", resp.StatusCode)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
		"headers":     headerMap(resp.Header),
	}, nil
}

func headerMap(header http.Header) map[string]any {
	result := make(map[string]any, len(header))
	for key := range header {
		result[key] = header.Get(key)
	}

	return result
}
