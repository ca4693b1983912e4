package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teilomillet/jobsum/utils"
)

const maxErrorBody = 512

// StatusError is a non-2xx answer from an HTTP backend.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: status code %d: %s", e.Provider, e.StatusCode, e.Body)
}

// httpBackend carries the plumbing shared by the JSON-over-HTTP providers.
type httpBackend struct {
	name         string
	client       *http.Client
	extraHeaders map[string]string
	logger       utils.Logger
}

func newHTTPBackend(name string, extraHeaders map[string]string) httpBackend {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return httpBackend{
		name:         name,
		client:       &http.Client{Timeout: 2 * time.Minute},
		extraHeaders: extraHeaders,
		logger:       utils.NewLogger(utils.LogLevelWarn),
	}
}

func (b *httpBackend) setTimeout(timeout time.Duration) {
	if timeout > 0 {
		b.client.Timeout = timeout
	}
}

// do sends payload (JSON encoded unless nil) and returns the body of a 2xx
// response. Other statuses come back as *StatusError.
func (b *httpBackend) do(ctx context.Context, method, url string, headers map[string]string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		b.logger.Debug("Request body", "provider", b.name, "url", url, "body", string(data))
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for k, v := range b.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b.logger.Debug("API error", "provider", b.name, "status", resp.StatusCode, "body", string(respBody))
		return nil, &StatusError{Provider: b.name, StatusCode: resp.StatusCode, Body: truncateBody(respBody)}
	}
	return respBody, nil
}

func (b *httpBackend) close() {
	b.client.CloseIdleConnections()
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}

func trimEndpoint(endpoint string) string {
	return strings.TrimRight(endpoint, "/")
}
