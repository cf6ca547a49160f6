package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

// maxErrorBodyBytes bounds how much of an error response is read back into
// an error message.
const maxErrorBodyBytes = 4 << 10

// DoJSON performs an HTTP request with the session's client and decodes a
// JSON response into out (skipped when out is nil). Non-2xx responses come
// back as *core.QueryError carrying the status and a bounded excerpt of the
// body.
func (s *Session) DoJSON(req *http.Request, out any) error {
	resp, err := s.Client().Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &core.QueryError{
			Source:  s.Name(),
			Status:  resp.StatusCode,
			Message: string(bytes.TrimSpace(body)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.URL.Host, err)
	}
	return nil
}

// GetJSON issues a GET with optional headers and decodes the JSON response.
func (s *Session) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return s.DoJSON(req, out)
}

// PostJSON issues a POST with a JSON body and decodes the JSON response.
func (s *Session) PostJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return s.DoJSON(req, out)
}
