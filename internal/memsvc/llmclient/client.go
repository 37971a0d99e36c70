// Package llmclient implements the HTTP clients for the three external
// model surfaces: the Router's small LM, the Canonicalizer's teacher
// (large LM), and the embedding model. All three share one JSON
// POST/response envelope over net/http.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient is the minimal surface used against *http.Client, so tests
// can substitute a fake transport without a real listener.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config bundles the endpoints and timeout every client in this package
// reads from internal/memsvc/config.Config.
type Config struct {
	RouterURL    string
	TeacherURL   string
	EmbeddingURL string
	Timeout      time.Duration
}

func postJSON(ctx context.Context, client HTTPClient, url string, timeout time.Duration, reqBody any, respBody any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	buf, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("llmclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("llmclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("llmclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("llmclient: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("llmclient: status %d: %s", resp.StatusCode, string(raw))
	}
	if respBody == nil {
		return nil
	}
	if err := json.Unmarshal(raw, respBody); err != nil {
		return fmt.Errorf("llmclient: decode response: %w", err)
	}
	return nil
}
