package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpGenerator calls an external completion endpoint over JSON.
type httpGenerator struct {
	endpoint         string
	client           *http.Client
	maxResponseBytes int64
}

// NewHTTPGenerator creates a Generator backed by a remote completion service.
func NewHTTPGenerator(endpoint string, timeout time.Duration) Generator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &httpGenerator{
		endpoint:         endpoint,
		maxResponseBytes: 4 * 1024 * 1024,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type completionRequest struct {
	Prompt string `json:"prompt"`
}

type completionResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func (g *httpGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call completion endpoint: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, g.maxResponseBytes+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}
	if int64(len(respBody)) > g.maxResponseBytes {
		return "", fmt.Errorf("completion response exceeded limit (%d bytes)", g.maxResponseBytes)
	}

	if resp.StatusCode >= 400 {
		var errResp completionResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return "", fmt.Errorf("completion endpoint error: %s", errResp.Error)
		}
		return "", fmt.Errorf("completion endpoint status %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if out.Text == "" {
		return "", fmt.Errorf("completion response had no text")
	}
	return out.Text, nil
}
