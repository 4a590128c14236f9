package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LocalHTTPProvider talks to an Ollama-compatible embeddings endpoint
// (http://localhost:11434/api/embed by default).
type LocalHTTPProvider struct {
	baseURL    string
	model      string
	dim        int
	httpClient *http.Client
}

// NewLocalHTTPProvider constructs a provider for a local Ollama-style
// server. dim must match the configured model's output width; the server
// does not advertise it up front.
func NewLocalHTTPProvider(baseURL, model string, dim int) *LocalHTTPProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &LocalHTTPProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		dim:        dim,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Name implements Provider.
func (p *LocalHTTPProvider) Name() string { return "ollama" }

// Dim implements Provider.
func (p *LocalHTTPProvider) Dim() int { return p.dim }

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed implements Provider.
func (p *LocalHTTPProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build embed request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create embed request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("embed request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32*1024*1024))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read embed response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, NewTransientError(fmt.Errorf("embed API error (status %d): %s", resp.StatusCode, respBody))
		}
		return nil, NewFatalError(fmt.Errorf("embed API error (status %d): %s", resp.StatusCode, respBody))
	}

	var parsed ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewFatalError(fmt.Errorf("parse embed response: %w", err))
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, NewFatalError(fmt.Errorf("embed response returned %d vectors for %d inputs", len(parsed.Embeddings), len(texts)))
	}
	return parsed.Embeddings, nil
}
