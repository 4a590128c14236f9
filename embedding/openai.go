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

// OpenAIProvider talks to the OpenAI (or OpenAI-compatible) /v1/embeddings
// endpoint.
type OpenAIProvider struct {
	baseURL    string
	model      string
	dim        int
	apiKey     string
	httpClient *http.Client
}

// NewOpenAIProvider constructs a provider against baseURL (defaulting to
// api.openai.com) using apiKey for bearer authentication.
func NewOpenAIProvider(baseURL, model, apiKey string, dim int) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		dim:        dim,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// Dim implements Provider.
func (p *OpenAIProvider) Dim() int { return p.dim }

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed implements Provider.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(openAIEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build embed request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create embed request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

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

	var parsed openAIEmbedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewFatalError(fmt.Errorf("parse embed response: %w", err))
	}
	if len(parsed.Data) != len(texts) {
		return nil, NewFatalError(fmt.Errorf("embed response returned %d vectors for %d inputs", len(parsed.Data), len(texts)))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, NewFatalError(fmt.Errorf("embed response index %d out of range", item.Index))
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}
