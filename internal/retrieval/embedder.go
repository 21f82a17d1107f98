package retrieval

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

// Embedding providers.
const (
	ProviderNone   = "none"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// HTTPEmbedder calls an Ollama (/api/embeddings) or OpenAI-compatible
// (/v1/embeddings) endpoint.
type HTTPEmbedder struct {
	provider   string
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPEmbedder returns an embedder for provider. Empty baseURL and model
// take the provider's usual local defaults.
func NewHTTPEmbedder(provider, baseURL, model, apiKey string) (*HTTPEmbedder, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	switch provider {
	case ProviderOllama:
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if model == "" {
			model = "nomic-embed-text"
		}
	case ProviderOpenAI:
		if baseURL == "" {
			baseURL = "https://api.openai.com"
		}
		if model == "" {
			model = "text-embedding-3-small"
		}
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
	return &HTTPEmbedder{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		model:    model,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Name identifies the provider and model.
func (e *HTTPEmbedder) Name() string {
	return e.provider + ":" + e.model
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per text. Ollama has no batch API, so texts are
// sent one at a time there.
func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if e.provider == ProviderOpenAI {
		return e.embedOpenAI(ctx, texts)
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		var resp ollamaEmbedResponse
		if err := e.post(ctx, "/api/embeddings", ollamaEmbedRequest{Model: e.model, Prompt: t}, &resp); err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		if len(resp.Embedding) == 0 {
			return nil, fmt.Errorf("embed text %d: empty embedding", i)
		}
		out[i] = resp.Embedding
	}
	return out, nil
}

func (e *HTTPEmbedder) embedOpenAI(ctx context.Context, texts []string) ([][]float32, error) {
	var resp openAIEmbedResponse
	if err := e.post(ctx, "/v1/embeddings", openAIEmbedRequest{Model: e.model, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (e *HTTPEmbedder) post(ctx context.Context, path string, reqBody, result any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s embeddings: %w", e.provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s embeddings status %d: %s", e.provider, resp.StatusCode, truncate(string(respBody), 200))
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Close releases resources.
func (e *HTTPEmbedder) Close() {
	e.httpClient.CloseIdleConnections()
}
