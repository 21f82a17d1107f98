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

// RemoteClient queries an external search service over HTTP.
type RemoteClient struct {
	baseURL    string
	apiKey     string
	persona    string
	httpClient *http.Client
}

func NewRemoteClient(baseURL, apiKey string) *RemoteClient {
	return &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ForPersona returns a client that scopes searches to one persona. The
// underlying connection pool is shared.
func (c *RemoteClient) ForPersona(name string) *RemoteClient {
	cp := *c
	cp.persona = name
	return &cp
}

// SearchRequest is the body for POST /search.
type SearchRequest struct {
	Query   string `json:"query"`
	TopK    int    `json:"top_k"`
	Persona string `json:"persona,omitempty"`
}

// SearchResponse is the response from POST /search.
type SearchResponse struct {
	Results []Match `json:"results"`
}

func (c *RemoteClient) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	body, err := json.Marshal(SearchRequest{Query: query, TopK: topK, Persona: c.persona})
	if err != nil {
		return nil, fmt.Errorf("marshal search: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoKnowledge
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search: status %d: %s", resp.StatusCode, string(respBody))
	}

	var result SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}
	if topK > 0 && len(result.Results) > topK {
		result.Results = result.Results[:topK]
	}
	return result.Results, nil
}

func (c *RemoteClient) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	matches, err := c.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	return Texts(matches), nil
}

// Close releases idle connections.
func (c *RemoteClient) Close() {
	c.httpClient.CloseIdleConnections()
}
