// Package retrieval finds past messages similar to a query. The synthesis
// core treats its output as an opaque, already-ranked list.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNoKnowledge is returned when there is nothing to search.
var ErrNoKnowledge = errors.New("no knowledge data available")

// Retriever returns up to topK past messages ranked by similarity.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]string, error)
}

// Searcher is a Retriever that also exposes scores.
type Searcher interface {
	Retriever
	Search(ctx context.Context, query string, topK int) ([]Match, error)
}

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Match is a scored search hit.
type Match struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Texts drops the scores.
func Texts(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Text
	}
	return out
}

// RetryableError indicates a transient upstream failure (429 or 5xx).
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Registry maps persona names to their knowledge. A persona without its own
// entry uses the default, if one is set.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]Searcher
	fallback Searcher
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Searcher)}
}

// Set installs or replaces the knowledge for a persona.
func (r *Registry) Set(name string, s Searcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[strings.ToLower(name)] = s
}

// Remove drops a persona's own knowledge.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byName, strings.ToLower(name))
}

// SetDefault installs the knowledge shared by all personas.
func (r *Registry) SetDefault(s Searcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = s
}

// Get returns the knowledge for name, falling back to the default.
func (r *Registry) Get(name string) (Searcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.byName[strings.ToLower(name)]; ok {
		return s, true
	}
	return r.fallback, r.fallback != nil
}

// Names lists personas with their own knowledge.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	return out
}
