package retrieval

import (
	"context"
	"fmt"
)

// VectorRetriever embeds the query and searches an Index.
type VectorRetriever struct {
	Embedder Embedder
	Index    *Index
}

func NewVectorRetriever(e Embedder, idx *Index) *VectorRetriever {
	return &VectorRetriever{Embedder: e, Index: idx}
}

func (v *VectorRetriever) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if v.Index == nil || v.Index.Len() == 0 {
		return nil, ErrNoKnowledge
	}
	vecs, err := v.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	return v.Index.Search(vecs[0], topK), nil
}

func (v *VectorRetriever) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	matches, err := v.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	return Texts(matches), nil
}
