package pipeline

import (
	"github.com/dgallion1/personabot/internal/retrieval"
	"github.com/dgallion1/personabot/internal/store"
)

// Knowledge builds the searcher for a persona's stored messages: a vector
// index over the embedded records when an embedder is available, otherwise
// bigram ranking over all texts. Nil when there are no records.
func Knowledge(e retrieval.Embedder, records []store.Record) retrieval.Searcher {
	if len(records) == 0 {
		return nil
	}
	if e != nil {
		embedded := make([]retrieval.Record, 0, len(records))
		for _, r := range records {
			if len(r.Embedding) > 0 {
				embedded = append(embedded, retrieval.Record{Text: r.Text, Embedding: r.Embedding})
			}
		}
		if len(embedded) > 0 {
			return retrieval.NewVectorRetriever(e, retrieval.NewIndex(embedded))
		}
	}
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	return retrieval.NewLexicalRetriever(texts)
}
