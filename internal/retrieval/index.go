package retrieval

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Record is one embedded message, in the embeddings file format.
type Record struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// Index is an in-memory cosine index over embedded messages.
type Index struct {
	mu      sync.RWMutex
	records []Record
}

// NewIndex builds an index from records. Records without text or vector are
// dropped.
func NewIndex(records []Record) *Index {
	idx := &Index{}
	idx.Add(records...)
	return idx
}

// LoadEmbeddingsFile reads a JSON array of {"text", "embedding"} objects.
func LoadEmbeddingsFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read embeddings: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode embeddings %s: %w", path, err)
	}
	return NewIndex(records), nil
}

// Save writes the index in the embeddings file format.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	data, err := json.Marshal(idx.records)
	idx.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode embeddings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create embeddings dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Add appends records.
func (idx *Index) Add(records ...Record) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, r := range records {
		if r.Text == "" || len(r.Embedding) == 0 {
			continue
		}
		idx.records = append(idx.records, r)
	}
}

// Len returns the number of records.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// Texts returns the indexed texts in insertion order.
func (idx *Index) Texts() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, len(idx.records))
	for i, r := range idx.records {
		out[i] = r.Text
	}
	return out
}

// Search returns the k records most similar to vec. Records whose dimension
// differs from vec are skipped.
func (idx *Index) Search(vec []float32, k int) []Match {
	if k <= 0 {
		return nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matches := make([]Match, 0, len(idx.records))
	for _, r := range idx.records {
		score, ok := Cosine(vec, r.Embedding)
		if !ok {
			continue
		}
		matches = append(matches, Match{Text: r.Text, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Cosine returns the cosine similarity of a and b. ok is false when the
// dimensions differ or either vector is empty.
func Cosine(a, b []float32) (score float64, ok bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, true
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}
