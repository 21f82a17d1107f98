// Package ending applies a persona's habitual sentence ending to a reply
// without ever stacking the same ending twice.
package ending

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/dgallion1/personabot/internal/segment"
)

// Selector picks one ending from a non-empty candidate list.
type Selector interface {
	Select(candidates []string) string
}

// First always picks the first candidate, the persona's default ending.
type First struct{}

func (First) Select(candidates []string) string {
	return candidates[0]
}

// Random picks uniformly. The zero value uses the global math/rand/v2 source
// and is safe for concurrent use.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeded returns a Random selector with a reproducible sequence.
func NewSeeded(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *Random) Select(candidates []string) string {
	if r == nil || r.rng == nil {
		return candidates[rand.IntN(len(candidates))]
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return candidates[r.rng.IntN(len(candidates))]
}

// ForName maps a configuration value to a selector. Unknown names fall back to
// random selection.
func ForName(name string) Selector {
	if strings.EqualFold(strings.TrimSpace(name), "first") {
		return First{}
	}
	return &Random{}
}

// Apply appends one of candidates to base.
//
// If the chosen ending, stripped of punctuation, is already the literal tail
// of base, base is returned untouched (punctuation included). Only exact
// suffixes are detected: "確認します" + "しますか？" still yields
// "確認しますしますか？".
func Apply(base string, candidates []string, sel Selector) string {
	if len(candidates) == 0 {
		return base
	}
	if sel == nil {
		sel = First{}
	}

	trimmedBase := segment.TrimEnd(base)
	e := sel.Select(candidates)
	trimmedEnding := segment.TrimEnd(e)

	if trimmedEnding == "" {
		// Pure punctuation ending.
		return trimmedBase + e
	}
	if strings.HasSuffix(trimmedBase, trimmedEnding) {
		return base
	}
	return trimmedBase + e
}
