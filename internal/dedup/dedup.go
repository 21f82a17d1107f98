// Package dedup detects near-duplicate sentences with a coarse
// bag-of-characters overlap ratio.
package dedup

import (
	"strings"

	"github.com/dgallion1/personabot/internal/segment"
)

const (
	// Threshold is the overlap ratio above which two sentences are too similar.
	Threshold = 0.6
	// MinLength is the shortest sentence (in characters) worth keeping.
	MinLength = 3
)

// Similarity counts the characters of a that also occur anywhere in b and
// divides by the longer of the two lengths. Position and multiplicity in b
// are ignored.
func Similarity(a, b string) float64 {
	la, lb := segment.Len(a), segment.Len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	common := 0
	for _, r := range a {
		if strings.ContainsRune(b, r) {
			common++
		}
	}
	return float64(common) / float64(max(la, lb))
}

// IsNearDuplicate reports whether candidate is too similar to any of used.
func IsNearDuplicate(candidate string, used []string) bool {
	for _, u := range used {
		if Similarity(candidate, u) > Threshold {
			return true
		}
	}
	return false
}

// Set holds the sentences already accepted into a reply.
type Set struct {
	items []string
}

// Accept records sentence and returns true unless it is shorter than
// MinLength or a near-duplicate of something already accepted.
func (s *Set) Accept(sentence string) bool {
	if segment.Len(sentence) < MinLength {
		return false
	}
	if IsNearDuplicate(sentence, s.items) {
		return false
	}
	s.items = append(s.items, sentence)
	return true
}

// Len returns the number of accepted sentences.
func (s *Set) Len() int { return len(s.items) }

// Items returns the accepted sentences in acceptance order.
func (s *Set) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
