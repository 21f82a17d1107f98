package retrieval

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// LexicalRetriever ranks messages by character-bigram overlap (Dice
// coefficient) with the query. It needs no embedding endpoint.
type LexicalRetriever struct {
	texts []string
	grams []map[string]int
}

func NewLexicalRetriever(texts []string) *LexicalRetriever {
	l := &LexicalRetriever{}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		l.texts = append(l.texts, t)
		l.grams = append(l.grams, bigrams(t))
	}
	return l
}

// Len returns the number of indexed messages.
func (l *LexicalRetriever) Len() int { return len(l.texts) }

func (l *LexicalRetriever) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if len(l.texts) == 0 {
		return nil, ErrNoKnowledge
	}
	if topK <= 0 {
		return nil, nil
	}
	q := bigrams(query)
	if len(q) == 0 {
		return nil, nil
	}

	var matches []Match
	for i, g := range l.grams {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s := dice(q, g); s > 0 {
			matches = append(matches, Match{Text: l.texts[i], Score: s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (l *LexicalRetriever) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	matches, err := l.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	return Texts(matches), nil
}

// bigrams counts adjacent rune pairs of the lowercased text, ignoring spaces
// and punctuation. A single remaining rune counts as its own gram.
func bigrams(s string) map[string]int {
	var runes []rune
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			runes = append(runes, r)
		}
	}
	out := make(map[string]int)
	if len(runes) == 1 {
		out[string(runes)]++
		return out
	}
	for i := 0; i+1 < len(runes); i++ {
		out[string(runes[i:i+2])]++
	}
	return out
}

func dice(a, b map[string]int) float64 {
	total, shared := 0, 0
	for g, n := range a {
		total += n
		shared += min(n, b[g])
	}
	for _, n := range b {
		total += n
	}
	if total == 0 {
		return 0
	}
	return 2 * float64(shared) / float64(total)
}
