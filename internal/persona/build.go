package persona

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/dgallion1/personabot/internal/intent"
	"github.com/dgallion1/personabot/internal/segment"
)

// ErrEmptyCorpus is returned when there is nothing to build a profile from.
var ErrEmptyCorpus = errors.New("no messages to build a persona from")

// BuildOptions bounds the sizes of the mined lists.
type BuildOptions struct {
	MaxWords       int
	MaxGreetings   int
	MaxEndings     int
	MaxSamples     int
	MinEndingCount int // An ending must recur this often to count as habitual.
}

// DefaultBuildOptions returns sensible defaults.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		MaxWords:       10,
		MaxGreetings:   5,
		MaxEndings:     5,
		MaxSamples:     10,
		MinEndingCount: 2,
	}
}

var wordPattern = regexp.MustCompile(`[\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{4E00}-\x{9FFF}a-zA-Z]+`)

// fallbackEndings is used when no ending recurs often enough.
var fallbackEndings = []string{"。"}

// Build mines a Profile from a persona's historical messages.
func Build(name string, messages []string, opts BuildOptions) (*Profile, error) {
	if opts.MaxWords <= 0 {
		opts.MaxWords = 10
	}
	if opts.MaxGreetings <= 0 {
		opts.MaxGreetings = 5
	}
	if opts.MaxEndings <= 0 {
		opts.MaxEndings = 5
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 10
	}
	if opts.MinEndingCount <= 0 {
		opts.MinEndingCount = 2
	}

	var texts []string
	for _, m := range messages {
		m = strings.TrimSpace(m)
		if m != "" {
			texts = append(texts, m)
		}
	}
	if len(texts) == 0 {
		return nil, ErrEmptyCorpus
	}

	total := 0
	for _, t := range texts {
		total += segment.Len(t)
	}
	avg := float64(total) / float64(len(texts))

	p := &Profile{
		Name:             Slugify(name),
		AvgMessageLength: avg,
		CommonWords:      commonWords(texts, opts.MaxWords),
		SampleGreetings:  sampleGreetings(texts, opts.MaxGreetings),
		CommonEndings:    commonEndings(texts, opts.MaxEndings, opts.MinEndingCount),
		SampleMessages:   sampleMessages(texts, avg, opts.MaxSamples),
	}
	return p, nil
}

type counted struct {
	value string
	count int
	first int
}

// topN ranks by count, breaking ties by first appearance.
func topN(counts map[string]*counted, n, minCount int) []string {
	list := make([]*counted, 0, len(counts))
	for _, c := range counts {
		if c.count >= minCount {
			list = append(list, c)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].first < list[j].first
	})
	if len(list) > n {
		list = list[:n]
	}
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.value
	}
	return out
}

func commonWords(texts []string, n int) []string {
	counts := map[string]*counted{}
	seq := 0
	for _, t := range texts {
		for _, w := range wordPattern.FindAllString(t, -1) {
			c, ok := counts[w]
			if !ok {
				c = &counted{value: w, first: seq}
				counts[w] = c
			}
			c.count++
			seq++
		}
	}
	return topN(counts, n, 1)
}

func sampleGreetings(texts []string, n int) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range texts {
		if len(out) >= n {
			break
		}
		if intent.Default().Classify(t) != intent.Greeting || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// endingOf returns the trailing kana of the last sentence (at most three
// characters) followed by the message's first closing terminator, if any.
func endingOf(message string) string {
	sentences := segment.Split(message)
	if len(sentences) == 0 {
		return ""
	}
	last := []rune(sentences[len(sentences)-1])
	start := len(last)
	for start > 0 && len(last)-start < 3 && unicode.Is(unicode.Hiragana, last[start-1]) {
		start--
	}
	tail := string(last[start:])
	if tail == "" {
		return ""
	}

	trimmed := strings.TrimRightFunc(message, unicode.IsSpace)
	rest := strings.TrimRightFunc(trimmed, segment.IsTerminator)
	if rest == trimmed {
		return tail
	}
	for _, r := range trimmed[len(rest):] {
		return tail + string(r)
	}
	return tail
}

func commonEndings(texts []string, n, minCount int) []string {
	counts := map[string]*counted{}
	for i, t := range texts {
		e := endingOf(t)
		if e == "" {
			continue
		}
		c, ok := counts[e]
		if !ok {
			c = &counted{value: e, first: i}
			counts[e] = c
		}
		c.count++
	}
	endings := topN(counts, n, minCount)
	if len(endings) == 0 {
		return append([]string(nil), fallbackEndings...)
	}
	return endings
}

func sampleMessages(texts []string, avg float64, n int) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range texts {
		if len(out) >= n {
			break
		}
		l := float64(segment.Len(t))
		if l < 3 || l > avg*2 || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
