package persona

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Profile is the stylistic fingerprint of the persona being mimicked. It is
// treated as read-only once built and may be shared across goroutines.
type Profile struct {
	Name             string   `yaml:"name" json:"name"`
	CommonEndings    []string `yaml:"common_endings" json:"common_endings"`
	AvgMessageLength float64  `yaml:"avg_message_length" json:"avg_message_length"`
	CommonWords      []string `yaml:"common_words,omitempty" json:"common_words,omitempty"`
	SampleGreetings  []string `yaml:"sample_greetings,omitempty" json:"sample_greetings,omitempty"`
	SampleMessages   []string `yaml:"sample_messages,omitempty" json:"sample_messages,omitempty"`
}

// ErrInvalidLength is returned by Validate for a non-positive or non-finite
// average message length.
var ErrInvalidLength = errors.New("avg_message_length must be a positive number")

// Validate checks the invariants the synthesis pipeline relies on.
func (p *Profile) Validate() error {
	if p == nil {
		return errors.New("profile is nil")
	}
	if math.IsNaN(p.AvgMessageLength) || math.IsInf(p.AvgMessageLength, 0) || p.AvgMessageLength <= 0 {
		return fmt.Errorf("%w (got %v)", ErrInvalidLength, p.AvgMessageLength)
	}
	return nil
}

// DefaultEnding returns the first habitual ending, or "" if there is none.
func (p *Profile) DefaultEnding() string {
	if len(p.CommonEndings) == 0 {
		return ""
	}
	return p.CommonEndings[0]
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify converts a persona name to a URL/path-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}
