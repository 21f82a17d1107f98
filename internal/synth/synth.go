// Package synth assembles a persona-styled reply from retrieved candidate
// messages. An Assembler holds no per-call state and may be shared.
package synth

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/dgallion1/personabot/internal/ending"
	"github.com/dgallion1/personabot/internal/intent"
	"github.com/dgallion1/personabot/internal/persona"
	"github.com/dgallion1/personabot/internal/segment"
)

// DefaultFallback is returned whenever there is nothing to build a reply from.
const DefaultFallback = "わかりません。"

const (
	minDetailedTarget      = 100
	detailedLengthFactor   = 3
	defaultCasualThreshold = 40
	minParts               = 2
	partSeparator          = "\n"
)

var (
	ErrNilProfile     = errors.New("synth: persona profile is nil")
	ErrInvalidProfile = errors.New("synth: invalid persona profile")
)

// Mode is the composition strategy used for a reply.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeFallback Mode = "fallback"
	ModeGreeting Mode = "greeting"
	ModeCasual   Mode = "casual"
	ModeDetailed Mode = "detailed"
)

// ParseMode accepts "", "auto", "casual" and "detailed".
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeCasual:
		return ModeCasual, nil
	case ModeDetailed:
		return ModeDetailed, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Request is one synthesis call.
type Request struct {
	Query      string
	Candidates []string
	Profile    *persona.Profile
	Mode       Mode // ModeAuto when empty.
}

// Result is the reply plus how it was built.
type Result struct {
	Reply  string
	Intent intent.Class
	Mode   Mode
	Parts  []string
}

// Assembler turns candidates into a reply.
type Assembler struct {
	selector        ending.Selector
	classifier      intent.Classifier
	fallback        string
	greetingSamples bool
	actionableFirst bool
	casualThreshold float64
	pick            func(n int) int
	log             *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithSelector sets how an ending is chosen from the persona's list.
func WithSelector(s ending.Selector) Option {
	return func(a *Assembler) { a.selector = s }
}

// WithClassifier replaces the default intent markers.
func WithClassifier(c intent.Classifier) Option {
	return func(a *Assembler) { a.classifier = c }
}

// WithFallback replaces DefaultFallback. Blank strings are ignored.
func WithFallback(s string) Option {
	return func(a *Assembler) {
		if strings.TrimSpace(s) != "" {
			a.fallback = s
		}
	}
}

// WithGreetingSamples toggles answering greetings with a persona sample.
func WithGreetingSamples(on bool) Option {
	return func(a *Assembler) { a.greetingSamples = on }
}

// WithActionableFirst toggles moving advisory sentences to the front in
// detailed replies.
func WithActionableFirst(on bool) Option {
	return func(a *Assembler) { a.actionableFirst = on }
}

// WithCasualThreshold sets the average message length below which generic
// queries get a casual reply.
func WithCasualThreshold(n float64) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.casualThreshold = n
		}
	}
}

// WithRand sets the index picker used for greeting samples. pick(n) must
// return a value in [0, n).
func WithRand(pick func(n int) int) Option {
	return func(a *Assembler) {
		if pick != nil {
			a.pick = pick
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.log = l
		}
	}
}

// New returns an Assembler with production defaults: random ending
// selection, greeting samples on, advisory sentences first.
func New(opts ...Option) *Assembler {
	a := &Assembler{
		selector:        &ending.Random{},
		classifier:      intent.Default(),
		fallback:        DefaultFallback,
		greetingSamples: true,
		actionableFirst: true,
		casualThreshold: defaultCasualThreshold,
		pick:            rand.IntN,
		log:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fallback returns the reply used when nothing else applies.
func (a *Assembler) Fallback() string { return a.fallback }

// Synthesize builds the reply for query from candidates in the voice of p.
func (a *Assembler) Synthesize(query string, candidates []string, p *persona.Profile) (string, error) {
	res, err := a.Compose(Request{Query: query, Candidates: candidates, Profile: p})
	if err != nil {
		return "", err
	}
	return res.Reply, nil
}

// Compose is Synthesize with mode control and a description of the result.
func (a *Assembler) Compose(req Request) (Result, error) {
	if req.Profile == nil {
		return Result{}, ErrNilProfile
	}

	class := a.classifier.Classify(req.Query)
	res := Result{Intent: class}

	// Nothing to build from: the profile is never consulted.
	if len(req.Candidates) == 0 {
		res.Reply, res.Mode = a.fallback, ModeFallback
		return res, nil
	}
	if err := req.Profile.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeAuto
	}
	if mode == ModeAuto {
		mode = a.chooseMode(class, req.Candidates, req.Profile)
	}

	if mode == ModeGreeting && len(req.Profile.SampleGreetings) == 0 {
		mode = ModeCasual
	}

	switch mode {
	case ModeGreeting:
		res.Reply = req.Profile.SampleGreetings[a.pick(len(req.Profile.SampleGreetings))]
		res.Parts = []string{res.Reply}
	case ModeCasual:
		res.Reply, res.Parts = a.casual(req.Candidates, req.Profile)
	default:
		mode = ModeDetailed
		res.Reply, res.Parts = a.detailed(req.Candidates, req.Profile)
	}
	res.Mode = mode

	if res.Parts == nil || strings.TrimSpace(res.Reply) == "" {
		res.Reply, res.Mode, res.Parts = a.fallback, ModeFallback, nil
	}

	a.log.Debug("synthesized reply",
		"intent", class.String(),
		"mode", string(res.Mode),
		"candidates", len(req.Candidates),
		"parts", len(res.Parts),
		"length", segment.Len(res.Reply),
	)
	return res, nil
}

func (a *Assembler) chooseMode(class intent.Class, candidates []string, p *persona.Profile) Mode {
	switch class {
	case intent.Greeting:
		if a.greetingSamples && len(p.SampleGreetings) > 0 {
			return ModeGreeting
		}
		return ModeCasual
	case intent.Question:
		return ModeDetailed
	default:
		if len(candidates) >= minParts && p.AvgMessageLength >= a.casualThreshold {
			return ModeDetailed
		}
		return ModeCasual
	}
}

// TargetLength is the character budget of a detailed reply.
func TargetLength(p *persona.Profile) float64 {
	return max(p.AvgMessageLength*detailedLengthFactor, minDetailedTarget)
}
