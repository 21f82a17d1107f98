// Package chat answers chat messages addressed to the bot in a persona's
// voice: it extracts the query, retrieves similar past messages and hands
// them to the synthesizer.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/personabot/internal/metrics"
	"github.com/dgallion1/personabot/internal/persona"
	"github.com/dgallion1/personabot/internal/retrieval"
	"github.com/dgallion1/personabot/internal/segment"
	"github.com/dgallion1/personabot/internal/synth"
)

const (
	EmptyQueryReply  = "質問内容を入力してください。"
	NoKnowledgeReply = "知識データが未生成です。まずメッセージ取得・整形を行ってください。"

	AskPrefix     = "!ask "
	similarHeader = "過去の類似メッセージ:"
	defaultTopK   = 3
)

// ExtractQuery returns the question in content and whether the bot was
// addressed at all, either by the !ask command or a <@botID> mention.
func ExtractQuery(content, botID string) (query string, addressed bool) {
	mentions := []string{}
	if botID != "" {
		mentions = append(mentions, "<@"+botID+">", "<@!"+botID+">")
	}

	addressed = strings.HasPrefix(content, AskPrefix)
	for _, m := range mentions {
		if strings.Contains(content, m) {
			addressed = true
		}
	}
	if !addressed {
		return "", false
	}

	query = strings.ReplaceAll(content, AskPrefix, "")
	for _, m := range mentions {
		query = strings.ReplaceAll(query, m, "")
	}
	return strings.TrimSpace(query), true
}

// Personas resolves a persona name to its profile.
type Personas interface {
	GetPersona(ctx context.Context, name string) (*persona.Profile, error)
}

// Request is one question put to a persona.
type Request struct {
	Persona string
	Query   string
	Mode    synth.Mode
	TopK    int // zero uses the responder default
}

// Reply is the answer plus what went into it.
type Reply struct {
	Text       string   `json:"reply"`
	Intent     string   `json:"intent,omitempty"`
	Mode       string   `json:"mode,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}

// Responder wires persona lookup, retrieval and synthesis together.
type Responder struct {
	personas  Personas
	knowledge *retrieval.Registry
	assembler *synth.Assembler
	metrics   *metrics.Metrics
	log       *slog.Logger
	topK      int
}

func NewResponder(personas Personas, knowledge *retrieval.Registry, asm *synth.Assembler, topK int, m *metrics.Metrics, log *slog.Logger) *Responder {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Responder{
		personas:  personas,
		knowledge: knowledge,
		assembler: asm,
		metrics:   m,
		log:       log,
		topK:      topK,
	}
}

// Respond answers req.Query in the voice of req.Persona. Canned replies are
// returned for an empty query and for a persona without knowledge.
func (r *Responder) Respond(ctx context.Context, req Request) (Reply, error) {
	start := time.Now()
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Reply{Text: EmptyQueryReply}, nil
	}

	profile, err := r.personas.GetPersona(ctx, req.Persona)
	if err != nil {
		return Reply{}, fmt.Errorf("persona %q: %w", req.Persona, err)
	}

	matches, err := r.search(ctx, req.Persona, query, r.resolveTopK(req.TopK))
	if errors.Is(err, retrieval.ErrNoKnowledge) {
		return Reply{Text: NoKnowledgeReply}, nil
	}
	if err != nil {
		return Reply{}, err
	}
	candidates := retrieval.Texts(matches)

	synthStart := time.Now()
	res, err := r.assembler.Compose(synth.Request{
		Query:      query,
		Candidates: candidates,
		Profile:    profile,
		Mode:       req.Mode,
	})
	if err != nil {
		return Reply{}, err
	}
	r.metrics.ObserveStage("synthesize", time.Since(synthStart))
	r.metrics.ObserveStage("total", time.Since(start))
	r.metrics.ObserveReply(res.Intent.String(), string(res.Mode), segment.Len(res.Reply))

	r.log.Debug("replied",
		"persona", req.Persona,
		"candidates", len(candidates),
		"intent", res.Intent.String(),
		"mode", string(res.Mode),
	)
	return Reply{
		Text:       res.Reply,
		Intent:     res.Intent.String(),
		Mode:       string(res.Mode),
		Candidates: candidates,
	}, nil
}

// HandleMessage answers a raw chat message. addressed is false when the
// message was not meant for the bot; the reply is then empty.
func (r *Responder) HandleMessage(ctx context.Context, personaName, content, botID string) (reply Reply, addressed bool, err error) {
	query, addressed := ExtractQuery(content, botID)
	if !addressed {
		return Reply{}, false, nil
	}
	reply, err = r.Respond(ctx, Request{Persona: personaName, Query: query})
	return reply, true, err
}

// Similar lists the past messages closest to query without restyling them.
func (r *Responder) Similar(ctx context.Context, personaName, query string, topK int) (string, []retrieval.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return EmptyQueryReply, nil, nil
	}
	matches, err := r.search(ctx, personaName, query, r.resolveTopK(topK))
	if errors.Is(err, retrieval.ErrNoKnowledge) {
		return NoKnowledgeReply, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	if len(matches) == 0 {
		return r.assembler.Fallback(), nil, nil
	}
	return FormatSimilar(retrieval.Texts(matches)), matches, nil
}

// FormatSimilar renders texts as a bulleted listing under a header.
func FormatSimilar(texts []string) string {
	var b strings.Builder
	b.WriteString(similarHeader)
	for _, t := range texts {
		b.WriteString("\n- ")
		b.WriteString(t)
	}
	return b.String()
}

func (r *Responder) search(ctx context.Context, personaName, query string, topK int) ([]retrieval.Match, error) {
	s, ok := r.knowledge.Get(personaName)
	if !ok {
		return nil, retrieval.ErrNoKnowledge
	}

	start := time.Now()
	matches, err := s.Search(ctx, query, topK)
	r.metrics.ObserveStage("retrieve", time.Since(start))
	if err != nil && !errors.Is(err, retrieval.ErrNoKnowledge) {
		r.metrics.RetrievalFailed("search")
		r.log.Warn("retrieval failed", "persona", personaName, "error", err)
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	return matches, err
}

func (r *Responder) resolveTopK(k int) int {
	if k > 0 {
		return k
	}
	return r.topK
}
