package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/personabot/internal/chat"
	"github.com/dgallion1/personabot/internal/persona"
	"github.com/dgallion1/personabot/internal/retrieval"
	"github.com/dgallion1/personabot/internal/segment"
	"github.com/dgallion1/personabot/internal/store"
	"github.com/dgallion1/personabot/internal/synth"
)

type replyRequest struct {
	Query      string           `json:"query"`
	Candidates []string         `json:"candidates"`
	Persona    string           `json:"persona,omitempty"`
	Profile    *persona.Profile `json:"profile,omitempty"`
	Mode       string           `json:"mode,omitempty"`
}

type replyResponse struct {
	Reply  string   `json:"reply"`
	Intent string   `json:"intent"`
	Mode   string   `json:"mode"`
	Parts  []string `json:"parts,omitempty"`
}

// handleReply synthesizes from caller-supplied candidates. The profile is
// either inline or looked up by persona name.
func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, err := synth.ParseMode(req.Mode)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	profile := req.Profile
	if profile == nil {
		if strings.TrimSpace(req.Persona) == "" {
			jsonError(w, "persona or profile is required", http.StatusBadRequest)
			return
		}
		profile, err = s.svc.Personas.GetPersona(r.Context(), req.Persona)
		if err != nil {
			s.personaError(w, req.Persona, err)
			return
		}
	}

	start := time.Now()
	res, err := s.svc.Assembler.Compose(synth.Request{
		Query:      req.Query,
		Candidates: req.Candidates,
		Profile:    profile,
		Mode:       mode,
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.svc.Metrics.ObserveStage("synthesize", time.Since(start))
	s.svc.Metrics.ObserveReply(res.Intent.String(), string(res.Mode), segment.Len(res.Reply))

	writeJSON(w, http.StatusOK, replyResponse{
		Reply:  res.Reply,
		Intent: res.Intent.String(),
		Mode:   string(res.Mode),
		Parts:  res.Parts,
	})
}

type chatRequest struct {
	Persona string `json:"persona"`
	// Content is a raw chat message; it is answered only when it addresses
	// the bot. Query skips that check.
	Content string `json:"content,omitempty"`
	Query   string `json:"query,omitempty"`
	Mode    string `json:"mode,omitempty"`
	TopK    int    `json:"top_k,omitempty"`
}

type chatResponse struct {
	Addressed bool `json:"addressed"`
	chat.Reply
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Persona) == "" {
		jsonError(w, "persona is required", http.StatusBadRequest)
		return
	}
	mode, err := synth.ParseMode(req.Mode)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	query, addressed := req.Query, true
	if req.Content != "" {
		query, addressed = chat.ExtractQuery(req.Content, s.cfg.BotID)
	}
	if !addressed {
		writeJSON(w, http.StatusOK, chatResponse{Addressed: false})
		return
	}

	reply, err := s.svc.Responder.Respond(r.Context(), chat.Request{
		Persona: req.Persona,
		Query:   query,
		Mode:    mode,
		TopK:    req.TopK,
	})
	if err != nil {
		s.personaError(w, req.Persona, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Addressed: true, Reply: reply})
}

type searchRequest struct {
	Persona string `json:"persona"`
	Query   string `json:"query"`
	TopK    int    `json:"top_k,omitempty"`
}

type searchResponse struct {
	Reply   string            `json:"reply"`
	Matches []retrieval.Match `json:"matches"`
}

// handleSearch returns the raw similar-message listing.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	text, matches, err := s.svc.Responder.Similar(r.Context(), req.Persona, req.Query, req.TopK)
	if err != nil {
		s.log.Error("search failed", "persona", req.Persona, "error", err)
		jsonError(w, "search failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	if matches == nil {
		matches = []retrieval.Match{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Reply: text, Matches: matches})
}

// personaError maps lookup and retrieval failures to status codes.
func (s *Server) personaError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "persona not found: "+name, http.StatusNotFound)
		return
	}
	s.log.Error("reply failed", "persona", name, "error", err)
	jsonError(w, "reply failed: "+err.Error(), http.StatusBadGateway)
}
