package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/personabot/internal/persona"
	"github.com/dgallion1/personabot/internal/store"
)

func (s *Server) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.svc.Personas.ListPersonas(r.Context())
	if err != nil {
		jsonError(w, "failed to list personas: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if profiles == nil {
		profiles = []*persona.Profile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"personas": profiles})
}

func (s *Server) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, err := s.svc.Personas.GetPersona(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "persona not found: "+name, http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to load persona: "+err.Error(), http.StatusInternalServerError)
		return
	}
	count, err := s.svc.Personas.MessageCount(r.Context(), p.Name)
	if err != nil {
		jsonError(w, "failed to count messages: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, personaResponse{Profile: p, MessageCount: count})
}

type personaResponse struct {
	*persona.Profile
	MessageCount int `json:"message_count"`
}

// handlePutPersona stores a hand-written profile. The body is JSON, or YAML
// when the content type says so. The URL name wins over any name in the body.
func (s *Server) handlePutPersona(w http.ResponseWriter, r *http.Request) {
	name := persona.Slugify(chi.URLParam(r, "name"))
	if name == "" {
		jsonError(w, "invalid persona name", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	format := "json"
	if ct := r.Header.Get("Content-Type"); strings.Contains(ct, "yaml") {
		format = "yaml"
	}
	p, err := persona.Decode(data, format)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.Name = name

	if err := s.svc.Personas.SavePersona(r.Context(), p); err != nil {
		jsonError(w, "failed to save persona: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info("persona saved", "persona", name)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePersona(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := s.svc.Personas.DeletePersona(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "persona not found: "+name, http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to delete persona: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.svc.Knowledge.Remove(name)
	s.log.Info("persona deleted", "persona", name)
	w.WriteHeader(http.StatusNoContent)
}
