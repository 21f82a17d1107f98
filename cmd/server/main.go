package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dgallion1/personabot/internal/api"
	"github.com/dgallion1/personabot/internal/chat"
	"github.com/dgallion1/personabot/internal/config"
	"github.com/dgallion1/personabot/internal/ending"
	"github.com/dgallion1/personabot/internal/metrics"
	"github.com/dgallion1/personabot/internal/persona"
	"github.com/dgallion1/personabot/internal/pipeline"
	"github.com/dgallion1/personabot/internal/retrieval"
	"github.com/dgallion1/personabot/internal/store"
	"github.com/dgallion1/personabot/internal/synth"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage.
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if cfg.PersonaDir != "" {
		if err := importProfiles(ctx, st, cfg.PersonaDir, log); err != nil {
			log.Error("load persona dir", "dir", cfg.PersonaDir, "error", err)
			os.Exit(1)
		}
	}

	// Initialize clients.
	var embedder *retrieval.HTTPEmbedder
	if cfg.EmbeddingsEnabled() {
		embedder, err = retrieval.NewHTTPEmbedder(cfg.EmbedProvider, cfg.EmbedURL, cfg.EmbedModel, cfg.EmbedAPIKey)
		if err != nil {
			log.Error("init embedder", "error", err)
			os.Exit(1)
		}
		defer embedder.Close()
		log.Info("embeddings enabled", "embedder", embedder.Name())
	}
	var remote *retrieval.RemoteClient
	if cfg.RetrievalURL != "" {
		remote = retrieval.NewRemoteClient(cfg.RetrievalURL, cfg.RetrievalAPIKey)
		defer remote.Close()
	}

	var emb retrieval.Embedder
	if embedder != nil {
		emb = embedder
	}
	knowledge, err := loadKnowledge(ctx, st, emb, remote, cfg.EmbeddingsPath, log)
	if err != nil {
		log.Error("load knowledge", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	assembler := synth.New(
		synth.WithSelector(ending.ForName(cfg.EndingSelection)),
		synth.WithCasualThreshold(cfg.CasualThreshold),
		synth.WithGreetingSamples(cfg.GreetingSamples),
		synth.WithLogger(log),
	)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, pipeline.Deps{
		Store:    st,
		Registry: knowledge,
		Embedder: emb,
		Metrics:  m,
	}, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(api.Services{
		Orchestrator: orch,
		Responder:    chat.NewResponder(st, knowledge, assembler, cfg.TopK, m, log),
		Assembler:    assembler,
		Personas:     st,
		Knowledge:    knowledge,
		Metrics:      m,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	idle := make(chan struct{})
	go func() {
		defer close(idle)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting personabot", "port", cfg.Port, "personas", len(knowledge.Names()))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-idle
}

// importProfiles copies hand-written profiles from dir into the store.
func importProfiles(ctx context.Context, st *store.Store, dir string, log *slog.Logger) error {
	profiles, err := persona.LoadDir(ctx, dir)
	if err != nil {
		return err
	}
	for name, p := range profiles {
		if err := st.SavePersona(ctx, p); err != nil {
			return err
		}
		log.Info("imported persona profile", "persona", name)
	}
	return nil
}

// loadKnowledge builds the registry from stored messages. The embeddings
// file, when set, becomes the knowledge shared by every persona; a remote
// search service serves personas that have nothing stored locally.
func loadKnowledge(ctx context.Context, st *store.Store, emb retrieval.Embedder, remote *retrieval.RemoteClient, embeddingsPath string, log *slog.Logger) (*retrieval.Registry, error) {
	reg := retrieval.NewRegistry()

	if embeddingsPath != "" {
		idx, err := retrieval.LoadEmbeddingsFile(embeddingsPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Warn("embeddings file not found", "path", embeddingsPath)
		case err != nil:
			return nil, err
		case emb != nil:
			reg.SetDefault(retrieval.NewVectorRetriever(emb, idx))
			log.Info("loaded embeddings", "path", embeddingsPath, "records", idx.Len())
		default:
			// No embedder for queries; rank the same texts lexically.
			reg.SetDefault(retrieval.NewLexicalRetriever(idx.Texts()))
			log.Info("loaded embeddings without embedder", "path", embeddingsPath, "records", idx.Len())
		}
	}

	profiles, err := st.ListPersonas(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		records, err := st.Messages(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		switch k := pipeline.Knowledge(emb, records); {
		case k != nil:
			reg.Set(p.Name, k)
		case remote != nil:
			reg.Set(p.Name, remote.ForPersona(p.Name))
		}
	}
	if remote != nil {
		if _, ok := reg.Get(""); !ok {
			reg.SetDefault(remote)
		}
	}
	return reg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
