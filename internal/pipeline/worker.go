package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/personabot/internal/metrics"
	"github.com/dgallion1/personabot/internal/parser"
	"github.com/dgallion1/personabot/internal/persona"
	"github.com/dgallion1/personabot/internal/retrieval"
	"github.com/dgallion1/personabot/internal/store"
)

// EmbedBatchSize is the number of messages sent per embedding call.
const EmbedBatchSize = 32

// PersonaStore persists ingest results.
type PersonaStore interface {
	SavePersona(ctx context.Context, p *persona.Profile) error
	ReplaceMessages(ctx context.Context, name string, records []store.Record) error
}

// Deps are the collaborators a worker writes to.
type Deps struct {
	Store    PersonaStore
	Registry *retrieval.Registry
	Embedder retrieval.Embedder // nil disables embedding
	Metrics  *metrics.Metrics   // nil disables metrics
}

// Worker processes a single ingest job.
type Worker struct {
	deps       Deps
	log        *slog.Logger
	parserOpts parser.Options
	buildOpts  persona.BuildOptions
	backoff    func(int) time.Duration

	maxConcurrentEmbed int
}

func NewWorker(deps Deps, log *slog.Logger, parserOpts parser.Options, maxEmbed int) *Worker {
	if maxEmbed <= 0 {
		maxEmbed = 1
	}
	return &Worker{
		deps:               deps,
		log:                log,
		parserOpts:         parserOpts,
		buildOpts:          persona.DefaultBuildOptions(),
		backoff:            Backoff,
		maxConcurrentEmbed: maxEmbed,
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "persona", job.Persona, "filename", job.Filename)
	stored := 0
	defer func() {
		w.deps.Metrics.JobFinished(string(job.Snapshot().Status), stored)
	}()

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFileWithOptions(job.Filename, w.parserOpts)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	c, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	job.releaseFileData()
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	messages := c.ByAuthor(job.Author)
	job.SetMessages(c.Len(), len(messages))
	log.Info("parsed export", "messages", c.Len(), "used", len(messages), "authors", len(c.Authors()))
	if len(messages) == 0 {
		msg := "no messages found"
		if job.Author != "" {
			msg = fmt.Sprintf("no messages by author %q", job.Author)
		}
		job.AddError(msg)
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	texts := make([]string, len(messages))
	records := make([]store.Record, len(messages))
	for i, m := range messages {
		texts[i] = m.Text
		records[i] = store.Record{Text: m.Text, Author: m.Author, Channel: m.Channel}
	}
	job.SetContentHash(ContentHashHex([]byte(strings.Join(texts, "\n"))))

	// Phase 2: Build the persona profile.
	job.SetStatus(StatusProfiling, "profiling")
	profile, err := persona.Build(job.Persona, texts, w.buildOpts)
	if err != nil {
		log.Error("profile build failed", "error", err)
		job.AddError(fmt.Sprintf("profile: %s", err))
		job.SetStatus(StatusFailed, "profiling")
		return
	}
	log.Info("built profile",
		"avg_length", profile.AvgMessageLength,
		"endings", len(profile.CommonEndings),
		"greetings", len(profile.SampleGreetings))

	// Phase 3: Embed messages with bounded concurrency.
	hadErrors := false
	if w.deps.Embedder != nil {
		job.SetStatus(StatusEmbedding, "embedding")
		failed, err := w.embed(ctx, log, job, records)
		if err != nil {
			log.Error("embedding aborted", "error", err)
			job.AddError(fmt.Sprintf("embed: %s", err))
			job.SetStatus(StatusFailed, "embedding")
			return
		}
		hadErrors = failed > 0
	}

	// Phase 4: Store profile and knowledge base, then publish.
	job.SetStatus(StatusStoring, "storing")
	if err := w.deps.Store.SavePersona(ctx, profile); err != nil {
		log.Error("save persona failed", "error", err)
		job.AddError(fmt.Sprintf("store persona: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}
	if err := w.deps.Store.ReplaceMessages(ctx, profile.Name, records); err != nil {
		log.Error("store messages failed", "error", err)
		job.AddError(fmt.Sprintf("store messages: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}
	stored = len(records)
	job.SetStored(stored)

	if w.deps.Registry != nil {
		if k := Knowledge(w.deps.Embedder, records); k != nil {
			w.deps.Registry.Set(profile.Name, k)
		}
	}
	log.Info("ingest complete", "stored", stored, "errors", hadErrors)

	if hadErrors {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

// embed fills records[i].Embedding batch by batch. A batch that still fails
// after retries is recorded on the job and counted; only cancellation
// aborts the whole phase.
func (w *Worker) embed(ctx context.Context, log *slog.Logger, job *Job, records []store.Record) (failed int, err error) {
	var batches [][2]int
	for start := 0; start < len(records); start += EmbedBatchSize {
		batches = append(batches, [2]int{start, min(start+EmbedBatchSize, len(records))})
	}
	job.SetBatches(len(batches))

	results := make([]error, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.maxConcurrentEmbed)
	for bi, b := range batches {
		g.Go(func() error {
			texts := make([]string, 0, b[1]-b[0])
			for _, r := range records[b[0]:b[1]] {
				texts = append(texts, r.Text)
			}

			var vecs [][]float32
			start := time.Now()
			err := Retry(gctx, w.backoff, func(attempt int, err error) {
				log.Warn("retryable embedding error", "batch", bi, "attempt", attempt, "error", err)
			}, func() error {
				var err error
				vecs, err = w.deps.Embedder.Embed(gctx, texts)
				if err == nil && len(vecs) != len(texts) {
					err = fmt.Errorf("got %d vectors for %d texts", len(vecs), len(texts))
				}
				return err
			})
			w.deps.Metrics.ObserveStage("embed", time.Since(start))
			w.deps.Metrics.EmbedBatch(err == nil)

			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				results[bi] = err
				return nil
			}
			for i, v := range vecs {
				records[b[0]+i].Embedding = v
			}
			job.IncrBatchesEmbedded()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	for bi, err := range results {
		if err != nil {
			log.Error("embedding batch failed", "batch", bi, "error", err)
			job.AddError(fmt.Sprintf("batch %d: %s", bi, err))
			failed++
		}
	}
	return failed, nil
}
