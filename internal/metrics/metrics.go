// Package metrics exposes Prometheus collectors and an in-process latency
// window for the reply service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for personabot.
type Metrics struct {
	// Reply metrics
	RepliesTotal    *prometheus.CounterVec
	ReplyDuration   *prometheus.HistogramVec
	ReplyLength     prometheus.Histogram
	RetrievalErrors *prometheus.CounterVec

	// Ingest metrics
	IngestJobs       *prometheus.CounterVec
	IngestMessages   prometheus.Counter
	EmbedRequests    *prometheus.CounterVec
	IngestQueueDepth prometheus.Gauge

	// Latency is the rolling window served at /api/stats/latency.
	Latency *Latency
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// New creates and registers all Prometheus metrics. Registration happens
// once per process; later calls return the same collectors.
func New() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			RepliesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "personabot_replies_total",
					Help: "Total number of replies by intent and composition mode",
				},
				[]string{"intent", "mode"},
			),
			ReplyDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "personabot_reply_duration_seconds",
					Help:    "Time to produce a reply, by stage",
					Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
				},
				[]string{"stage"},
			),
			ReplyLength: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "personabot_reply_length_chars",
					Help:    "Reply length in characters",
					Buckets: prometheus.ExponentialBuckets(8, 2, 8), // 8 to 1024
				},
			),
			RetrievalErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "personabot_retrieval_errors_total",
					Help: "Retrieval failures by kind",
				},
				[]string{"kind"},
			),
			IngestJobs: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "personabot_ingest_jobs_total",
					Help: "Finished ingest jobs by final status",
				},
				[]string{"status"},
			),
			IngestMessages: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "personabot_ingest_messages_total",
					Help: "Messages stored by ingest jobs",
				},
			),
			EmbedRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "personabot_embed_requests_total",
					Help: "Embedding batches by result",
				},
				[]string{"result"},
			),
			IngestQueueDepth: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "personabot_ingest_queue_depth",
					Help: "Ingest jobs waiting for a worker",
				},
			),
			Latency: NewLatency(time.Hour),
		}
	})
	return sharedMetrics
}

// ObserveStage records how long a reply stage took, in both the histogram
// and the rolling window.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.ReplyDuration.WithLabelValues(stage).Observe(d.Seconds())
	m.Latency.Record(stage, d)
}

// ObserveReply counts a finished reply.
func (m *Metrics) ObserveReply(intent, mode string, length int) {
	if m == nil {
		return
	}
	m.RepliesTotal.WithLabelValues(intent, mode).Inc()
	m.ReplyLength.Observe(float64(length))
}

// JobFinished counts an ingest job that reached a final status.
func (m *Metrics) JobFinished(status string, messages int) {
	if m == nil {
		return
	}
	m.IngestJobs.WithLabelValues(status).Inc()
	m.IngestMessages.Add(float64(messages))
}

// EmbedBatch counts one embedding batch.
func (m *Metrics) EmbedBatch(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.EmbedRequests.WithLabelValues(result).Inc()
}

// SetQueueDepth reports the ingest queue length.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.IngestQueueDepth.Set(float64(n))
}

// RetrievalFailed counts a failed retrieval by kind.
func (m *Metrics) RetrievalFailed(kind string) {
	if m == nil {
		return
	}
	m.RetrievalErrors.WithLabelValues(kind).Inc()
}
