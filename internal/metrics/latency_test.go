package metrics

import (
	"testing"
	"time"
)

func TestLatencySnapshotPercentiles(t *testing.T) {
	l := NewLatency(time.Hour)
	for _, ms := range []int{100, 200, 300, 400, 500} {
		l.Record("synthesize", time.Duration(ms)*time.Millisecond)
	}

	snap, ok := l.Snapshot()["synthesize"]
	if !ok {
		t.Fatal("expected synthesize stage in snapshot")
	}
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 {
		t.Fatalf("expected min=100, got %f", snap.MinMs)
	}
	if snap.MaxMs != 500 {
		t.Fatalf("expected max=500, got %f", snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestLatencyStagesAreSeparate(t *testing.T) {
	l := NewLatency(time.Hour)
	l.Record("retrieve", 2*time.Millisecond)
	l.Record("synthesize", 500*time.Microsecond)

	snap := l.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(snap))
	}
	if snap["synthesize"].MaxMs != 0.5 {
		t.Fatalf("expected sub-millisecond precision, got %f", snap["synthesize"].MaxMs)
	}
}

func TestLatencyPrunesExpiredSamples(t *testing.T) {
	l := NewLatency(10 * time.Millisecond)
	l.Record("retrieve", 100*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	if snap := l.Snapshot(); len(snap) != 0 {
		t.Fatalf("expected no stages after prune, got %d", len(snap))
	}

	l.Record("retrieve", 200*time.Millisecond)
	snap := l.Snapshot()["retrieve"]
	if snap.Count != 1 {
		t.Fatalf("expected count=1 for fresh sample, got %d", snap.Count)
	}
	if snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected min=max=200, got min=%f max=%f", snap.MinMs, snap.MaxMs)
	}
}

func TestLatencyRecordClampsNegativeDuration(t *testing.T) {
	l := NewLatency(time.Hour)
	l.Record("embed", -10*time.Millisecond)
	snap := l.Snapshot()["embed"]
	if snap.Count != 1 {
		t.Fatalf("expected count=1, got %d", snap.Count)
	}
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%f max=%f", snap.MinMs, snap.MaxMs)
	}
}

func TestNewReturnsSharedCollectors(t *testing.T) {
	a, b := New(), New()
	if a != b {
		t.Fatal("expected New to return the shared metrics")
	}
	a.ObserveStage("retrieve", time.Millisecond)
	a.ObserveReply("question", "detailed", 42)
	if _, ok := a.Latency.Snapshot()["retrieve"]; !ok {
		t.Fatal("expected ObserveStage to feed the latency window")
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveStage("retrieve", time.Millisecond)
	nilMetrics.ObserveReply("generic", "casual", 1)
}

func TestIngestHelpers(t *testing.T) {
	m := New()
	m.JobFinished("completed", 3)
	m.EmbedBatch(true)
	m.EmbedBatch(false)
	m.SetQueueDepth(2)
	m.RetrievalFailed("no_knowledge")

	var nilMetrics *Metrics
	nilMetrics.JobFinished("failed", 0)
	nilMetrics.EmbedBatch(false)
	nilMetrics.SetQueueDepth(0)
	nilMetrics.RetrievalFailed("error")
}
