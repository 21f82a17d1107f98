package api

import (
	"net/http"
)

func (s *Server) handleLatencyStats(w http.ResponseWriter, r *http.Request) {
	if s.svc.Metrics == nil || s.svc.Metrics.Latency == nil {
		jsonError(w, "latency stats unavailable", http.StatusServiceUnavailable)
		return
	}
	out := map[string]any{"stages": s.svc.Metrics.Latency.Snapshot()}
	if s.svc.Orchestrator != nil {
		out["queue_depth"] = s.svc.Orchestrator.QueueDepth()
	}
	writeJSON(w, http.StatusOK, out)
}
