package httpapi

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/usezoracle/tba-be/internal/metrics"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeData(w, http.StatusOK, map[string]any{"status": "ok", "timestamp": time.Now()})
}

// handleHealthDetailed is a supplemented feature (spec.md §6 lists the
// route; the original dependency checks and metrics surface are not
// otherwise specified, so this follows the teacher's health-check
// conventions of reporting each dependency's reachability individually).
func (s *Server) handleHealthDetailed(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	kvErr := s.kv.Ping(r.Context())
	dbErr := s.dbRepo.Ping()

	status := "ok"
	if kvErr != nil || dbErr != nil {
		status = "degraded"
	}

	lastResult, hasResult := s.scanner.LastResult()

	data := map[string]any{
		"status":    status,
		"timestamp": time.Now(),
		"dependencies": map[string]any{
			"kv": dependencyStatus(kvErr),
			"db": dependencyStatus(dbErr),
		},
		"scanner": map[string]any{
			"state":      s.scanner.State(),
			"lastResult": lastResult,
			"hasRun":     hasResult,
		},
		"metrics": metrics.Snapshot(),
	}
	writeData(w, http.StatusOK, data)
}

func dependencyStatus(err error) map[string]any {
	if err != nil {
		return map[string]any{"ok": false, "error": err.Error()}
	}
	return map[string]any{"ok": true}
}
