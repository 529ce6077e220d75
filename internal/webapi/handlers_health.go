package webapi

import (
	"net/http"
)

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready once the database answers and has every table.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	health, err := s.store.CheckHealth(r.Context())
	if err != nil || !health.DatabaseReadable || len(health.MissingTables) > 0 {
		detail := "database not ready"
		if err != nil {
			detail = err.Error()
		}
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":        "unavailable",
			"error":         detail,
			"missingTables": health.MissingTables,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ready",
		"schemaVersion": health.SchemaVersion,
		"jobs":          health.TotalJobs,
	})
}
