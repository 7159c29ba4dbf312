package api

import (
	"net/http"
)

func (s *Server) handleDispatchStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions":    s.sessions.Len(),
		"queue_depth": s.sessions.QueueDepth(),
		"dispatch":    s.sessions.Stats(),
	})
}
