package httpapi

import (
	"net/http"

	"github.com/agentrt/agentrt/internal/store"
)

// handleDerive returns a handler for one of the three fixed
// derive-artifact routes; `?stream=true` switches to an SSE stream of
// tokens instead of a single JSON response (spec.md §6).
func (s *Server) handleDerive(artifactType store.ArtifactType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")

		if r.URL.Query().Get("stream") == "true" {
			events, err := s.deriver.DeriveStream(r.Context(), sessionID, artifactType)
			if err != nil {
				writeError(w, err)
				return
			}
			writeSSE(w, r, events)
			return
		}

		artifact, err := s.deriver.Derive(r.Context(), sessionID, artifactType)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, artifact)
	}
}
