package httpapi

import (
	"net/http"
	"time"

	"github.com/agentrt/agentrt/internal/apperr"
)

// handleExportSubmissionPack implements `POST
// /api/export/submission-pack?session_id=…`: the one legitimate caller
// of wall-clock time for export.Packer.Export, since the packer itself
// is a pure function of session state plus the exportedAt it's given.
func (s *Server) handleExportSubmissionPack(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, apperr.New(apperr.KindValidation, "session_id query parameter is required"))
		return
	}

	data, err := s.packer.Export(sessionID, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="submission-pack.zip"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
