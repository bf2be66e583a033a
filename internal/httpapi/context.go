package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentrt/agentrt/internal/apperr"
)

func (s *Server) handleUploadRuleFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, "invalid multipart form", err))
		return
	}
	sessionID := r.FormValue("session_id")

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, "file is required", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindInternal, "read upload", err))
		return
	}

	row, err := s.ingestor.IngestFile(sessionID, header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

type addTextRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	URL       string `json:"url"`
}

// handleAddText adds pasted text or fetches a URL under §4.2 rules,
// matching "Add pasted text or a URL; server performs fetch under §4.2
// rules" from spec.md §6.
func (s *Server) handleAddText(w http.ResponseWriter, r *http.Request) {
	var req addTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.KindValidation, "invalid JSON body"))
		return
	}

	if req.URL != "" {
		row, err := s.ingestor.IngestURL(r.Context(), req.SessionID, req.URL)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, row)
		return
	}

	row, err := s.ingestor.IngestText(req.SessionID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleContextStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	writeJSON(w, http.StatusOK, s.index.StatusOf(sessionID))
}

func (s *Server) handleContextList(w http.ResponseWriter, r *http.Request) {
	var scope *string
	if sid := r.URL.Query().Get("session_id"); sid != "" {
		scope = &sid
	}
	rows, err := s.store.Rules.ListActive(scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
