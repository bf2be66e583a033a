package httpapi

import (
	"io"
	"net/http"

	"github.com/agentrt/agentrt/internal/apperr"
	"github.com/agentrt/agentrt/internal/orchestrator"
)

// handleChatStream implements `POST /api/chat-stream`: a multipart form
// of `{user_input, files[]?, url_text?, session_id?}` that ingests any
// attached files/URL text into the session's context before driving one
// turn through the orchestrator, streaming the result per the §4.5 SSE
// grammar.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, "invalid multipart form", err))
		return
	}

	sessionID := r.FormValue("session_id")
	userInput := r.FormValue("user_input")

	if urlText := r.FormValue("url_text"); urlText != "" {
		if _, err := s.ingestor.IngestURL(r.Context(), sessionID, urlText); err != nil {
			writeError(w, err)
			return
		}
	}

	if r.MultipartForm != nil {
		for _, headers := range r.MultipartForm.File {
			for _, header := range headers {
				file, err := header.Open()
				if err != nil {
					writeError(w, apperr.Wrap(apperr.KindValidation, "open uploaded file", err))
					return
				}
				data, err := io.ReadAll(file)
				file.Close()
				if err != nil {
					writeError(w, apperr.Wrap(apperr.KindInternal, "read uploaded file", err))
					return
				}
				if _, err := s.ingestor.IngestFile(sessionID, header.Filename, data); err != nil {
					writeError(w, err)
					return
				}
			}
		}
	}

	events, err := s.orch.RunTurn(r.Context(), sessionID, userInput, orchestrator.TurnOptions{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSSE(w, r, events)
}
