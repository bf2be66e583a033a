package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/agentrt/agentrt/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps err onto the HTTP status from its apperr.Kind, falling
// back to 500 for untyped errors, matching the teacher's writeJSON error
// envelope shape.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(apperr.KindOf(err)), map[string]string{"error": err.Error()})
}
