package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/agentrt/agentrt/internal/apperr"
	"github.com/agentrt/agentrt/internal/store"
)

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	var scope *string
	if sid := r.URL.Query().Get("session_id"); sid != "" {
		scope = &sid
	}
	tasks, err := s.store.Tasks.List(scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

type createTodoRequest struct {
	Item      string `json:"item"`
	SessionID string `json:"session_id"`
	Priority  int    `json:"priority"`
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.KindValidation, "invalid JSON body"))
		return
	}
	if req.Item == "" {
		writeError(w, apperr.New(apperr.KindValidation, "item is required"))
		return
	}
	var scope *string
	if req.SessionID != "" {
		scope = &req.SessionID
	}
	task, err := s.store.Tasks.Create(scope, req.Item, req.Priority)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

type updateTodoRequest struct {
	Status store.TaskStatus `json:"status"`
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, apperr.New(apperr.KindValidation, "invalid task id"))
		return
	}
	var req updateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.KindValidation, "invalid JSON body"))
		return
	}
	if err := s.store.Tasks.SetStatus(id, req.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, apperr.New(apperr.KindValidation, "invalid task id"))
		return
	}
	if err := s.store.Tasks.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

// handleClearTodos implements `DELETE /api/todos` which requires a
// session_id query parameter (spec.md §6's "DELETE /api/todos requires
// session_id query").
func (s *Server) handleClearTodos(w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("session_id")
	if sid == "" {
		writeError(w, apperr.New(apperr.KindValidation, "session_id query parameter is required"))
		return
	}
	n, err := s.store.Tasks.ClearAll(sid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": n})
}
