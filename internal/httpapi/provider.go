package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/agentrt/agentrt/internal/apperr"
	"github.com/agentrt/agentrt/internal/store"
)

type ollamaStatusResponse struct {
	Provider     string   `json:"provider"`
	CurrentModel string   `json:"current_model"`
	Models       []string `json:"models"`
}

// handleOllamaStatus implements `GET /api/ollama/status`: reports the
// configured provider name, the persisted current model (falling back
// to the provider's default), and the models the endpoint currently
// serves — falling back to just the default model id if the endpoint
// is unreachable, per spec.md §4.7's "list_models may fall back to a
// configured default list".
func (s *Server) handleOllamaStatus(w http.ResponseWriter, r *http.Request) {
	current, ok, err := s.store.Settings.Get(store.CurrentModelSettingKey)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		current = s.provider.DefaultModel()
	}

	models, err := s.provider.ListModels(r.Context())
	if err != nil {
		models = []string{s.provider.DefaultModel()}
	}

	writeJSON(w, http.StatusOK, ollamaStatusResponse{
		Provider:     s.provider.Name(),
		CurrentModel: current,
		Models:       models,
	})
}

type setModelRequest struct {
	ModelID string `json:"model_id"`
}

// handleOllamaSetModel implements `POST /api/ollama/model`, persisting
// the selection via AppSetting (spec.md §4.7/§9's "global mutable state
// confined to AppSetting").
func (s *Server) handleOllamaSetModel(w http.ResponseWriter, r *http.Request) {
	var req setModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.KindValidation, "invalid JSON body"))
		return
	}
	if req.ModelID == "" {
		writeError(w, apperr.New(apperr.KindValidation, "model_id is required"))
		return
	}
	if err := s.store.Settings.Put(store.CurrentModelSettingKey, req.ModelID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}
