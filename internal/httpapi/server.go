// Package httpapi is the thin HTTP transport glue (external interface
// only, spec.md §6): it implements the illustrative route table on
// net/http.ServeMux using Go 1.22+ method patterns, translating requests
// into calls on C1–C7 and carrying no independent business logic of its
// own. Grounded on the teacher's internal/gateway/server.go
// http.NewServeMux() + method-pattern routing and the
// RegisterRoutes(mux)-per-handler shape from internal/http/agents.go.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/agentrt/agentrt/internal/export"
	"github.com/agentrt/agentrt/internal/ingest"
	"github.com/agentrt/agentrt/internal/index"
	"github.com/agentrt/agentrt/internal/orchestrator"
	"github.com/agentrt/agentrt/internal/providers"
	"github.com/agentrt/agentrt/internal/store"
)

// Server wires the runtime's components behind the HTTP route table.
type Server struct {
	store    *store.DB
	orch     *orchestrator.Orchestrator
	index    *index.Index
	ingestor *ingest.Ingestor
	deriver  *export.Deriver
	packer   *export.Packer
	provider providers.Provider

	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer constructs a Server from the already-wired C1–C7 components.
func NewServer(db *store.DB, orch *orchestrator.Orchestrator, idx *index.Index, ingestor *ingest.Ingestor, deriver *export.Deriver, packer *export.Packer, provider providers.Provider) *Server {
	return &Server{
		store:    db,
		orch:     orch,
		index:    idx,
		ingestor: ingestor,
		deriver:  deriver,
		packer:   packer,
		provider: provider,
	}
}

// BuildMux creates and caches the HTTP mux with every route registered.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/chat-stream", s.handleChatStream)

	mux.HandleFunc("GET /api/todos", s.handleListTodos)
	mux.HandleFunc("POST /api/todos", s.handleCreateTodo)
	mux.HandleFunc("PUT /api/todos/{id}", s.handleUpdateTodo)
	mux.HandleFunc("DELETE /api/todos/{id}", s.handleDeleteTodo)
	mux.HandleFunc("DELETE /api/todos", s.handleClearTodos)

	mux.HandleFunc("POST /api/context/rules", s.handleUploadRuleFile)
	mux.HandleFunc("POST /api/context/add-text", s.handleAddText)
	mux.HandleFunc("GET /api/context/status", s.handleContextStatus)
	mux.HandleFunc("GET /api/context/list", s.handleContextList)

	mux.HandleFunc("GET /api/chat-sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/chat-sessions/{id}", s.handleGetSession)
	mux.HandleFunc("PUT /api/chat-sessions/{id}", s.handleUpdateSession)
	mux.HandleFunc("DELETE /api/chat-sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/chat-sessions/{id}/project-artifacts", s.handleListArtifacts)
	mux.HandleFunc("GET /api/chat-sessions/{id}/project-artifacts/{type}", s.handleGetArtifact)

	mux.HandleFunc("POST /api/chat-sessions/{id}/derive-project-idea", s.handleDerive(store.ArtifactProjectIdea))
	mux.HandleFunc("POST /api/chat-sessions/{id}/create-tech-stack", s.handleDerive(store.ArtifactTechStack))
	mux.HandleFunc("POST /api/chat-sessions/{id}/summarize-chat-history", s.handleDerive(store.ArtifactSubmissionSummary))

	mux.HandleFunc("POST /api/export/submission-pack", s.handleExportSubmissionPack)

	mux.HandleFunc("GET /api/ollama/status", s.handleOllamaStatus)
	mux.HandleFunc("POST /api/ollama/model", s.handleOllamaSetModel)

	s.mux = mux
	return mux
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully. Grounded on the teacher's gateway Start method.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := s.BuildMux()
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	slog.Info("httpapi starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpapi server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
