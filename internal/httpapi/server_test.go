package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/agentrt/agentrt/internal/export"
	"github.com/agentrt/agentrt/internal/ingest"
	"github.com/agentrt/agentrt/internal/index"
	"github.com/agentrt/agentrt/internal/orchestrator"
	"github.com/agentrt/agentrt/internal/providers"
	"github.com/agentrt/agentrt/internal/store"
	"github.com/agentrt/agentrt/internal/tools"
)

type fakeEmbedder struct{ dim int }

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, f.dim)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}
func (f *fakeEmbedder) Name() string   { return "fake" }
func (f *fakeEmbedder) Dimension() int { return f.dim }

// fakeProvider answers every ChatStream call with one fixed content
// frame plus done, regardless of request — enough to drive the
// orchestrator's turn loop deterministically from the HTTP layer.
type fakeProvider struct{ reply string }

func (p *fakeProvider) ChatStream(_ context.Context, _ providers.ChatRequest) (<-chan providers.Frame, error) {
	ch := make(chan providers.Frame, 2)
	ch <- providers.Frame{Kind: providers.FrameContent, Content: p.reply}
	ch <- providers.Frame{Kind: providers.FrameDone, FinishReason: "stop"}
	close(ch)
	return ch, nil
}
func (p *fakeProvider) ListModels(context.Context) ([]string, error) { return []string{"fake-model"}, nil }
func (p *fakeProvider) DefaultModel() string                        { return "fake-model" }
func (p *fakeProvider) Name() string                                { return "fake-openai-compatible" }

func newTestServer(t *testing.T) (*Server, *store.DB) {
	t.Helper()
	dir := t.TempDir()
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		t.Fatalf("resolve migrations dir: %v", err)
	}
	db, err := store.Open(filepath.Join(dir, "test.db"), migrationsDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	idx := index.New(index.Config{
		DataRoot:           t.TempDir(),
		DefaultTopK:        5,
		MaxEmbedWorkers:    1,
		EmbedRatePerSecond: 1000,
		CacheGCCron:        "0 0 * * *",
		CacheRetentionDays: 7,
	}, db.Rules, &fakeEmbedder{dim: 4})
	t.Cleanup(idx.Close)

	ingestor := ingest.New(db.Rules, nil, idx, ingest.Config{MaxUploadBytes: 1 << 20, MaxURLBytes: 1 << 20})

	registry := tools.NewRegistry(tools.NewGetSessionIDTool())
	provider := &fakeProvider{reply: "hello there"}
	orch := orchestrator.New(db, idx, registry, provider, orchestrator.DefaultConfig())

	deriver := export.NewDeriver(orch, db.Artifacts)
	packer := export.NewPacker(db)

	return NewServer(db, orch, idx, ingestor, deriver, packer, provider), db
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.BuildMux())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestTodoCRUDRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.BuildMux())
	defer ts.Close()

	body, _ := json.Marshal(map[string]string{"item": "write docs", "session_id": "sess-1"})
	resp, err := http.Post(ts.URL+"/api/todos", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created store.Task
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if created.Item != "write docs" {
		t.Fatalf("expected created task item %q, got %q", "write docs", created.Item)
	}

	listResp, err := http.Get(ts.URL + "/api/todos?session_id=sess-1")
	if err != nil {
		t.Fatal(err)
	}
	defer listResp.Body.Close()
	var tasks []store.Task
	if err := json.NewDecoder(listResp.Body).Decode(&tasks); err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Item != "write docs" {
		t.Fatalf("expected one task 'write docs', got %+v", tasks)
	}

	clearResp, err := http.DefaultClient.Do(mustRequest(t, http.MethodDelete, ts.URL+"/api/todos?session_id=sess-1", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer clearResp.Body.Close()
	if clearResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", clearResp.StatusCode)
	}
}

func TestClearTodosRequiresSessionID(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.BuildMux())
	defer ts.Close()

	resp, err := http.DefaultClient.Do(mustRequest(t, http.MethodDelete, ts.URL+"/api/todos", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAddTextAndContextStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.BuildMux())
	defer ts.Close()

	body, _ := json.Marshal(map[string]string{"session_id": "sess-2", "text": "remember this fact"})
	resp, err := http.Post(ts.URL+"/api/context/add-text", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	statusResp, err := http.Get(ts.URL + "/api/context/status?session_id=sess-2")
	if err != nil {
		t.Fatal(err)
	}
	defer statusResp.Body.Close()
	var status index.Status
	if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
}

func TestChatStreamReturnsSSEEvents(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.BuildMux())
	defer ts.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("session_id", "sess-3")
	mw.WriteField("user_input", "hi there")
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/chat-stream", &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}

	body := make([]byte, 4096)
	n, _ := resp.Body.Read(body)
	out := string(body[:n])
	if !bytes.Contains([]byte(out), []byte(`"type":"session_info"`)) {
		t.Fatalf("expected session_info event in SSE output, got %q", out)
	}
}

func TestDeriveArtifactNonStreaming(t *testing.T) {
	srv, db := newTestServer(t)
	ts := httptest.NewServer(srv.BuildMux())
	defer ts.Close()

	if err := db.Sessions.EnsureExists("sess-4"); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(ts.URL+"/api/chat-sessions/sess-4/derive-project-idea", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var artifact store.Artifact
	if err := json.NewDecoder(resp.Body).Decode(&artifact); err != nil {
		t.Fatal(err)
	}
	if artifact.Content != "hello there" {
		t.Fatalf("expected derived content %q, got %q", "hello there", artifact.Content)
	}
}

func TestExportSubmissionPackReturnsZIP(t *testing.T) {
	srv, db := newTestServer(t)
	ts := httptest.NewServer(srv.BuildMux())
	defer ts.Close()

	if err := db.Sessions.EnsureExists("sess-5"); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(ts.URL+"/api/export/submission-pack?session_id=sess-5", "application/octet-stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("expected application/zip, got %q", ct)
	}
}

func TestOllamaStatusAndSetModel(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.BuildMux())
	defer ts.Close()

	setBody, _ := json.Marshal(map[string]string{"model_id": "fake-model-2"})
	setResp, err := http.Post(ts.URL+"/api/ollama/model", "application/json", bytes.NewReader(setBody))
	if err != nil {
		t.Fatal(err)
	}
	defer setResp.Body.Close()
	if setResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", setResp.StatusCode)
	}

	statusResp, err := http.Get(ts.URL + "/api/ollama/status")
	if err != nil {
		t.Fatal(err)
	}
	defer statusResp.Body.Close()
	var status ollamaStatusResponse
	if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.CurrentModel != "fake-model-2" {
		t.Fatalf("expected current model %q, got %q", "fake-model-2", status.CurrentModel)
	}
}

func mustRequest(t *testing.T, method, url string, body *bytes.Buffer) *http.Request {
	t.Helper()
	var b *bytes.Buffer
	if body != nil {
		b = body
	} else {
		b = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, url, b)
	if err != nil {
		t.Fatal(err)
	}
	return req
}
