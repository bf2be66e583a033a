package export

import (
	"context"
	"testing"

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

func newDeriveTestIndex(t *testing.T, db *store.DB) *index.Index {
	t.Helper()
	ix := index.New(index.Config{
		DataRoot:           t.TempDir(),
		DefaultTopK:        5,
		MaxEmbedWorkers:    1,
		EmbedRatePerSecond: 1000,
		CacheGCCron:        "0 0 * * *",
		CacheRetentionDays: 7,
	}, db.Rules, &fakeEmbedder{dim: 4})
	t.Cleanup(ix.Close)
	return ix
}

// scriptedOneShotProvider answers a single ChatStream call with a fixed
// sequence of content frames followed by FrameDone.
type scriptedOneShotProvider struct {
	frames []providers.Frame
}

func (p *scriptedOneShotProvider) ChatStream(_ context.Context, _ providers.ChatRequest) (<-chan providers.Frame, error) {
	ch := make(chan providers.Frame, len(p.frames))
	for _, f := range p.frames {
		ch <- f
	}
	close(ch)
	return ch, nil
}

func (p *scriptedOneShotProvider) ListModels(context.Context) ([]string, error) {
	return []string{"fake-model"}, nil
}
func (p *scriptedOneShotProvider) DefaultModel() string { return "fake-model" }
func (p *scriptedOneShotProvider) Name() string         { return "fake" }

func newDeriveTestOrchestrator(t *testing.T, db *store.DB, provider providers.Provider) *orchestrator.Orchestrator {
	t.Helper()
	ix := newDeriveTestIndex(t, db)
	registry := tools.NewRegistry(tools.NewGetSessionIDTool())
	return orchestrator.New(db, ix, registry, provider, orchestrator.DefaultConfig())
}

func TestDeriveUpsertsArtifactFromOneShotCompletion(t *testing.T) {
	db := openExportTestStore(t)
	if err := db.Sessions.EnsureExists("sess-derive-1"); err != nil {
		t.Fatal(err)
	}
	provider := &scriptedOneShotProvider{frames: []providers.Frame{
		{Kind: providers.FrameContent, Content: "a great idea"},
		{Kind: providers.FrameDone, FinishReason: "stop"},
	}}
	orch := newDeriveTestOrchestrator(t, db, provider)
	d := NewDeriver(orch, db.Artifacts)

	artifact, err := d.Derive(context.Background(), "sess-derive-1", store.ArtifactProjectIdea)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if artifact.Content != "a great idea" {
		t.Errorf("expected content %q, got %q", "a great idea", artifact.Content)
	}

	stored, err := db.Artifacts.Get("sess-derive-1", store.ArtifactProjectIdea)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Content != "a great idea" {
		t.Errorf("expected persisted content %q, got %q", "a great idea", stored.Content)
	}
}

func TestDeriveRejectsUnsupportedArtifactType(t *testing.T) {
	db := openExportTestStore(t)
	orch := newDeriveTestOrchestrator(t, db, &scriptedOneShotProvider{})
	d := NewDeriver(orch, db.Artifacts)

	_, err := d.Derive(context.Background(), "sess-x", store.ArtifactType("bogus"))
	if err == nil {
		t.Fatal("expected an error for an unsupported artifact type")
	}
}

func TestDeriveStreamRelaysTokensAndPersistsOnComplete(t *testing.T) {
	db := openExportTestStore(t)
	if err := db.Sessions.EnsureExists("sess-derive-2"); err != nil {
		t.Fatal(err)
	}
	provider := &scriptedOneShotProvider{frames: []providers.Frame{
		{Kind: providers.FrameContent, Content: "Go, "},
		{Kind: providers.FrameContent, Content: "SQLite"},
		{Kind: providers.FrameDone, FinishReason: "stop"},
	}}
	orch := newDeriveTestOrchestrator(t, db, provider)
	d := NewDeriver(orch, db.Artifacts)

	events, err := d.DeriveStream(context.Background(), "sess-derive-2", store.ArtifactTechStack)
	if err != nil {
		t.Fatalf("DeriveStream: %v", err)
	}

	var tokens string
	var sawEnd bool
	for ev := range events {
		switch ev.Kind {
		case orchestrator.EventToken:
			tokens += ev.Token
		case orchestrator.EventEnd:
			sawEnd = true
			if ev.Reason != orchestrator.EndComplete {
				t.Fatalf("expected end{complete}, got %+v", ev)
			}
		}
	}
	if !sawEnd {
		t.Fatal("expected a terminal end event")
	}
	if tokens != "Go, SQLite" {
		t.Errorf("expected relayed tokens %q, got %q", "Go, SQLite", tokens)
	}

	stored, err := db.Artifacts.Get("sess-derive-2", store.ArtifactTechStack)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Content != "Go, SQLite" {
		t.Errorf("expected persisted content %q, got %q", "Go, SQLite", stored.Content)
	}
}

func TestDeriveStreamRejectsUnsupportedArtifactType(t *testing.T) {
	db := openExportTestStore(t)
	orch := newDeriveTestOrchestrator(t, db, &scriptedOneShotProvider{})
	d := NewDeriver(orch, db.Artifacts)

	_, err := d.DeriveStream(context.Background(), "sess-y", store.ArtifactType("bogus"))
	if err == nil {
		t.Fatal("expected an error for an unsupported artifact type")
	}
}
