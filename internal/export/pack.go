package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/agentrt/agentrt/internal/apperr"
	"github.com/agentrt/agentrt/internal/store"
)

// fixedModTime is the ZIP entry modification timestamp baked into every
// export, independent of exportedAt. Using a constant here (rather than
// time.Now()) is what makes two exports of identical session state
// byte-identical — exportedAt legitimately varies per call and only ever
// appears inside session_metadata.json's exported_at field.
var fixedModTime = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// stubContent is written for idea.md/tech_stack.md/summary.md when the
// corresponding artifact has never been derived.
const stubContent = "(not yet generated)\n"

// sessionMetadata is the wire shape of session_metadata.json.
type sessionMetadata struct {
	SessionID    string  `json:"session_id"`
	Title        *string `json:"title"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
	MessageCount int     `json:"message_count"`
	ModelID      string  `json:"model_id"`
	ExportedAt   string  `json:"exported_at"`
}

// exportedTask is the wire shape of one todos.json entry. Deliberately
// omits session_id: every task in this export already belongs to the one
// session being exported.
type exportedTask struct {
	ID          int64   `json:"id"`
	Item        string  `json:"item"`
	Status      string  `json:"status"`
	Priority    int     `json:"priority"`
	SortOrder   int     `json:"sort_order"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	CompletedAt *string `json:"completed_at"`
}

// Packer builds the deterministic session export ZIP (spec.md §4.6).
type Packer struct {
	store *store.DB
}

// NewPacker constructs a Packer.
func NewPacker(db *store.DB) *Packer {
	return &Packer{store: db}
}

// Export assembles the six-entry ZIP for sessionID. exportedAt is the
// caller-supplied wall-clock time recorded in session_metadata.json;
// identical session state plus the same exportedAt always yields
// byte-identical output.
func (p *Packer) Export(sessionID string, exportedAt time.Time) ([]byte, error) {
	session, err := p.store.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := p.writeArtifact(zw, sessionID, store.ArtifactProjectIdea, "idea.md"); err != nil {
		return nil, err
	}
	if err := p.writeArtifact(zw, sessionID, store.ArtifactTechStack, "tech_stack.md"); err != nil {
		return nil, err
	}
	if err := p.writeArtifact(zw, sessionID, store.ArtifactSubmissionSummary, "summary.md"); err != nil {
		return nil, err
	}
	if err := p.writeTodos(zw, sessionID); err != nil {
		return nil, err
	}
	if err := p.writeRulesIngested(zw, sessionID); err != nil {
		return nil, err
	}
	if err := p.writeSessionMetadata(zw, session, exportedAt); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Packer) writeArtifact(zw *zip.Writer, sessionID string, artifactType store.ArtifactType, name string) error {
	content := stubContent
	artifact, err := p.store.Artifacts.Get(sessionID, artifactType)
	if err != nil && !isNotFound(err) {
		return err
	}
	if artifact != nil {
		content = artifact.Content
	}
	return writeEntry(zw, name, []byte(content))
}

func (p *Packer) writeTodos(zw *zip.Writer, sessionID string) error {
	tasks, err := p.store.Tasks.List(&sessionID)
	if err != nil {
		return err
	}

	out := make([]exportedTask, 0, len(tasks))
	for _, t := range tasks {
		var completedAt *string
		if t.CompletedAt != nil {
			s := t.CompletedAt.UTC().Format(time.RFC3339Nano)
			completedAt = &s
		}
		out = append(out, exportedTask{
			ID:          t.ID,
			Item:        t.Item,
			Status:      string(t.Status),
			Priority:    t.Priority,
			SortOrder:   t.SortOrder,
			CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339Nano),
			UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339Nano),
			CompletedAt: completedAt,
		})
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return writeEntry(zw, "todos.json", b)
}

func (p *Packer) writeRulesIngested(zw *zip.Writer, sessionID string) error {
	rows, err := p.store.Rules.ListActive(&sessionID)
	if err != nil {
		return err
	}
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, r.Content)
	}
	return writeEntry(zw, "rules_ingested.txt", []byte(strings.Join(parts, "\n\n")))
}

func (p *Packer) writeSessionMetadata(zw *zip.Writer, session *store.Session, exportedAt time.Time) error {
	count, err := p.store.Messages.Count(session.ID)
	if err != nil {
		return err
	}
	modelID, _, err := p.store.Settings.Get("current_model")
	if err != nil {
		return err
	}

	meta := sessionMetadata{
		SessionID:    session.ID,
		Title:        session.Title,
		CreatedAt:    session.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    session.UpdatedAt.UTC().Format(time.RFC3339Nano),
		MessageCount: count,
		ModelID:      modelID,
		ExportedAt:   exportedAt.UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return writeEntry(zw, "session_metadata.json", b)
}

func writeEntry(zw *zip.Writer, name string, content []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: fixedModTime,
	})
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

func isNotFound(err error) bool {
	return err != nil && apperr.KindOf(err) == apperr.KindNotFound
}
