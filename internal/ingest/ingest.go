// Package ingest implements the context ingestor (C2): converting pasted
// text, uploaded files, and fetched URLs into RuleContextRows, under the
// safety guards from SPEC_FULL.md §4.2.
package ingest

import (
	"context"
	"mime"
	"path/filepath"
	"strings"

	"github.com/agentrt/agentrt/internal/apperr"
	"github.com/agentrt/agentrt/internal/store"
)

// Extractor converts raw file bytes to text given a MIME type. This is
// the external `extract(bytes, mime) -> text` collaborator from
// spec.md §1 — file-text extraction (PDF/DOCX/OCR) is out of scope, so
// the default implementation below only handles text-like MIME types.
type Extractor interface {
	Extract(data []byte, mimeType string) (string, error)
}

// PlainTextExtractor passes through text/* content and rejects anything
// else, since real PDF/DOCX/OCR extraction is an external collaborator
// per spec.md §1.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(data []byte, mimeType string) (string, error) {
	if !strings.HasPrefix(mimeType, "text/") {
		return "", apperr.New(apperr.KindUnsupportedMIME, "extraction not available for "+mimeType)
	}
	return string(data), nil
}

// Invalidator is notified when a session's active context set changes,
// so the retrieval index (C3) can schedule a rebuild. Satisfied by
// index.Index.
type Invalidator interface {
	Invalidate(sessionID string)
}

// Config holds the ingestor's safety limits (SPEC_FULL.md §6 env vars).
type Config struct {
	MaxUploadBytes    int64
	MaxURLBytes       int64
	URLTimeoutSeconds int
	MaxRedirects      int
}

// Ingestor implements C2.
type Ingestor struct {
	rules     *store.RuleContextRepo
	extractor Extractor
	cfg       Config
	index     Invalidator
}

func New(rules *store.RuleContextRepo, extractor Extractor, index Invalidator, cfg Config) *Ingestor {
	if extractor == nil {
		extractor = PlainTextExtractor{}
	}
	return &Ingestor{rules: rules, extractor: extractor, index: index, cfg: cfg}
}

func sessionKey(sessionID string) *string {
	if sessionID == "" {
		return nil
	}
	return &sessionID
}

// IngestText stores pasted text verbatim (trimmed), source=text.
func (ig *Ingestor) IngestText(sessionID, text string) (*store.RuleContextRow, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.New(apperr.KindValidation, "text must not be empty")
	}
	row, err := ig.rules.Insert(sessionKey(sessionID), store.SourceText, text, nil)
	if err != nil {
		return nil, err
	}
	ig.notify(sessionID)
	return row, nil
}

// IngestFile validates an uploaded file by extension/sniffed MIME and
// size cap, extracts text via the Extractor, and stores source=file.
func (ig *Ingestor) IngestFile(sessionID, filename string, data []byte) (*store.RuleContextRow, error) {
	maxBytes := ig.cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	if int64(len(data)) > maxBytes {
		return nil, apperr.New(apperr.KindOversize, "upload exceeds max upload size")
	}

	mimeType := sniffMIME(filename, data)
	text, err := ig.extractor.Extract(data, mimeType)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.New(apperr.KindValidation, "extracted text is empty")
	}

	fn := filename
	row, err := ig.rules.Insert(sessionKey(sessionID), store.SourceFile, text, &fn)
	if err != nil {
		return nil, err
	}
	ig.notify(sessionID)
	return row, nil
}

// IngestURL fetches url under the safety-hardened rules of
// SPEC_FULL.md §4.2 and stores the result as source=url.
func (ig *Ingestor) IngestURL(ctx context.Context, sessionID, url string) (*store.RuleContextRow, error) {
	text, err := fetchURL(ctx, url, fetchConfig{
		MaxBytes:       ig.cfg.MaxURLBytes,
		TimeoutSeconds: ig.cfg.URLTimeoutSeconds,
		MaxRedirects:   ig.cfg.MaxRedirects,
	})
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.New(apperr.KindValidation, "fetched content is empty")
	}

	row, err := ig.rules.Insert(sessionKey(sessionID), store.SourceURL, text, nil)
	if err != nil {
		return nil, err
	}
	ig.notify(sessionID)
	return row, nil
}

func (ig *Ingestor) notify(sessionID string) {
	if ig.index != nil {
		ig.index.Invalidate(sessionID)
	}
}

// sniffMIME derives a MIME type from the file extension, falling back to
// the sniffed content type of the first bytes.
func sniffMIME(filename string, data []byte) string {
	if ext := filepath.Ext(filename); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return strings.SplitN(t, ";", 2)[0]
		}
	}
	return httpDetectContentType(data)
}
