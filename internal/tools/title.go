package tools

import (
	"context"
	"strings"

	"github.com/agentrt/agentrt/internal/store"
)

const (
	titleShortEnough     = 60
	titleGenInstruction  = "Write a short, plain-text chat title (no quotes, no punctuation at the " +
		"end, 6 words or fewer) summarizing the conversation so far."
)

// GenerateChatTitleTool sets a session's title, idempotently unless
// force is set, per spec.md §4.4.
type GenerateChatTitleTool struct {
	sessions *store.SessionRepo
	messages *store.MessageRepo
	runner   OneShot
}

func NewGenerateChatTitleTool(sessions *store.SessionRepo, messages *store.MessageRepo, runner OneShot) *GenerateChatTitleTool {
	return &GenerateChatTitleTool{sessions: sessions, messages: messages, runner: runner}
}

func (GenerateChatTitleTool) Name() string { return "generate_chat_title" }
func (GenerateChatTitleTool) Description() string {
	return "Sets session title from first user message or a short LLM call; idempotent unless force."
}
func (GenerateChatTitleTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"session_id": map[string]any{"type": "string"},
			"force":      map[string]any{"type": "boolean"},
		},
		"required": []string{"session_id"},
	}
}

func (t *GenerateChatTitleTool) Execute(ctx context.Context, args map[string]any, sessionID string) *Result {
	sid, _ := args["session_id"].(string)
	if sid == "" {
		sid = sessionID
	}
	if sid == "" {
		return Err("session_id is required")
	}
	force, _ := args["force"].(bool)

	session, err := t.sessions.Get(sid)
	if err != nil {
		return Err(err.Error())
	}
	if session.Title != nil && *session.Title != "" && !force {
		return Ok(map[string]any{"title": *session.Title, "changed": false})
	}

	title, err := t.deriveTitle(ctx, sid)
	if err != nil {
		return Err(err.Error())
	}

	if err := t.sessions.SetTitle(sid, title); err != nil {
		return Err(err.Error())
	}
	return Ok(map[string]any{"title": title, "changed": true})
}

func (t *GenerateChatTitleTool) deriveTitle(ctx context.Context, sessionID string) (string, error) {
	messages, err := t.messages.List(sessionID, 1, 0)
	if err == nil && len(messages) > 0 && messages[0].Role == store.RoleUser {
		if text := strings.TrimSpace(messages[0].Content); text != "" && len(text) <= titleShortEnough {
			return text, nil
		}
	}
	return t.runner.RunOneShot(ctx, sessionID, titleGenInstruction)
}
