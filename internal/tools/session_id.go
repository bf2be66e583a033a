package tools

import "context"

// GetSessionIDTool returns the active session id to the model, so
// follow-up tool calls (add_todo, etc.) that require an explicit
// session_id can reuse it without asking the user.
type GetSessionIDTool struct{}

func NewGetSessionIDTool() *GetSessionIDTool { return &GetSessionIDTool{} }

func (GetSessionIDTool) Name() string        { return "get_session_id" }
func (GetSessionIDTool) Description() string { return "Returns the active session id." }
func (GetSessionIDTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (GetSessionIDTool) Execute(_ context.Context, _ map[string]any, sessionID string) *Result {
	if sessionID == "" {
		return Err("no active session")
	}
	return Ok(map[string]any{"session_id": sessionID})
}
