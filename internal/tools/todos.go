package tools

import (
	"context"

	"github.com/agentrt/agentrt/internal/store"
)

// ListTodosTool returns tasks for a session (or the global list when
// session_id is omitted).
type ListTodosTool struct {
	tasks *store.TaskRepo
}

func NewListTodosTool(tasks *store.TaskRepo) *ListTodosTool { return &ListTodosTool{tasks: tasks} }

func (ListTodosTool) Name() string        { return "list_todos" }
func (ListTodosTool) Description() string { return "Returns tasks (optionally detailed)." }
func (ListTodosTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"session_id": map[string]any{"type": "string"},
		},
	}
}

func (t *ListTodosTool) Execute(_ context.Context, args map[string]any, sessionID string) *Result {
	scope := optionalSessionID(args, sessionID)
	tasks, err := t.tasks.List(scope)
	if err != nil {
		return Err(err.Error())
	}
	return Ok(tasks)
}

// AddTodoTool appends a task to a session's list.
type AddTodoTool struct {
	tasks *store.TaskRepo
}

func NewAddTodoTool(tasks *store.TaskRepo) *AddTodoTool { return &AddTodoTool{tasks: tasks} }

func (AddTodoTool) Name() string        { return "add_todo" }
func (AddTodoTool) Description() string { return "Appends a task." }
func (AddTodoTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"item":       map[string]any{"type": "string"},
			"session_id": map[string]any{"type": "string"},
		},
		"required": []string{"item", "session_id"},
	}
}

func (t *AddTodoTool) Execute(_ context.Context, args map[string]any, sessionID string) *Result {
	item, _ := args["item"].(string)
	if item == "" {
		return Err("item is required")
	}
	scope := optionalSessionID(args, sessionID)
	if scope == nil {
		return Err("session_id is required")
	}
	task, err := t.tasks.Create(scope, item, 3)
	if err != nil {
		return Err(err.Error())
	}
	return Ok(task)
}

// ClearTodosTool clears every task for one session. Spec.md §3: "clear
// all" is only allowed scoped by a session id, enforced by TaskRepo
// itself and surfaced here as a plain tool error.
type ClearTodosTool struct {
	tasks *store.TaskRepo
}

func NewClearTodosTool(tasks *store.TaskRepo) *ClearTodosTool { return &ClearTodosTool{tasks: tasks} }

func (ClearTodosTool) Name() string        { return "clear_todos" }
func (ClearTodosTool) Description() string { return "Clears tasks for that session only." }
func (ClearTodosTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"session_id": map[string]any{"type": "string"},
		},
		"required": []string{"session_id"},
	}
}

func (t *ClearTodosTool) Execute(_ context.Context, args map[string]any, sessionID string) *Result {
	scope, _ := args["session_id"].(string)
	if scope == "" {
		scope = sessionID
	}
	n, err := t.tasks.ClearAll(scope)
	if err != nil {
		return Err(err.Error())
	}
	return Ok(map[string]any{"cleared": n})
}

// optionalSessionID resolves a *string session scope from an explicit
// args["session_id"], falling back to the turn's active session, and
// finally nil (the shared/global scope).
func optionalSessionID(args map[string]any, fallback string) *string {
	if v, ok := args["session_id"].(string); ok && v != "" {
		return &v
	}
	if fallback != "" {
		return &fallback
	}
	return nil
}
