// Package tools implements the closed tool registry (C4): the nine
// fixed, declared tools exposed to the LLM via function-calling schemas.
package tools

import "context"

// Tool is one callable, schema-declared tool.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON schema object
	Execute(ctx context.Context, args map[string]any, sessionID string) *Result
}

// Result is the wire shape `{ok, result, error}` from spec.md §4.4.
// Trimmed from the teacher's richer tools.Result (ForUser/Silent/Async/
// Usage fields serve a channel-bot UX this spec has no use for).
type Result struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Ok constructs a successful Result.
func Ok(result any) *Result {
	return &Result{OK: true, Result: result}
}

// Err constructs a failed Result. Handler errors never raise to the
// orchestrator as exceptions (spec.md §4.4); they are fed back to the
// LLM as tool output.
func Err(message string) *Result {
	return &Result{OK: false, Error: message}
}

// ToolDefinition is the schema shape consumed by the Provider Adapter
// (C7) for function-calling declarations.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}
