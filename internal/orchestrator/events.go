// Package orchestrator implements the stream orchestrator (C5): the
// bounded, multi-round tool-calling loop that drives one chat turn and
// emits a strictly ordered event stream.
package orchestrator

// EventKind enumerates the event types in the turn grammar:
//
//	session_info rule_chunks (thinking|tool_calls)* token* end
type EventKind string

const (
	EventSessionInfo EventKind = "session_info"
	EventRuleChunks  EventKind = "rule_chunks"
	EventThinking    EventKind = "thinking"
	EventToolCalls   EventKind = "tool_calls"
	EventToken       EventKind = "token"
	EventEnd         EventKind = "end"
)

// EndReason enumerates how a turn concluded.
type EndReason string

const (
	EndComplete  EndReason = "complete"
	EndMaxRounds EndReason = "max_rounds"
	EndError     EndReason = "error"
)

// AnnouncedToolCall is one tool call as announced to the client, before
// execution: the model's requested name and raw argument JSON.
type AnnouncedToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Event is one frame of the turn's event stream. Exactly one of the
// payload fields is meaningful, selected by Kind — generalized from the
// teacher's callback-based AgentEvent (internal/agent/loop.go) into a
// value pushed onto a bounded channel instead of invoked as a callback,
// so the HTTP layer can range over it and the orchestrator can select
// on client disconnect without a callback crossing goroutine ownership.
type Event struct {
	Kind EventKind `json:"type"`

	SessionID string `json:"session_id,omitempty"` // session_info

	ChunkIDs []int    `json:"chunk_ids,omitempty"` // rule_chunks
	Texts    []string `json:"texts,omitempty"`     // rule_chunks

	Content string `json:"content,omitempty"` // thinking

	ToolCalls []AnnouncedToolCall `json:"tool_calls,omitempty"` // tool_calls

	Token string `json:"token,omitempty"` // token

	Reason EndReason `json:"reason,omitempty"` // end
	Error  string    `json:"error,omitempty"`  // end
}
