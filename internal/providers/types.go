// Package providers implements the provider adapter (C7): a thin
// abstraction over a single local, OpenAI-compatible LLM endpoint.
package providers

import (
	"context"

	"github.com/agentrt/agentrt/internal/tools"
)

// Message is one entry in a chat completion request. Trimmed from the
// teacher's providers.Message: no Images field (vision is out of
// SPEC_FULL's scope).
type Message struct {
	Role       string     `json:"role"` // "system", "user", "assistant", "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ChatRequest is the input to a streaming chat completion.
type ChatRequest struct {
	Messages []Message              `json:"messages"`
	Tools    []tools.ToolDefinition `json:"tools,omitempty"`
	Model    string                 `json:"model,omitempty"`
}

// FrameKind enumerates the demultiplexed pieces of a streaming
// completion, feeding directly into the orchestrator's event grammar
// (spec.md §4.5): thinking/tool_calls/content map onto `thinking`,
// `tool_calls`, and `token` events respectively.
type FrameKind string

const (
	FrameThinking  FrameKind = "thinking"
	FrameToolCalls FrameKind = "tool_calls"
	FrameContent   FrameKind = "content"
	FrameDone      FrameKind = "done"
)

// Frame is one demultiplexed piece of a streaming response.
type Frame struct {
	Kind         FrameKind
	Thinking     string
	Content      string
	ToolCalls    []ToolCall
	FinishReason string // set on the FrameDone frame: "stop", "tool_calls", "length"
	Err          error  // set on the FrameDone frame if the stream failed
}

// Provider is the interface the orchestrator drives. Trimmed from the
// teacher's providers.Provider: a single ChatStream method returning a
// channel instead of a callback (so the orchestrator can select over it
// alongside cancellation), since SPEC_FULL pins exactly one
// OpenAI-compatible endpoint rather than a pluggable multi-backend set.
type Provider interface {
	// ChatStream streams a completion, closing the returned channel
	// after a FrameDone frame. Cancelling ctx stops the stream.
	ChatStream(ctx context.Context, req ChatRequest) (<-chan Frame, error)

	// ListModels returns the model ids the endpoint currently serves.
	ListModels(ctx context.Context) ([]string, error)

	// DefaultModel returns the configured default model id.
	DefaultModel() string

	// Name identifies the provider ("openai-compatible").
	Name() string
}
