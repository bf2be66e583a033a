package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/agentrt/agentrt/internal/index"
	"github.com/agentrt/agentrt/internal/providers"
	"github.com/agentrt/agentrt/internal/store"
	"github.com/agentrt/agentrt/internal/tools"
)

// historyFetchLimit bounds how many past messages are pulled into a
// turn's prompt. Rolling summarization past this is a planned
// extension, out of core contract per spec.md §4.5 step 1.
const historyFetchLimit = 500

// Config carries the turn-loop budgets and retrieval defaults.
type Config struct {
	MaxToolRounds     int
	MaxTotalToolCalls int
	ToolCallTimeout   time.Duration
	DefaultTopK       int
}

// DefaultConfig returns the budgets from spec.md §6.
func DefaultConfig() Config {
	return Config{
		MaxToolRounds:     4,
		MaxTotalToolCalls: 15,
		ToolCallTimeout:   30 * time.Second,
		DefaultTopK:       5,
	}
}

// TurnOptions overrides Config's budgets for a single RunTurn call; a
// zero value means "use the Orchestrator's configured default".
type TurnOptions struct {
	MaxToolRounds     int
	MaxTotalToolCalls int
}

// Orchestrator is the stream orchestrator (C5): DI'd over the store,
// retrieval index, tool registry, and provider adapter. Grounded on the
// teacher's Loop/LoopConfig shape in internal/agent/loop.go, reworked
// for the spec's strict event grammar and tool-call budgets instead of
// the teacher's open-ended channel-bot loop.
type Orchestrator struct {
	store    *store.DB
	index    *index.Index
	registry *tools.Registry
	provider providers.Provider
	cfg      Config

	tracerProvider *sdktrace.TracerProvider

	// turnMu serializes turns per session: the second concurrent turn on
	// the same session blocks until the first emits `end`. Grounded on
	// the teacher's summarizeMu sync.Map (internal/agent/loop.go), which
	// serializes per-session summarization goroutines the same way.
	turnMu sync.Map // sessionID -> *sync.Mutex
}

// New constructs an Orchestrator.
func New(db *store.DB, idx *index.Index, registry *tools.Registry, provider providers.Provider, cfg Config) *Orchestrator {
	tp := newTracerProvider()
	registerGlobalTracerProvider(tp)
	return &Orchestrator{
		store:          db,
		index:          idx,
		registry:       registry,
		provider:       provider,
		cfg:            cfg,
		tracerProvider: tp,
	}
}

func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	v, _ := o.turnMu.LoadOrStore(sessionID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// resolveModel returns the operator-selected current_model AppSetting
// (spec.md §4.7/§9), falling back to the provider's startup-configured
// default when no selection has been persisted.
func (o *Orchestrator) resolveModel() string {
	model, ok, err := o.store.Settings.Get(store.CurrentModelSettingKey)
	if err != nil || !ok || model == "" {
		return o.provider.DefaultModel()
	}
	return model
}

// turnMetadata is the JSON shape stored in Message.Metadata for an
// assistant message, per spec.md §3: "metadata carries optional
// thinking text and a list of tool-call descriptors".
type turnMetadata struct {
	Thinking  string              `json:"thinking,omitempty"`
	ToolCalls []AnnouncedToolCall `json:"tool_calls,omitempty"`
	Partial   bool                `json:"partial,omitempty"`
}

// RunTurn drives one chat turn and returns a channel of Events in the
// grammar order session_info, rule_chunks, (thinking|tool_calls)*,
// token*, end. The channel is closed after the end event. Turns on
// different sessions run in parallel; two turns on the same session
// serialize on the per-session lock.
func (o *Orchestrator) RunTurn(ctx context.Context, sessionID, userInput string, opts TurnOptions) (<-chan Event, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if err := o.store.Sessions.EnsureExists(sessionID); err != nil {
		return nil, err
	}

	maxRounds := opts.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = o.cfg.MaxToolRounds
	}
	maxTotalCalls := opts.MaxTotalToolCalls
	if maxTotalCalls <= 0 {
		maxTotalCalls = o.cfg.MaxTotalToolCalls
	}

	mu := o.sessionLock(sessionID)
	mu.Lock()

	events := make(chan Event, 256)
	go func() {
		defer mu.Unlock()
		defer close(events)
		o.runTurn(ctx, sessionID, userInput, maxRounds, maxTotalCalls, events)
	}()
	return events, nil
}

// send pushes ev onto events, returning false if ctx was cancelled
// before it could be delivered (client disconnect).
func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) runTurn(ctx context.Context, sessionID, userInput string, maxRounds, maxTotalCalls int, events chan<- Event) {
	ctx, turnSpan := o.startTurnSpan(ctx, sessionID)
	defer turnSpan.End()

	if !send(ctx, events, Event{Kind: EventSessionInfo, SessionID: sessionID}) {
		return
	}

	history, err := o.store.Messages.List(sessionID, historyFetchLimit, 0)
	if err != nil {
		send(ctx, events, Event{Kind: EventRuleChunks})
		send(ctx, events, Event{Kind: EventEnd, Reason: EndError, Error: err.Error()})
		return
	}

	hits, _ := o.index.Retrieve(ctx, sessionID, userInput, o.cfg.DefaultTopK)
	chunkIDs, texts := chunkIDsAndTexts(hits)
	if !send(ctx, events, Event{Kind: EventRuleChunks, ChunkIDs: chunkIDs, Texts: texts}) {
		return
	}

	messages := buildMessages(history, hits, userInput)

	var thinkingAll, contentAll strings.Builder
	var executedCalls []AnnouncedToolCall
	var anyTokenEmitted bool
	totalToolCalls := 0
	toolResultCache := map[string]*tools.Result{}

	for round := 1; round <= maxRounds+1; round++ {
		isForced := round == maxRounds+1

		roundCtx, roundSpan := o.startRoundSpan(ctx, round)

		toolDefs := o.registry.Schemas()
		if isForced {
			toolDefs = nil
		}
		chatReq := providers.ChatRequest{Messages: messages, Tools: toolDefs, Model: o.resolveModel()}

		frames, err := o.provider.ChatStream(roundCtx, chatReq)
		if err != nil {
			endSpanWithErr(roundSpan, err)
			o.finishTurn(ctx, events, sessionID, userInput, contentAll.String(), thinkingAll.String(), executedCalls, anyTokenEmitted, EndError, err.Error())
			return
		}

		var roundContent strings.Builder
		var roundToolCalls []providers.ToolCall
		var streamErr error

		// Sends below ignore their bool: a client disconnect cancels ctx,
		// which the provider's own stream observes too (same ctx), so the
		// frame loop drains out naturally via a terminal FrameDone{Err:
		// ctx.Err()} — handled uniformly by the streamErr branch below,
		// including the partial-persistence rule.
		for f := range frames {
			switch f.Kind {
			case providers.FrameThinking:
				thinkingAll.WriteString(f.Thinking)
				send(ctx, events, Event{Kind: EventThinking, Content: f.Thinking})
			case providers.FrameContent:
				roundContent.WriteString(f.Content)
				anyTokenEmitted = anyTokenEmitted || f.Content != ""
				send(ctx, events, Event{Kind: EventToken, Token: f.Content})
			case providers.FrameToolCalls:
				roundToolCalls = append(roundToolCalls, f.ToolCalls...)
				send(ctx, events, Event{Kind: EventToolCalls, ToolCalls: announceToolCalls(f.ToolCalls)})
			case providers.FrameDone:
				streamErr = f.Err
			}
		}
		endSpanWithErr(roundSpan, streamErr)
		contentAll.WriteString(roundContent.String())

		if streamErr != nil {
			o.finishTurn(ctx, events, sessionID, userInput, contentAll.String(), thinkingAll.String(), executedCalls, anyTokenEmitted, EndError, streamErr.Error())
			return
		}

		if len(roundToolCalls) == 0 {
			o.finishTurn(ctx, events, sessionID, userInput, contentAll.String(), thinkingAll.String(), executedCalls, anyTokenEmitted, EndComplete, "")
			return
		}

		if isForced {
			// Forced content-only round still requested tools: give up.
			o.finishTurn(ctx, events, sessionID, userInput, contentAll.String(), thinkingAll.String(), executedCalls, anyTokenEmitted, EndMaxRounds, "")
			return
		}

		budgetExhausted := false
		assistantCall := providers.Message{Role: "assistant", Content: roundContent.String(), ToolCalls: roundToolCalls}
		messages = append(messages, assistantCall)

		for _, call := range roundToolCalls {
			result, ok := toolResultCache[call.ID]
			if !ok {
				if totalToolCalls >= maxTotalCalls {
					budgetExhausted = true
					break
				}
				result = o.executeTool(ctx, call, sessionID)
				toolResultCache[call.ID] = result
				totalToolCalls++
			}
			executedCalls = append(executedCalls, AnnouncedToolCall{ID: call.ID, Name: call.Name, Arguments: marshalArgs(call.Arguments)})
			messages = append(messages, toolResultMessage(call, result))
		}

		if budgetExhausted {
			contentAll.WriteString("[tool call budget exhausted]")
			send(ctx, events, Event{Kind: EventToken, Token: "[tool call budget exhausted]"})
			o.finishTurn(ctx, events, sessionID, userInput, contentAll.String(), thinkingAll.String(), executedCalls, true, EndMaxRounds, "")
			return
		}
	}
}

// finishTurn persists the turn's messages (subject to the partial-
// persistence rule) and emits the terminal `end` event.
func (o *Orchestrator) finishTurn(ctx context.Context, events chan<- Event, sessionID, userInput, content, thinking string, calls []AnnouncedToolCall, anyTokenEmitted bool, reason EndReason, errMsg string) {
	partial := reason == EndError
	if reason != EndError || anyTokenEmitted {
		if err := o.persistTurn(sessionID, userInput, content, thinking, calls, partial); err != nil {
			send(ctx, events, Event{Kind: EventEnd, Reason: EndError, Error: err.Error()})
			return
		}
	}
	send(ctx, events, Event{Kind: EventEnd, Reason: reason, Error: errMsg})
}

func (o *Orchestrator) persistTurn(sessionID, userInput, content, thinking string, calls []AnnouncedToolCall, partial bool) error {
	if _, err := o.store.Messages.Append(o.store.Sessions, sessionID, store.RoleUser, userInput, nil); err != nil {
		return err
	}

	var metaPtr *string
	if thinking != "" || len(calls) > 0 || partial {
		meta := turnMetadata{Thinking: thinking, ToolCalls: calls, Partial: partial}
		b, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		s := string(b)
		metaPtr = &s
	}

	_, err := o.store.Messages.Append(o.store.Sessions, sessionID, store.RoleAssistant, content, metaPtr)
	return err
}

func (o *Orchestrator) executeTool(ctx context.Context, call providers.ToolCall, sessionID string) *tools.Result {
	toolCtx, cancel := context.WithTimeout(ctx, o.cfg.ToolCallTimeout)
	defer cancel()

	spanCtx, span := o.startToolSpan(toolCtx, call.Name, call.ID)
	result := o.registry.Execute(spanCtx, call.Name, call.Arguments, sessionID)
	if !result.OK {
		endSpanWithErr(span, errors.New(result.Error))
	} else {
		span.End()
	}
	return result
}

// RunOneShot implements tools.OneShot: a single non-streaming-to-the-
// client completion with tool calling disabled, driven by a fixed
// system instruction instead of the turn persona (spec.md §4.6).
func (o *Orchestrator) RunOneShot(ctx context.Context, sessionID, systemInstruction string) (string, error) {
	history, err := o.store.Messages.List(sessionID, historyFetchLimit, 0)
	if err != nil {
		return "", err
	}

	messages := make([]providers.Message, 0, len(history)+1)
	messages = append(messages, providers.Message{Role: "system", Content: systemInstruction})
	for _, m := range history {
		messages = append(messages, providers.Message{Role: string(m.Role), Content: m.Content})
	}

	frames, err := o.provider.ChatStream(ctx, providers.ChatRequest{Messages: messages, Model: o.resolveModel()})
	if err != nil {
		return "", err
	}

	var content strings.Builder
	for f := range frames {
		switch f.Kind {
		case providers.FrameContent:
			content.WriteString(f.Content)
		case providers.FrameDone:
			if f.Err != nil {
				return "", f.Err
			}
		}
	}
	return content.String(), nil
}

// RunOneShotStream is RunOneShot's streaming counterpart, for the
// export layer's `?stream=true` artifact-derivation routes (spec.md
// §4.6/§6): same fixed-instruction, tool-disabled one-shot completion,
// but demultiplexed onto an Event channel of `token`/`end` frames
// instead of being collected into a single string. The caller is
// responsible for accumulating token content if it needs the final
// text (the export layer does this to upsert the artifact once the
// stream completes).
func (o *Orchestrator) RunOneShotStream(ctx context.Context, sessionID, systemInstruction string) (<-chan Event, error) {
	history, err := o.store.Messages.List(sessionID, historyFetchLimit, 0)
	if err != nil {
		return nil, err
	}

	messages := make([]providers.Message, 0, len(history)+1)
	messages = append(messages, providers.Message{Role: "system", Content: systemInstruction})
	for _, m := range history {
		messages = append(messages, providers.Message{Role: string(m.Role), Content: m.Content})
	}

	frames, err := o.provider.ChatStream(ctx, providers.ChatRequest{Messages: messages, Model: o.resolveModel()})
	if err != nil {
		return nil, err
	}

	events := make(chan Event, 256)
	go func() {
		defer close(events)
		var streamErr error
		for f := range frames {
			switch f.Kind {
			case providers.FrameContent:
				send(ctx, events, Event{Kind: EventToken, Token: f.Content})
			case providers.FrameDone:
				streamErr = f.Err
			}
		}
		reason, errMsg := EndComplete, ""
		if streamErr != nil {
			reason, errMsg = EndError, streamErr.Error()
		}
		send(ctx, events, Event{Kind: EventEnd, Reason: reason, Error: errMsg})
	}()
	return events, nil
}

func announceToolCalls(calls []providers.ToolCall) []AnnouncedToolCall {
	out := make([]AnnouncedToolCall, len(calls))
	for i, c := range calls {
		out[i] = AnnouncedToolCall{ID: c.ID, Name: c.Name, Arguments: marshalArgs(c.Arguments)}
	}
	return out
}

func marshalArgs(args map[string]any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func toolResultMessage(call providers.ToolCall, result *tools.Result) providers.Message {
	b, err := json.Marshal(result)
	content := string(b)
	if err != nil {
		content = `{"ok":false,"error":"failed to encode tool result"}`
	}
	return providers.Message{Role: "tool", Content: content, ToolCallID: call.ID}
}
