package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentrt/agentrt/internal/apperr"
	"github.com/agentrt/agentrt/internal/tools"
)

// OpenAIProvider implements Provider against a single OpenAI-compatible
// chat completions endpoint. Mechanism (SSE line scanner, tool-call
// delta accumulation by index) is adapted near-verbatim from the
// teacher's internal/providers/openai.go, trimmed of its
// multi-provider quirk handling (Gemini thought_signature collapsing,
// DashScope passthrough options, OpenRouter model-prefix resolution)
// since SPEC_FULL pins exactly one local endpoint.
type OpenAIProvider struct {
	baseURL      string
	apiKey       string
	defaultModel string
	client       *http.Client
}

func NewOpenAIProvider(baseURL, apiKey, defaultModel string) *OpenAIProvider {
	return &OpenAIProvider{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OpenAIProvider) Name() string        { return "openai-compatible" }
func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

func (p *OpenAIProvider) resolveModel(model string) string {
	if model == "" {
		return p.defaultModel
	}
	return model
}

// toolCallAccumulator reassembles one tool call from streamed
// argument-string deltas, keyed by the provider's per-call index.
type toolCallAccumulator struct {
	id      string
	name    string
	rawArgs strings.Builder
}

func (p *OpenAIProvider) ChatStream(ctx context.Context, req ChatRequest) (<-chan Frame, error) {
	model := p.resolveModel(req.Model)
	body := p.buildRequestBody(model, req)

	data, err := json.Marshal(body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "marshal chat request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build chat request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "chat completion request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, apperr.New(apperr.KindUpstreamUnavailable, fmt.Sprintf("upstream returned %d: %s", resp.StatusCode, string(respBody)))
	}

	frames := make(chan Frame, 16)
	go p.pump(ctx, resp.Body, frames)
	return frames, nil
}

func (p *OpenAIProvider) pump(ctx context.Context, body io.ReadCloser, frames chan<- Frame) {
	defer close(frames)
	defer body.Close()

	accumulators := map[int]*toolCallAccumulator{}
	order := []int{}
	finishReason := "stop"

	send := func(f Frame) bool {
		select {
		case frames <- f:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if ctx.Err() != nil {
			send(Frame{Kind: FrameDone, Err: ctx.Err()})
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta.ReasoningContent != "" {
			if !send(Frame{Kind: FrameThinking, Thinking: delta.ReasoningContent}) {
				return
			}
		}
		if delta.Content != "" {
			if !send(Frame{Kind: FrameContent, Content: delta.Content}) {
				return
			}
		}

		for _, tc := range delta.ToolCalls {
			acc, ok := accumulators[tc.Index]
			if !ok {
				acc = &toolCallAccumulator{id: tc.ID, name: strings.TrimSpace(tc.Function.Name)}
				accumulators[tc.Index] = acc
				order = append(order, tc.Index)
			}
			if tc.Function.Name != "" {
				acc.name = strings.TrimSpace(tc.Function.Name)
			}
			acc.rawArgs.WriteString(tc.Function.Arguments)
		}

		if chunk.Choices[0].FinishReason != "" {
			finishReason = chunk.Choices[0].FinishReason
		}
	}

	if err := scanner.Err(); err != nil {
		send(Frame{Kind: FrameDone, Err: apperr.Wrap(apperr.KindUpstreamUnavailable, "stream read failed", err)})
		return
	}

	if len(order) > 0 {
		var calls []ToolCall
		for _, idx := range order {
			acc := accumulators[idx]
			args := map[string]any{}
			if err := json.Unmarshal([]byte(acc.rawArgs.String()), &args); err != nil {
				send(Frame{Kind: FrameDone, Err: apperr.Wrap(apperr.KindUpstreamUnavailable, "malformed tool call arguments for "+acc.name, err)})
				return
			}
			calls = append(calls, ToolCall{ID: acc.id, Name: acc.name, Arguments: args})
		}
		finishReason = "tool_calls"
		if !send(Frame{Kind: FrameToolCalls, ToolCalls: calls}) {
			return
		}
	}

	send(Frame{Kind: FrameDone, FinishReason: finishReason})
}

func (p *OpenAIProvider) buildRequestBody(model string, req ChatRequest) map[string]any {
	msgs := make([]map[string]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		msg := map[string]any{"role": m.Role}
		if m.Content != "" || len(m.ToolCalls) == 0 {
			msg["content"] = m.Content
		}
		if len(m.ToolCalls) > 0 {
			toolCalls := make([]map[string]any, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				argsJSON, _ := json.Marshal(tc.Arguments)
				toolCalls[i] = map[string]any{
					"id":   tc.ID,
					"type": "function",
					"function": map[string]any{
						"name":      tc.Name,
						"arguments": string(argsJSON),
					},
				}
			}
			msg["tool_calls"] = toolCalls
		}
		if m.ToolCallID != "" {
			msg["tool_call_id"] = m.ToolCallID
		}
		msgs = append(msgs, msg)
	}

	body := map[string]any{
		"model":    model,
		"messages": msgs,
		"stream":   true,
	}
	if len(req.Tools) > 0 {
		body["tools"] = wireToolSchemas(req.Tools)
		body["tool_choice"] = "auto"
	}
	return body
}

// wireToolSchemas converts the closed tool registry's schemas into the
// OpenAI-compatible {type:"function", function:{...}} wire shape.
func wireToolSchemas(defs []tools.ToolDefinition) []map[string]any {
	out := make([]map[string]any, len(defs))
	for i, d := range defs {
		out[i] = map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        d.Name,
				"description": d.Description,
				"parameters":  d.Parameters,
			},
		}
	}
	return out
}

func (p *OpenAIProvider) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build models request", err)
	}
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "list models request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, apperr.New(apperr.KindUpstreamUnavailable, fmt.Sprintf("upstream returned %d: %s", resp.StatusCode, string(respBody)))
	}

	var parsed struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "decode models response", err)
	}

	ids := make([]string, len(parsed.Data))
	for i, m := range parsed.Data {
		ids[i] = m.ID
	}
	return ids, nil
}

// openAIStreamChunk mirrors the OpenAI-compatible SSE chunk envelope.
type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
			ToolCalls        []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
