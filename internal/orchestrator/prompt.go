package orchestrator

import (
	"fmt"
	"strings"

	"github.com/agentrt/agentrt/internal/index"
	"github.com/agentrt/agentrt/internal/providers"
	"github.com/agentrt/agentrt/internal/store"
)

// personaInstruction is the fixed persona/instruction block prepended to
// every system prompt, per spec.md §4.5 step 3. Grounded on the
// teacher's BuildSystemPrompt (internal/agent/loop_history.go), trimmed
// to the fixed single-persona shape this spec calls for (no workspace,
// channel, or skills sections — there is no sandbox or multi-channel
// surface here).
const personaInstruction = `You are a helpful project-building assistant. You help the user shape ` +
	`an idea, plan a tech stack, track todos, and prepare a submission. Use the tools available to ` +
	`you when they would help (tracking todos, listing the workspace, generating artifacts). Keep ` +
	`answers concise and actionable.`

// buildSystemPrompt assembles the persona block followed by the
// retrieved chunks (tagged with stable ids) and a closing note that
// tools may be called.
func buildSystemPrompt(hits []index.Hit) string {
	var b strings.Builder
	b.WriteString(personaInstruction)

	if len(hits) > 0 {
		b.WriteString("\n\nRelevant context, tagged by chunk id:\n")
		for _, h := range hits {
			fmt.Fprintf(&b, "[chunk %d] %s\n", h.ChunkID, h.Text)
		}
	}

	b.WriteString("\nTools may be called when they help answer the user's request.")
	return b.String()
}

// buildMessages constructs the full provider message list: system
// prompt, session history, then the new user message. Grounded on
// buildMessages in the teacher's internal/agent/loop_history.go,
// trimmed of summary injection, media attachment, and context-pruning
// (rolling summarization is explicitly out of core contract per
// spec.md §4.5 step 1).
func buildMessages(history []*store.Message, hits []index.Hit, userInput string) []providers.Message {
	messages := make([]providers.Message, 0, len(history)+2)
	messages = append(messages, providers.Message{
		Role:    "system",
		Content: buildSystemPrompt(hits),
	})
	for _, m := range history {
		messages = append(messages, providers.Message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	messages = append(messages, providers.Message{
		Role:    "user",
		Content: userInput,
	})
	return messages
}

func chunkIDsAndTexts(hits []index.Hit) ([]int, []string) {
	ids := make([]int, len(hits))
	texts := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
		texts[i] = h.Text
	}
	return ids, texts
}
