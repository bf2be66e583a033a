// Package export implements the artifact-derivation and session-export
// layer (C6): non-streaming and streaming derivation of the three fixed
// artifacts via the stream orchestrator's one-shot mode, plus the
// deterministic ZIP packer for the whole-session export route.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentrt/agentrt/internal/apperr"
	"github.com/agentrt/agentrt/internal/orchestrator"
	"github.com/agentrt/agentrt/internal/store"
	"github.com/agentrt/agentrt/internal/tools"
)

// instructionFor maps an artifact type to its fixed one-shot instruction,
// reusing the exported constants in the tools package so the tool-invoked
// derivation path (internal/tools/artifacts.go) and this direct HTTP-route
// path never drift apart.
func instructionFor(artifactType store.ArtifactType) (string, error) {
	switch artifactType {
	case store.ArtifactProjectIdea:
		return tools.ProjectIdeaInstruction, nil
	case store.ArtifactTechStack:
		return tools.TechStackInstruction, nil
	case store.ArtifactSubmissionSummary:
		return tools.SubmissionSummaryInstruction, nil
	default:
		return "", apperr.New(apperr.KindValidation, fmt.Sprintf("unsupported artifact type %q", artifactType))
	}
}

// Deriver runs artifact derivation directly against the orchestrator,
// bypassing the tool-dispatch layer — the HTTP routes in spec.md §6
// (derive-project-idea, create-tech-stack, summarize-chat-history) call
// this, while the LLM-invoked equivalents go through internal/tools.
type Deriver struct {
	orch      *orchestrator.Orchestrator
	artifacts *store.ArtifactRepo
}

// NewDeriver constructs a Deriver.
func NewDeriver(orch *orchestrator.Orchestrator, artifacts *store.ArtifactRepo) *Deriver {
	return &Deriver{orch: orch, artifacts: artifacts}
}

// Derive runs the fixed one-shot instruction for artifactType against the
// session's history and upserts the resulting artifact, returning the
// stored row.
func (d *Deriver) Derive(ctx context.Context, sessionID string, artifactType store.ArtifactType) (*store.Artifact, error) {
	instruction, err := instructionFor(artifactType)
	if err != nil {
		return nil, err
	}

	content, err := d.orch.RunOneShot(ctx, sessionID, instruction)
	if err != nil {
		return nil, err
	}

	return d.artifacts.Put(sessionID, artifactType, content, nil)
}

// DeriveStream is Derive's streaming counterpart for the `?stream=true`
// variant of the derive routes: it relays orchestrator.Event tokens to
// the caller as they arrive, and upserts the accumulated artifact once
// the stream reports a complete end event. The returned channel carries
// the same token/end event grammar as RunOneShotStream; the artifact
// persist happens as a side effect just before the terminal event is
// forwarded, so a caller that drains the channel to completion is
// guaranteed the artifact is already stored.
func (d *Deriver) DeriveStream(ctx context.Context, sessionID string, artifactType store.ArtifactType) (<-chan orchestrator.Event, error) {
	instruction, err := instructionFor(artifactType)
	if err != nil {
		return nil, err
	}

	upstream, err := d.orch.RunOneShotStream(ctx, sessionID, instruction)
	if err != nil {
		return nil, err
	}

	out := make(chan orchestrator.Event, 16)
	go func() {
		defer close(out)
		var content strings.Builder
		for ev := range upstream {
			if ev.Kind == orchestrator.EventToken {
				content.WriteString(ev.Token)
			}
			if ev.Kind == orchestrator.EventEnd && ev.Reason == orchestrator.EndComplete {
				if _, putErr := d.artifacts.Put(sessionID, artifactType, content.String(), nil); putErr != nil {
					out <- orchestrator.Event{Kind: orchestrator.EventEnd, Reason: orchestrator.EndError, Error: putErr.Error()}
					return
				}
			}
			out <- ev
		}
	}()
	return out, nil
}
