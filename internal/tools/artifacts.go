package tools

import (
	"context"

	"github.com/agentrt/agentrt/internal/store"
)

// OneShot runs the Stream Orchestrator (C5) in one-shot, tool-disabled
// mode: a fixed system instruction plus the session's history, returning
// the completion text. Satisfied by orchestrator.Orchestrator; declared
// here (not imported from orchestrator) so C4 has no dependency on C5 —
// the orchestrator depends on the tool registry, not the other way
// around, per spec.md §9's "cyclic references collapse to DI" note.
type OneShot interface {
	RunOneShot(ctx context.Context, sessionID, systemInstruction string) (string, error)
}

// Fixed one-shot instructions per artifact type (spec.md §4.6), exported
// so the export layer's direct derive-artifact HTTP routes and these
// tool handlers share one source of truth instead of each spelling out
// the instruction text.
const (
	ProjectIdeaInstruction = "Based on the conversation so far, write a concise project idea " +
		"description: the problem it solves, who it's for, and its core mechanic. Plain prose, " +
		"no headings required."
	TechStackInstruction = "Based on the conversation so far, propose a technology stack for the " +
		"project: list the main languages, frameworks, libraries, and infrastructure choices with a " +
		"one-line justification each."
	SubmissionSummaryInstruction = "Based on the conversation so far, write a short submission " +
		"summary suitable for a hackathon judge: what was built, what works, and what's left out."
)

// artifactTool is the shared shape of the three history-derived
// artifacts: run a fixed one-shot instruction, upsert the result.
type artifactTool struct {
	name         string
	description  string
	artifactType store.ArtifactType
	instruction  string
	artifacts    *store.ArtifactRepo
	runner       OneShot
}

func (t *artifactTool) Name() string        { return t.name }
func (t *artifactTool) Description() string { return t.description }
func (t *artifactTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"session_id": map[string]any{"type": "string"},
		},
		"required": []string{"session_id"},
	}
}

func (t *artifactTool) Execute(ctx context.Context, args map[string]any, sessionID string) *Result {
	sid, _ := args["session_id"].(string)
	if sid == "" {
		sid = sessionID
	}
	if sid == "" {
		return Err("session_id is required")
	}

	content, err := t.runner.RunOneShot(ctx, sid, t.instruction)
	if err != nil {
		return Err(err.Error())
	}

	artifact, err := t.artifacts.Put(sid, t.artifactType, content, nil)
	if err != nil {
		return Err(err.Error())
	}
	return Ok(artifact)
}

func NewDeriveProjectIdeaTool(artifacts *store.ArtifactRepo, runner OneShot) Tool {
	return &artifactTool{
		name:         "derive_project_idea",
		description:  "Generates and stores the idea artifact.",
		artifactType: store.ArtifactProjectIdea,
		instruction:  ProjectIdeaInstruction,
		artifacts:    artifacts,
		runner:       runner,
	}
}

func NewCreateTechStackTool(artifacts *store.ArtifactRepo, runner OneShot) Tool {
	return &artifactTool{
		name:         "create_tech_stack",
		description:  "Generates and stores the tech-stack artifact.",
		artifactType: store.ArtifactTechStack,
		instruction:  TechStackInstruction,
		artifacts:    artifacts,
		runner:       runner,
	}
}

func NewSummarizeChatHistoryTool(artifacts *store.ArtifactRepo, runner OneShot) Tool {
	return &artifactTool{
		name:         "summarize_chat_history",
		description:  "Generates and stores the submission-summary artifact.",
		artifactType: store.ArtifactSubmissionSummary,
		instruction:  SubmissionSummaryInstruction,
		artifacts:    artifacts,
		runner:       runner,
	}
}
