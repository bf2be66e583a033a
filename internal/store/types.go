// Package store implements the persistent relational layer (C1):
// sessions, messages, tasks, artifacts, rule-context rows, and settings,
// backed by a single SQLite file with lexicographic migrations.
package store

import "time"

// Session is a chat session.
type Session struct {
	ID        string
	Title     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role enumerates message roles.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one append-only chat message.
type Message struct {
	ID        int64
	SessionID string
	Role      Role
	Content   string
	Metadata  *string // raw JSON
	CreatedAt time.Time
}

// TaskStatus enumerates task lifecycle states.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Task is a todo item, optionally scoped to a session.
type Task struct {
	ID          int64
	SessionID   *string
	Item        string
	Status      TaskStatus
	Priority    int
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// ArtifactType enumerates the closed set of derived artifact kinds.
type ArtifactType string

const (
	ArtifactProjectIdea        ArtifactType = "project_idea"
	ArtifactTechStack          ArtifactType = "tech_stack"
	ArtifactSubmissionSummary  ArtifactType = "submission_summary"
)

// Artifact is a derived document, at most one active per (session, type).
type Artifact struct {
	ID           int64
	SessionID    string
	ArtifactType ArtifactType
	Content      string
	Metadata     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RuleContextSource enumerates where a RuleContextRow came from.
type RuleContextSource string

const (
	SourceInitial RuleContextSource = "initial"
	SourceFile    RuleContextSource = "file"
	SourceText    RuleContextSource = "text"
	SourceURL     RuleContextSource = "url"
)

// RuleContextRow is one piece of ingested context feeding the retrieval index.
type RuleContextRow struct {
	ID        int64
	SessionID *string
	Source    RuleContextSource
	Filename  *string
	Content   string
	Active    bool
	CreatedAt time.Time
}
