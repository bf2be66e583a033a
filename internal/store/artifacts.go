package store

import (
	"database/sql"
	"errors"
	"time"
)

// ArtifactRepo provides get/list/put with upsert semantics, at most one
// active artifact per (session_id, artifact_type) per spec.md §3.
type ArtifactRepo struct {
	db *sql.DB
}

// Put creates or replaces the artifact for (sessionID, artifactType).
func (r *ArtifactRepo) Put(sessionID string, artifactType ArtifactType, content string, metadata *string) (*Artifact, error) {
	now := time.Now().UTC()

	existing, err := r.Get(sessionID, artifactType)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	if existing != nil {
		if _, err := r.db.Exec(
			`UPDATE artifacts SET content = ?, metadata = ?, updated_at = ? WHERE session_id = ? AND artifact_type = ?`,
			content, metadata, now.Format(time.RFC3339Nano), sessionID, string(artifactType),
		); err != nil {
			return nil, err
		}
		existing.Content = content
		existing.Metadata = metadata
		existing.UpdatedAt = now
		return existing, nil
	}

	res, err := r.db.Exec(
		`INSERT INTO artifacts (session_id, artifact_type, content, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, string(artifactType), content, metadata, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Artifact{
		ID: id, SessionID: sessionID, ArtifactType: artifactType,
		Content: content, Metadata: metadata, CreatedAt: now, UpdatedAt: now,
	}, nil
}

// Get fetches the active artifact of a type for a session, if any.
func (r *ArtifactRepo) Get(sessionID string, artifactType ArtifactType) (*Artifact, error) {
	var a Artifact
	var metadata sql.NullString
	var created, updated string
	err := r.db.QueryRow(
		`SELECT id, session_id, artifact_type, content, metadata, created_at, updated_at
		 FROM artifacts WHERE session_id = ? AND artifact_type = ?`,
		sessionID, string(artifactType),
	).Scan(&a.ID, &a.SessionID, (*string)(&a.ArtifactType), &a.Content, &metadata, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("artifact", sessionID+"/"+string(artifactType))
	}
	if err != nil {
		return nil, err
	}
	if metadata.Valid {
		a.Metadata = &metadata.String
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &a, nil
}

// List returns every artifact for a session.
func (r *ArtifactRepo) List(sessionID string) ([]*Artifact, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, artifact_type, content, metadata, created_at, updated_at
		 FROM artifacts WHERE session_id = ? ORDER BY artifact_type`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Artifact
	for rows.Next() {
		var a Artifact
		var metadata sql.NullString
		var created, updated string
		var artifactType string
		if err := rows.Scan(&a.ID, &a.SessionID, &artifactType, &a.Content, &metadata, &created, &updated); err != nil {
			return nil, err
		}
		a.ArtifactType = ArtifactType(artifactType)
		if metadata.Valid {
			a.Metadata = &metadata.String
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, &a)
	}
	return out, rows.Err()
}

func isNotFound(err error) bool {
	return apperrNotFound(err)
}
