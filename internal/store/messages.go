package store

import (
	"database/sql"
	"time"
)

// MessageRepo provides typed CRUD for Message.
type MessageRepo struct {
	db *sql.DB
}

// Append appends a message to a session, creating the session first if it
// does not exist yet (spec.md §3's "Message.session_id must refer to an
// existing Session... create-on-first-write" invariant).
func (r *MessageRepo) Append(sessions *SessionRepo, sessionID string, role Role, content string, metadata *string) (*Message, error) {
	if err := sessions.EnsureExists(sessionID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := r.db.Exec(
		`INSERT INTO messages (session_id, role, content, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, string(role), content, metadata, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if _, err := r.db.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, now.Format(time.RFC3339Nano), sessionID); err != nil {
		return nil, err
	}

	return &Message{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: now,
	}, nil
}

// List returns messages for a session ordered by created_at then id
// (spec.md §3 ordering), optionally paginated.
func (r *MessageRepo) List(sessionID string, limit, offset int) ([]*Message, error) {
	query := `SELECT id, session_id, role, content, metadata, created_at FROM messages WHERE session_id = ? ORDER BY created_at, id`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		var role, created string
		var metadata sql.NullString
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &metadata, &created); err != nil {
			return nil, err
		}
		m.Role = Role(role)
		if metadata.Valid {
			m.Metadata = &metadata.String
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, &m)
	}
	return out, rows.Err()
}

// Count returns the number of messages in a session (used by export's
// session_metadata.json message_count field).
func (r *MessageRepo) Count(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
