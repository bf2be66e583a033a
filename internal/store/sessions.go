package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/agentrt/agentrt/internal/apperr"
)

// SessionRepo provides typed CRUD for Session, grounded on the
// method-per-operation shape of store/pg/sessions.go.
type SessionRepo struct {
	db *sql.DB
}

// Upsert creates the session if absent, or updates its title
// (idempotent per spec.md §4.1).
func (r *SessionRepo) Upsert(id string, title *string) (*Session, error) {
	now := time.Now().UTC()

	existing, err := r.Get(id)
	if err != nil && apperrNotFound(err) {
		if _, err := r.db.Exec(
			`INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			id, title, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
		); err != nil {
			return nil, err
		}
		return &Session{ID: id, Title: title, CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, err
	}

	if title != nil {
		if _, err := r.db.Exec(
			`UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`,
			*title, now.Format(time.RFC3339Nano), id,
		); err != nil {
			return nil, err
		}
		existing.Title = title
		existing.UpdatedAt = now
	}
	return existing, nil
}

// EnsureExists creates the session with no title if it does not exist yet,
// implementing the "create-on-first-write" invariant from spec.md §3/§4.1.
func (r *SessionRepo) EnsureExists(id string) error {
	_, err := r.Upsert(id, nil)
	return err
}

// Get fetches a session by id.
func (r *SessionRepo) Get(id string) (*Session, error) {
	var s Session
	var title sql.NullString
	var created, updated string
	err := r.db.QueryRow(
		`SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &title, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("session", id)
	}
	if err != nil {
		return nil, err
	}
	if title.Valid {
		s.Title = &title.String
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &s, nil
}

// SetTitle sets the session title, used by the generate_chat_title tool.
func (r *SessionRepo) SetTitle(id, title string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := r.db.Exec(`UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`, title, now, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errNotFound("session", id)
	}
	return nil
}

// Delete removes a session; ON DELETE CASCADE removes dependent rows.
func (r *SessionRepo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errNotFound("session", id)
	}
	return nil
}

// List returns all sessions ordered by most recently updated.
func (r *SessionRepo) List() ([]*Session, error) {
	rows, err := r.db.Query(`SELECT id, title, created_at, updated_at FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var s Session
		var title sql.NullString
		var created, updated string
		if err := rows.Scan(&s.ID, &title, &created, &updated); err != nil {
			return nil, err
		}
		if title.Valid {
			s.Title = &title.String
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, &s)
	}
	return out, rows.Err()
}

func apperrNotFound(err error) bool {
	ae, ok := errAsAppErr(err)
	return ok && ae.Kind == apperr.KindNotFound
}
