package store

import (
	"database/sql"
	"time"
)

// RuleContextRepo provides insert/list/deactivate for RuleContextRow,
// the input feed to the retrieval index (C3).
type RuleContextRepo struct {
	db *sql.DB
}

// Insert adds a new active RuleContextRow.
func (r *RuleContextRepo) Insert(sessionID *string, source RuleContextSource, content string, filename *string) (*RuleContextRow, error) {
	now := time.Now().UTC()
	res, err := r.db.Exec(
		`INSERT INTO rule_context_rows (session_id, source, filename, content, active, created_at)
		 VALUES (?, ?, ?, ?, 1, ?)`,
		sessionID, string(source), filename, content, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &RuleContextRow{
		ID: id, SessionID: sessionID, Source: source, Filename: filename,
		Content: content, Active: true, CreatedAt: now,
	}, nil
}

// ListActive returns active rows for a session, in insertion order
// (spec.md §4.3's "concatenated in insertion order"). When sessionID is
// nil, returns the global/shared rows.
func (r *RuleContextRepo) ListActive(sessionID *string) ([]*RuleContextRow, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, source, filename, content, active, created_at
		 FROM rule_context_rows WHERE session_id IS ? AND active = 1 ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RuleContextRow
	for rows.Next() {
		var row RuleContextRow
		var sid, filename sql.NullString
		var source, created string
		var active int
		if err := rows.Scan(&row.ID, &sid, &source, &filename, &row.Content, &active, &created); err != nil {
			return nil, err
		}
		if sid.Valid {
			row.SessionID = &sid.String
		}
		if filename.Valid {
			row.Filename = &filename.String
		}
		row.Source = RuleContextSource(source)
		row.Active = active != 0
		row.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, &row)
	}
	return out, rows.Err()
}

// Deactivate marks a row inactive so it no longer feeds the retrieval index.
func (r *RuleContextRepo) Deactivate(id int64) error {
	res, err := r.db.Exec(`UPDATE rule_context_rows SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errNotFound("rule_context_row", idString(id))
	}
	return nil
}
