package store

import (
	"database/sql"
	"strconv"
	"time"
)

// TaskRepo provides typed CRUD for Task (the todo list), grounded on
// store/pg/teams_tasks.go's create/list/update shape.
type TaskRepo struct {
	db *sql.DB
}

// Create appends a task, optionally scoped to a session.
func (r *TaskRepo) Create(sessionID *string, item string, priority int) (*Task, error) {
	if priority < 1 || priority > 5 {
		priority = 3
	}
	now := time.Now().UTC()

	var nextOrder int
	row := r.db.QueryRow(`SELECT COALESCE(MAX(sort_order), -1) + 1 FROM tasks WHERE session_id IS ?`, sessionID)
	if err := row.Scan(&nextOrder); err != nil {
		return nil, err
	}

	res, err := r.db.Exec(
		`INSERT INTO tasks (session_id, item, status, priority, sort_order, created_at, updated_at)
		 VALUES (?, ?, 'pending', ?, ?, ?, ?)`,
		sessionID, item, priority, nextOrder, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Task{
		ID: id, SessionID: sessionID, Item: item, Status: TaskPending,
		Priority: priority, SortOrder: nextOrder, CreatedAt: now, UpdatedAt: now,
	}, nil
}

// List returns tasks filtered by session id (nil = global tasks only).
func (r *TaskRepo) List(sessionID *string) ([]*Task, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, item, status, priority, sort_order, created_at, updated_at, completed_at
		 FROM tasks WHERE session_id IS ? ORDER BY sort_order, id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]*Task, error) {
	var out []*Task
	for rows.Next() {
		var t Task
		var sid, created, updated sql.NullString
		var completed sql.NullString
		var status string
		if err := rows.Scan(&t.ID, &sid, &t.Item, &status, &t.Priority, &t.SortOrder, &created, &updated, &completed); err != nil {
			return nil, err
		}
		if sid.Valid {
			t.SessionID = &sid.String
		}
		t.Status = TaskStatus(status)
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, created.String)
		t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated.String)
		if completed.Valid {
			ts, _ := time.Parse(time.RFC3339Nano, completed.String)
			t.CompletedAt = &ts
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// SetStatus updates a task's status, stamping completed_at when the new
// status is "done" (spec.md §3: "status=done sets completed_at").
func (r *TaskRepo) SetStatus(id int64, status TaskStatus) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var completedAt any
	if status == TaskDone {
		completedAt = now
	}
	res, err := r.db.Exec(
		`UPDATE tasks SET status = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		string(status), now, completedAt, id,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errNotFound("task", idString(id))
	}
	return nil
}

// Delete removes a single task.
func (r *TaskRepo) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errNotFound("task", idString(id))
	}
	return nil
}

// ClearAll deletes every task scoped to sessionID. Per spec.md §3,
// "Clear all" is allowed only when scoped by a session id — callers must
// never invoke this with an empty sessionID.
func (r *TaskRepo) ClearAll(sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, errValidation("clear_todos requires a session_id")
	}
	res, err := r.db.Exec(`DELETE FROM tasks WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
