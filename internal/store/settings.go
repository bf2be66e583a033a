package store

import (
	"database/sql"
	"errors"
)

// CurrentModelSettingKey is the AppSetting key holding the model id the
// orchestrator resolves for every new ChatStream call, per spec.md
// §4.7/§9's "current_model()/set_model(id) persisted via AppSetting".
const CurrentModelSettingKey = "current_model"

// SettingRepo holds the single process-wide key/value table, confining
// mutable global state (current model, etc.) to one place per spec.md §9's
// "global mutable state confined to the AppSetting layer" design note.
type SettingRepo struct {
	db *sql.DB
}

// Get returns the value for key, or ("", false) if unset.
func (r *SettingRepo) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Put upserts key=value.
func (r *SettingRepo) Put(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
