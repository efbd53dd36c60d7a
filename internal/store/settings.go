package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Settings keys.
const (
	SettingThresholds = "gesture.thresholds"
)

// SettingsRepository stores application settings as JSON values keyed by name.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get decodes the value stored under key into v.
func (r *SettingsRepository) Get(key string, v any) error {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal([]byte(value), v)
}

// Set stores v under key, replacing any previous value.
func (r *SettingsRepository) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), time.Now(),
	)
	return err
}

// Delete removes a setting. Deleting a missing key is not an error.
func (r *SettingsRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}
