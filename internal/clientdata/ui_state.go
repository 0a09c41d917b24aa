package clientdata

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// UIStateStore is the client-local key/value store (the dashboard's
// localStorage equivalent). Values survive restarts.
type UIStateStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewUIStateStore creates a store over the ui_state table of client_data.db.
func NewUIStateStore(db *sql.DB) *UIStateStore {
	return &UIStateStore{db: db, now: time.Now}
}

// GetString returns the stored value and whether the key exists.
func (s *UIStateStore) GetString(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM ui_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get ui state %s: %w", key, err)
	}
	return value, true, nil
}

// SetString upserts a value.
func (s *UIStateStore) SetString(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO ui_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set ui state %s: %w", key, err)
	}
	return nil
}

// GetInt64 returns an integer value. A missing key reports ok=false; an
// unparseable value is an error.
func (s *UIStateStore) GetInt64(key string) (int64, bool, error) {
	raw, ok, err := s.GetString(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("ui state %s is not an integer: %w", key, err)
	}
	return v, true, nil
}

// SetInt64 stores an integer value.
func (s *UIStateStore) SetInt64(key string, value int64) error {
	return s.SetString(key, strconv.FormatInt(value, 10))
}

// Delete removes a key. Missing keys are not an error.
func (s *UIStateStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM ui_state WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete ui state %s: %w", key, err)
	}
	return nil
}
