// Package storage provides the on-device key-value store consumed for the
// dedup snapshot, the session watermark, and the config snapshot. Values
// are stored as JSON and keys are scoped per project so two SDK instances
// with different projects never collide.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/clix-so/clix-go/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	k TEXT PRIMARY KEY,
	v TEXT NOT NULL
);
`

// SQLiteStore is a durable KeyValueStore backed by an embedded SQLite
// database. It is the production store; MemoryStore covers tests and the
// simulator.
type SQLiteStore struct {
	db        *sql.DB
	projectID string
	logger    types.Logger
}

var _ types.KeyValueStore = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and ensures
// the schema exists.
func OpenSQLite(path, projectID string, logger types.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeStorageOpen, fmt.Sprintf("failed to open storage at %s", path), err)
	}

	// The store is accessed from handler goroutines; a single connection
	// serializes writes and sidesteps SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, types.NewAppError(types.ErrCodeStorageOpen, "failed to create storage schema", err)
	}

	return &SQLiteStore{db: db, projectID: projectID, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get decodes the stored value for key into dest. A key that was never set
// reports found=false, not an error.
func (s *SQLiteStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv_entries WHERE k = ?`, s.scoped(key)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, types.NewAppError(types.ErrCodeStorageRead, fmt.Sprintf("failed to read key %s", key), err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, types.NewAppError(types.ErrCodeStorageEncode, fmt.Sprintf("failed to decode value for key %s", key), err)
	}
	return true, nil
}

// Set stores the JSON encoding of value under key, replacing any previous
// value.
func (s *SQLiteStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return types.NewAppError(types.ErrCodeStorageEncode, fmt.Sprintf("failed to encode value for key %s", key), err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
		s.scoped(key), string(raw),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeStorageWrite, fmt.Sprintf("failed to write key %s", key), err)
	}
	return nil
}

// Remove deletes key. Removing an absent key succeeds.
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE k = ?`, s.scoped(key))
	if err != nil {
		return types.NewAppError(types.ErrCodeStorageWrite, fmt.Sprintf("failed to remove key %s", key), err)
	}
	return nil
}

func (s *SQLiteStore) scoped(key string) string {
	return s.projectID + "/" + key
}
