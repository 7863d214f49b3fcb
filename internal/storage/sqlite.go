package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pressly/goose/v3"

	"github.com/runmateapp/runmate-client/internal/dbx"
	"github.com/runmateapp/runmate-client/internal/logging"
	"github.com/runmateapp/runmate-client/internal/storage/migrations"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the KV implementation backed by a local sqlite file.
type SQLiteStore struct {
	db  *sql.DB
	log logging.Logger
}

// Open opens (creating if needed) the local state database at dsn, runs the
// embedded migrations, and returns a ready store.
func Open(ctx context.Context, dsn string, log logging.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewSQLiteStore(db, log), nil
}

// NewSQLiteStore wraps an already-migrated database handle. Used by tests.
func NewSQLiteStore(db *sql.DB, log logging.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, log: log}
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string, out any) bool {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		s.log.Warn(ctx, "kv read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(value, out); err != nil {
		// Corrupt local state degrades to the default.
		s.log.Warn(ctx, "kv value malformed", "key", key, "error", err)
		return false
	}
	return true
}

func (s *SQLiteStore) GetString(ctx context.Context, key string) string {
	var v string
	s.Get(ctx, key, &v)
	return v
}

func (s *SQLiteStore) Set(ctx context.Context, key string, v any) {
	value, err := json.Marshal(v)
	if err != nil {
		s.log.Warn(ctx, "kv value not serializable", "key", key, "error", err)
		return
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		s.log.Warn(ctx, "kv write failed", "key", key, "error", err)
	}
}

func (s *SQLiteStore) SetString(ctx context.Context, key, value string) {
	s.Set(ctx, key, value)
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		s.log.Warn(ctx, "kv delete failed", "key", key, "error", err)
	}
}

func (s *SQLiteStore) ClearCredentials(ctx context.Context) {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, key := range []string{KeyUser, KeySession} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warn(ctx, "credential clear failed", "error", err)
	}
}
