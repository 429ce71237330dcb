package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	blob BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_expires ON cache_entries(expires_at);
`

// SQLite is a Store backed by a single table in a SQLite database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens or creates the cache database at path and ensures its
// schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database %q: %w", path, err)
	}
	// SQLite allows one writer; serialize through a single connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache_entries table: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM cache_entries WHERE key = ? AND expires_at > ?`,
		key, s.now().UnixNano()).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache key %q: %w", key, err)
	}
	return blob, true, nil
}

// Put replaces any previous value for key and sweeps expired rows.
func (s *SQLite) Put(ctx context.Context, key string, blob []byte, ttl time.Duration) error {
	now := s.now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning cache write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at <= ?`, now.UnixNano()); err != nil {
		return fmt.Errorf("sweeping expired cache entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cache_entries (key, blob, created_at, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			blob = excluded.blob,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		key, blob, now.UnixNano(), now.Add(ttl).UnixNano()); err != nil {
		return fmt.Errorf("writing cache key %q: %w", key, err)
	}
	return tx.Commit()
}

// Open returns the SQLite cache at path, or an in-memory cache when path is
// empty. The returned close function releases the store.
func Open(path string) (Store, func() error, error) {
	if path == "" {
		return NewTimed(), func() error { return nil }, nil
	}
	s, err := OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}
