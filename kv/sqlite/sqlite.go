// Package sqlite is a durable kv.KV on modernc.org/sqlite (pure Go, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/tiercache/kv"
)

const schema = `CREATE TABLE IF NOT EXISTS kv_entries (
	k TEXT PRIMARY KEY,
	s BLOB,
	n INTEGER
)`

// Store keeps strings in column s and longs in column n of one table.
type Store struct {
	sqlDB *sql.DB
}

var (
	_ kv.KV          = (*Store)(nil)
	_ kv.EntryWriter = (*Store)(nil)
)

// Open opens (or creates) the database at path. ":memory:" gives a private
// in-memory database pinned to a single connection.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite kv: path is required")
	}
	inMemory := path == ":memory:"
	dsn := path
	if !inMemory {
		dsn = "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if inMemory {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) db() (*sql.DB, error) {
	if s == nil || s.sqlDB == nil {
		return nil, kv.ErrClosed
	}
	return s.sqlDB, nil
}

func (s *Store) ReadString(ctx context.Context, key string) (string, bool, error) {
	db, err := s.db()
	if err != nil {
		return "", false, err
	}
	var b []byte
	err = db.QueryRowContext(ctx, `SELECT s FROM kv_entries WHERE k = ? AND s IS NOT NULL`, key).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read string %q: %w", key, err)
	}
	return string(b), true, nil
}

func (s *Store) WriteString(ctx context.Context, key, value string) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	return upsertString(ctx, db, key, value)
}

func (s *Store) ReadLong(ctx context.Context, key string) (int64, bool, error) {
	db, err := s.db()
	if err != nil {
		return 0, false, err
	}
	var n int64
	err = db.QueryRowContext(ctx, `SELECT n FROM kv_entries WHERE k = ? AND n IS NOT NULL`, key).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read long %q: %w", key, err)
	}
	return n, true, nil
}

func (s *Store) WriteLong(ctx context.Context, key string, value int64) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	return upsertLong(ctx, db, key, value)
}

// WriteEntry writes value and stamp in one transaction.
func (s *Store) WriteEntry(ctx context.Context, valueKey, value, stampKey string, storedAt int64) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin entry tx: %w", err)
	}
	if err := upsertString(ctx, tx, valueKey, value); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := upsertLong(ctx, tx, stampKey, storedAt); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit entry tx: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM kv_entries WHERE k = ?`, key); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Keys matches with instr() so the prefix is compared byte-exact and
// case-sensitive (LIKE is neither).
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	var rows *sql.Rows
	if prefix == "" {
		rows, err = db.QueryContext(ctx, `SELECT k FROM kv_entries`)
	} else {
		rows, err = db.QueryContext(ctx, `SELECT k FROM kv_entries WHERE instr(k, ?) = 1`, prefix)
	}
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return out, nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM kv_entries`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close(context.Context) error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertString(ctx context.Context, ex execer, key, value string) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO kv_entries (k, s, n) VALUES (?, ?, NULL)
		 ON CONFLICT(k) DO UPDATE SET s = excluded.s, n = NULL`,
		key, []byte(value))
	if err != nil {
		return fmt.Errorf("write string %q: %w", key, err)
	}
	return nil
}

func upsertLong(ctx context.Context, ex execer, key string, value int64) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO kv_entries (k, s, n) VALUES (?, NULL, ?)
		 ON CONFLICT(k) DO UPDATE SET s = NULL, n = excluded.n`,
		key, value)
	if err != nil {
		return fmt.Errorf("write long %q: %w", key, err)
	}
	return nil
}
