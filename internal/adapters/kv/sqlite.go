package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	namespace TEXT NOT NULL,
	name      TEXT NOT NULL,
	value     BLOB,
	metadata  BLOB,
	PRIMARY KEY (namespace, name)
);`

// SQLiteNamespace stores one namespace as rows of a shared kv table.
type SQLiteNamespace struct {
	db        *sql.DB
	namespace string
}

// OpenSQLite opens (creating if needed) the database at path and returns
// the named namespace inside it.
func OpenSQLite(ctx context.Context, path, namespace string) (*SQLiteNamespace, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteNamespace{db: db, namespace: namespace}, nil
}

// Put implements Writer.
func (s *SQLiteNamespace) Put(ctx context.Context, key string, value, metadata []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (namespace, name, value, metadata) VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, name) DO UPDATE SET value = excluded.value, metadata = excluded.metadata`,
		s.namespace, key, nullable(value), nullable(metadata))
	return err
}

// Get implements Namespace.
func (s *SQLiteNamespace) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND name = ?`, s.namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && value == nil) {
		return nil, NotFoundError{Key: key}
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// List implements Namespace. The prefix becomes a half-open range on the
// primary key so the scan stays on the index.
func (s *SQLiteNamespace) List(ctx context.Context, prefix string) ([]Key, error) {
	query := `SELECT name, metadata FROM kv WHERE namespace = ? AND name >= ?`
	args := []any{s.namespace, prefix}
	if upper, ok := prefixUpperBound(prefix); ok {
		query += ` AND name < ?`
		args = append(args, upper)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.Name, &k.Metadata); err != nil {
			return nil, err
		}
		if !strings.HasPrefix(k.Name, prefix) {
			continue
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close implements Namespace.
func (s *SQLiteNamespace) Close() error {
	return s.db.Close()
}

// nullable stores absent documents as NULL rather than an empty blob.
func nullable(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

// prefixUpperBound returns the smallest string greater than every string
// carrying prefix. ok is false when no such bound exists.
func prefixUpperBound(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}
