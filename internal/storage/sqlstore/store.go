// Package sqlstore persists documents in a single relational table. The same
// statements serve Postgres (pgx) and SQLite (modernc) through a Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // register the pure-Go sqlite driver

	"smp/pkg/platform/sentinel"
)

const table = "smp_documents"

// Dialect captures the differences between the supported engines.
type Dialect struct {
	Name        string
	Driver      string
	PayloadType string
	// LockClause is appended to the read inside Replace.
	LockClause string
	numbered   bool
}

var (
	Postgres = Dialect{Name: "postgres", Driver: "pgx", PayloadType: "JSONB", LockClause: " FOR UPDATE", numbered: true}
	SQLite   = Dialect{Name: "sqlite", Driver: "sqlite", PayloadType: "TEXT"}
)

// bind rewrites "?" placeholders for dialects with numbered parameters.
func (d Dialect) bind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store is a DocumentStore over database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects with dsn, pings and ensures the schema.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.Name == SQLite.Name {
		// sqlite allows a single writer; serialize through one connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	s := New(db, dialect)
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection. The schema must already exist.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		collection TEXT NOT NULL,
		key TEXT NOT NULL,
		payload %s NOT NULL,
		PRIMARY KEY (collection, key)
	)`, table, s.dialect.PayloadType)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s table: %w", table, err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, collection, key string, doc []byte) error {
	query := s.dialect.bind(`INSERT INTO ` + table + ` (collection, key, payload) VALUES (?, ?, ?)
		ON CONFLICT (collection, key) DO NOTHING`)
	res, err := s.db.ExecContext(ctx, query, collection, key, string(doc))
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", collection, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert %s/%s rows affected: %w", collection, key, err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, collection, key string, doc []byte) ([]byte, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var prev []byte
	query := s.dialect.bind(`SELECT payload FROM ` + table + ` WHERE collection = ? AND key = ?` + s.dialect.LockClause)
	err = tx.QueryRowContext(ctx, query, collection, key).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read %s/%s: %w", collection, key, err)
	}

	upsert := s.dialect.bind(`INSERT INTO ` + table + ` (collection, key, payload) VALUES (?, ?, ?)
		ON CONFLICT (collection, key) DO UPDATE SET payload = excluded.payload`)
	if _, err := tx.ExecContext(ctx, upsert, collection, key, string(doc)); err != nil {
		return nil, fmt.Errorf("upsert %s/%s: %w", collection, key, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace: %w", err)
	}
	return prev, nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) (int, error) {
	query := s.dialect.bind(`DELETE FROM ` + table + ` WHERE collection = ? AND key = ?`)
	res, err := s.db.ExecContext(ctx, query, collection, key)
	if err != nil {
		return 0, fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s/%s rows affected: %w", collection, key, err)
	}
	return int(n), nil
}

func (s *Store) Get(ctx context.Context, collection, key string) ([]byte, error) {
	var doc []byte
	query := s.dialect.bind(`SELECT payload FROM ` + table + ` WHERE collection = ? AND key = ?`)
	err := s.db.QueryRowContext(ctx, query, collection, key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return doc, nil
}

func (s *Store) List(ctx context.Context, collection string) ([][]byte, error) {
	query := s.dialect.bind(`SELECT payload FROM ` + table + ` WHERE collection = ? ORDER BY key`)
	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return docs, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool for integration tests.
func (s *Store) DB() *sql.DB { return s.db }
