package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// FAQTable and FAQIndexTable name the curated Q&A relation and its FTS5 index.
const (
	FAQTable      = "faq"
	FAQIndexTable = "faq_fts"
)

// Store wraps one snapshot database.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// Create creates a fresh, writable database at path, replacing any file
// already there.
func Create(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating directory: %w", ErrStoreUnavailable, err)
	}
	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: removing %s: %w", ErrStoreUnavailable, p, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", ErrStoreUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinging database: %w", ErrStoreUnavailable, err)
	}

	// Ingestion is a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: setting busy timeout: %w", ErrStoreUnavailable, err)
	}

	return &Store{db: db, path: path}, nil
}

// OpenReadOnly opens an existing snapshot for querying. Every connection is
// opened with mode=ro and query_only, so generated statements cannot modify it.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	dsn := "file:" + filepath.ToSlash(path) + "?mode=ro&_pragma=busy_timeout(5000)&_pragma=query_only(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", ErrStoreUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinging database: %w", ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(4)
	return &Store{db: db, path: path, readOnly: true}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the underlying handle for packages that issue their own queries
// against the snapshot (lexical search).
func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateTable creates t and inserts its rows in a single transaction.
func (s *Store) CreateTable(ctx context.Context, t Table) error {
	if s.readOnly {
		return fmt.Errorf("creating table %s: snapshot %s is read-only", t.Name, s.path)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %q has no columns", t.Name)
	}

	defs := make([]string, len(t.Columns))
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		def := QuoteIdent(c.Name) + " " + string(c.Type)
		if c.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs[i] = def
		names[i] = QuoteIdent(c.Name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction for %s: %w", t.Name, err)
	}
	defer tx.Rollback()

	create := fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(t.Name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("creating table %s: %w", t.Name, err)
	}

	if len(t.Rows) > 0 {
		insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?%s)",
			QuoteIdent(t.Name), strings.Join(names, ", "), strings.Repeat(", ?", len(names)-1))
		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return fmt.Errorf("preparing insert for %s: %w", t.Name, err)
		}
		defer stmt.Close()

		for i, row := range t.Rows {
			if len(row) != len(t.Columns) {
				return fmt.Errorf("table %s row %d: got %d values, want %d", t.Name, i+1, len(row), len(t.Columns))
			}
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return fmt.Errorf("inserting row %d into %s: %w", i+1, t.Name, err)
			}
		}
	}

	return tx.Commit()
}

// BuildFAQIndex creates the external-content FTS5 index over the faq table's
// question and answer columns and fills it from the table.
func (s *Store) BuildFAQIndex(ctx context.Context) error {
	create := fmt.Sprintf(
		"CREATE VIRTUAL TABLE %s USING fts5(question, answer, content='%s', content_rowid='id')",
		FAQIndexTable, FAQTable)
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("creating %s: %w", FAQIndexTable, err)
	}
	rebuild := fmt.Sprintf("INSERT INTO %s(%s) VALUES('rebuild')", FAQIndexTable, FAQIndexTable)
	if _, err := s.db.ExecContext(ctx, rebuild); err != nil {
		return fmt.Errorf("rebuilding %s: %w", FAQIndexTable, err)
	}
	return nil
}

// FAQEntries returns every FAQ row in id order.
func (s *Store) FAQEntries(ctx context.Context) ([]FAQEntry, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT id, COALESCE(question, ''), COALESCE(answer, '') FROM %s ORDER BY id", FAQTable))
	if err != nil {
		return nil, fmt.Errorf("listing faq entries: %w", err)
	}
	defer rows.Close()

	var entries []FAQEntry
	for rows.Next() {
		var e FAQEntry
		if err := rows.Scan(&e.ID, &e.Question, &e.Answer); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Query runs a statement and returns every row as a column-name keyed map.
// TEXT values come back as strings, never []byte.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []map[string]any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = vals[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// QuoteIdent quotes name as an SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
