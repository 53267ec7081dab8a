package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrStoreUnavailable is returned when a snapshot database cannot be created
// or opened. Callers treat it as fatal.
var ErrStoreUnavailable = errors.New("store unavailable")

// ColumnType is the declared SQLite type of an ingested column.
type ColumnType string

const (
	TypeInteger ColumnType = "INTEGER"
	TypeReal    ColumnType = "REAL"
	TypeText    ColumnType = "TEXT"
)

type Column struct {
	Name       string
	Type       ColumnType
	PrimaryKey bool
}

// Table is an ingested relation. Each row holds one value per column, in
// column order; nil values are stored as NULL.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// FAQEntry is one curated question/answer pair. ID is the 1-based row order
// of the FAQ source.
type FAQEntry struct {
	ID       int64
	Question string
	Answer   string
}
