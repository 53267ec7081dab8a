package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kalambet/askdb/internal/storage"
)

// Options controls a single ingestion run.
type Options struct {
	// SourceDir holds the *.xlsx workbooks, extra *.csv tables and the FAQ file.
	SourceDir string
	// FAQFile is the FAQ file name inside SourceDir.
	FAQFile string
	// ExportDir receives one <table>.jsonl per table. Empty disables export.
	ExportDir string
	// KeepSnapshots is how many snapshot versions to retain after publishing.
	KeepSnapshots int
}

// TableReport summarizes one ingested table.
type TableReport struct {
	Name    string
	Source  string
	Columns int
	Rows    int
}

// Report describes the outcome of a run.
type Report struct {
	Version    string
	Tables     []TableReport
	FAQEntries int
	Skipped    []*SourceError
}

// Engine loads tabular sources into a new snapshot and publishes it.
type Engine struct {
	catalog *storage.Catalog
	logger  *slog.Logger
}

func NewEngine(catalog *storage.Catalog) *Engine {
	return &Engine{
		catalog: catalog,
		logger:  slog.Default().With("component", "ingest"),
	}
}

// Run builds a complete snapshot from opts.SourceDir, then publishes it as
// the current version. Unreadable sources are skipped and listed in the
// report. The only fatal errors are storage failures.
func (e *Engine) Run(ctx context.Context, opts Options) (Report, error) {
	if opts.FAQFile == "" {
		opts.FAQFile = "faq.csv"
	}

	version := e.catalog.NewVersion()
	store, err := e.catalog.Create(version)
	if err != nil {
		return Report{}, err
	}

	report, err := e.populate(ctx, store, version, opts)
	if cerr := store.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing snapshot %s: %w", version, cerr)
	}
	if err != nil {
		if derr := e.catalog.Discard(version); derr != nil {
			e.logger.Warn("could not discard failed snapshot", "version", version, "error", derr)
		}
		return Report{}, err
	}

	if err := e.catalog.Publish(version); err != nil {
		return Report{}, err
	}
	if removed, err := e.catalog.Prune(opts.KeepSnapshots); err != nil {
		e.logger.Warn("pruning old snapshots failed", "error", err)
	} else if len(removed) > 0 {
		e.logger.Debug("pruned snapshots", "versions", removed)
	}

	e.logger.Info("ingestion complete",
		"version", version, "tables", len(report.Tables),
		"faq_entries", report.FAQEntries, "skipped", len(report.Skipped))
	return report, nil
}

func (e *Engine) populate(ctx context.Context, store *storage.Store, version string, opts Options) (Report, error) {
	report := &Report{Version: version}

	tables, sources := e.collect(ctx, opts, report)
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	for i, t := range tables {
		if len(t.Columns) == 0 {
			e.logger.Warn("skipping empty sheet", "source", sources[i])
			continue
		}
		if err := store.CreateTable(ctx, t); err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return Report{}, cerr
			}
			e.skip(report, &SourceError{Path: sources[i], Err: fmt.Errorf("storing table %s: %w", t.Name, err)})
			continue
		}
		report.Tables = append(report.Tables, TableReport{
			Name: t.Name, Source: sources[i], Columns: len(t.Columns), Rows: len(t.Rows),
		})
	}

	faq := e.loadFAQ(filepath.Join(opts.SourceDir, opts.FAQFile), report)
	if err := store.CreateTable(ctx, faq); err != nil {
		return Report{}, fmt.Errorf("storing %s: %w", storage.FAQTable, err)
	}
	if err := store.BuildFAQIndex(ctx); err != nil {
		return Report{}, err
	}
	report.FAQEntries = len(faq.Rows)
	report.Tables = append(report.Tables, TableReport{
		Name: faq.Name, Source: opts.FAQFile, Columns: len(faq.Columns), Rows: len(faq.Rows),
	})

	if opts.ExportDir != "" {
		e.export(ctx, store, opts.ExportDir, report.Tables)
	}
	return *report, nil
}

// collect reads every workbook sheet and extra csv file in SourceDir. A later
// source with the same table name replaces an earlier one.
func (e *Engine) collect(ctx context.Context, opts Options, report *Report) ([]storage.Table, []string) {
	var (
		tables  []storage.Table
		sources []string
		index   = make(map[string]int)
	)
	add := func(t storage.Table, source string) {
		if reservedTableName(t.Name) {
			e.skip(report, &SourceError{Path: source, Err: fmt.Errorf("table name %q is reserved", t.Name)})
			return
		}
		if i, ok := index[t.Name]; ok {
			e.logger.Warn("duplicate table name, keeping the later source",
				"table", t.Name, "previous", sources[i], "source", source)
			tables[i], sources[i] = t, source
			return
		}
		index[t.Name] = len(tables)
		tables = append(tables, t)
		sources = append(sources, source)
	}

	entries, err := os.ReadDir(opts.SourceDir)
	if err != nil {
		e.skip(report, &SourceError{Path: opts.SourceDir, Err: err})
		return nil, nil
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, nil
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(opts.SourceDir, name)

		switch strings.ToLower(filepath.Ext(name)) {
		case ".xlsx":
			sheets, err := readWorkbook(path)
			if err != nil {
				e.skip(report, err)
				continue
			}
			for _, sh := range sheets {
				add(buildTable(sh, tableName(sh.name), e.logger), sh.source)
			}
		case ".csv":
			if name == opts.FAQFile {
				continue
			}
			sh, err := readCSV(path)
			if err != nil {
				e.skip(report, err)
				continue
			}
			add(buildTable(sh, tableName(sh.name), e.logger), sh.source)
		}
	}
	return tables, sources
}

// reservedTableName reports whether name collides with the faq table, its
// FTS5 index and shadow tables, or SQLite's internal objects.
func reservedTableName(name string) bool {
	return name == storage.FAQTable ||
		name == storage.FAQIndexTable ||
		strings.HasPrefix(name, storage.FAQIndexTable+"_") ||
		strings.HasPrefix(name, "sqlite_")
}

// loadFAQ reads the FAQ file into the faq table layout:
//
//	faq(id INTEGER PRIMARY KEY, question TEXT, answer TEXT, <other columns>)
//
// id is the 1-based row order. A missing or malformed file yields an empty
// faq table so the lexical and semantic tiers see no entries.
func (e *Engine) loadFAQ(path string, report *Report) storage.Table {
	t := storage.Table{
		Name: storage.FAQTable,
		Columns: []storage.Column{
			{Name: "id", Type: storage.TypeInteger, PrimaryKey: true},
			{Name: "question", Type: storage.TypeText},
			{Name: "answer", Type: storage.TypeText},
		},
	}

	sh, err := readCSV(path)
	if err != nil {
		e.skip(report, err)
		return t
	}
	cols := gatherColumns(sh, e.logger)

	var question, answer *column
	var extra []*column
	for _, c := range cols {
		switch c.name {
		case "question":
			question = c
		case "answer":
			answer = c
		case "id":
			e.logger.Warn("faq source column id is reserved, renaming to source_id", "source", path)
			c.name = "source_id"
			extra = append(extra, c)
		default:
			extra = append(extra, c)
		}
	}
	if question == nil || answer == nil {
		e.skip(report, &SourceError{Path: path, Err: errors.New("missing question or answer column")})
		return t
	}

	// Question and answer keep the cell text exactly; other columns are typed.
	types := make([]storage.ColumnType, len(extra))
	for i, c := range extra {
		types[i] = inferType(c.cells)
		t.Columns = append(t.Columns, storage.Column{Name: c.name, Type: types[i]})
	}
	for r := range question.cells {
		out := make([]any, 0, len(t.Columns))
		out = append(out, int64(r+1), rawText(question.cells[r]), rawText(answer.cells[r]))
		for i, c := range extra {
			out = append(out, convert(c.cells[r], types[i]))
		}
		t.Rows = append(t.Rows, out)
	}
	return t
}

// rawText stores a blank cell as NULL and anything else verbatim.
func rawText(cell string) any {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	return cell
}

func (e *Engine) export(ctx context.Context, store *storage.Store, dir string, tables []TableReport) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		e.logger.Warn("export skipped", "dir", dir, "error", err)
		return
	}
	for _, t := range tables {
		if err := exportJSONL(ctx, store, t.Name, dir); err != nil {
			e.logger.Warn("export failed", "table", t.Name, "error", err)
		}
	}
}

func (e *Engine) skip(report *Report, err error) {
	var se *SourceError
	if !errors.As(err, &se) {
		se = &SourceError{Err: err}
	}
	e.logger.Warn("skipping unreadable source", "path", se.Path, "error", se.Err)
	report.Skipped = append(report.Skipped, se)
}
