package storage

import (
	"context"
	"fmt"
	"strings"
)

// Tables returns the ordinary tables of the snapshot in creation order.
// SQLite internals, FTS5 virtual tables and their shadow tables are excluded.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.name
		FROM sqlite_master m
		JOIN pragma_table_list t ON t.name = m.name AND t.schema = 'main'
		WHERE m.type = 'table' AND t.type = 'table' AND m.name NOT LIKE 'sqlite_%'
		ORDER BY m.rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Columns returns the declared columns of table in ordinal order.
func (s *Store) Columns(ctx context.Context, table string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, type, pk FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		var typ string
		var pk int
		if err := rows.Scan(&c.Name, &typ, &pk); err != nil {
			return nil, err
		}
		c.Type = ColumnType(typ)
		c.PrimaryKey = pk > 0
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Schema renders a compact description of every table, one per line:
//
//	parts(part_id INTEGER, name TEXT, unit_price REAL)
func (s *Store) Schema(ctx context.Context) (string, error) {
	tables, err := s.Tables(ctx)
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(tables))
	for _, t := range tables {
		cols, err := s.Columns(ctx, t)
		if err != nil {
			return "", err
		}
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = c.Name + " " + string(c.Type)
		}
		lines = append(lines, fmt.Sprintf("%s(%s)", t, strings.Join(parts, ", ")))
	}
	return strings.Join(lines, "\n"), nil
}
