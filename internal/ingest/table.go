package ingest

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kalambet/askdb/internal/storage"
)

// column is a normalized header plus the raw cells gathered for it.
type column struct {
	name  string
	cells []string
}

// normalizeHeader maps each header position to a normalized column. Empty
// labels become column_<n>. When two labels normalize to the same name the
// column keeps its first position and the later source column's values win.
func normalizeHeader(header []string, width int, logger *slog.Logger, source string) (cols []*column, slot []int) {
	index := make(map[string]int)
	slot = make([]int, width)
	for i := 0; i < width; i++ {
		label := ""
		if i < len(header) {
			label = header[i]
		}
		name := NormalizeColumn(label)
		if strings.Trim(name, "_") == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if j, ok := index[name]; ok {
			logger.Warn("duplicate column after normalization, keeping last values",
				"source", source, "column", name, "label", label)
			slot[i] = j
			continue
		}
		index[name] = len(cols)
		slot[i] = len(cols)
		cols = append(cols, &column{name: name})
	}
	return cols, slot
}

// gatherColumns normalizes the sheet header and collects the raw cells of
// every column. Rows where every cell is blank are dropped.
func gatherColumns(sh sheet, logger *slog.Logger) []*column {
	width := len(sh.header)
	for _, rec := range sh.records {
		if len(rec) > width {
			width = len(rec)
		}
	}

	cols, slot := normalizeHeader(sh.header, width, logger, sh.source)
	for _, rec := range sh.records {
		if isBlank(rec) {
			continue
		}
		row := make([]string, len(cols))
		for i := 0; i < width; i++ {
			if i < len(rec) {
				row[slot[i]] = rec[i]
			}
		}
		for j, c := range cols {
			c.cells = append(c.cells, row[j])
		}
	}
	return cols
}

// buildTable converts a sheet into a typed table.
func buildTable(sh sheet, name string, logger *slog.Logger) storage.Table {
	cols := gatherColumns(sh, logger)
	t := storage.Table{Name: name}
	nrows := 0
	if len(cols) > 0 {
		nrows = len(cols[0].cells)
	}
	t.Rows = make([][]any, nrows)
	for r := range t.Rows {
		t.Rows[r] = make([]any, len(cols))
	}
	for j, c := range cols {
		typ := inferType(c.cells)
		t.Columns = append(t.Columns, storage.Column{Name: c.name, Type: typ})
		for r, cell := range c.cells {
			t.Rows[r][j] = convert(cell, typ)
		}
	}
	return t
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// inferType picks INTEGER when every non-blank cell is an integer, REAL when
// every non-blank cell is a number, and TEXT otherwise.
func inferType(cells []string) storage.ColumnType {
	seen := false
	isInt, isReal := true, true
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(c, 10, 64); err != nil {
				isInt = false
			}
		}
		// ParseFloat also accepts NaN, Inf and hex floats; those stay TEXT.
		if _, err := strconv.ParseFloat(c, 64); err != nil || strings.ContainsAny(c, "nNiIxX") {
			isInt, isReal = false, false
			break
		}
	}
	switch {
	case !seen:
		return storage.TypeText
	case isInt:
		return storage.TypeInteger
	case isReal:
		return storage.TypeReal
	default:
		return storage.TypeText
	}
}

func convert(cell string, typ storage.ColumnType) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}
	switch typ {
	case storage.TypeInteger:
		v, _ := strconv.ParseInt(trimmed, 10, 64)
		return v
	case storage.TypeReal:
		v, _ := strconv.ParseFloat(trimmed, 64)
		return v
	default:
		return cell
	}
}
