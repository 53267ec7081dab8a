package ingest

import (
	"strings"
)

// NormalizeColumn turns a source header label into a column identifier:
// lower-cased and trimmed, with every run of characters outside [a-z0-9]
// replaced by a single underscore. The result only contains [a-z0-9_].
//
//	" Unit Price ($) " -> "unit_price_"
//	"Supplier-ID"      -> "supplier_id"
func NormalizeColumn(label string) string {
	lowered := strings.ToLower(strings.TrimSpace(label))
	var b strings.Builder
	b.Grow(len(lowered))
	inRun := false
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte('_')
			inRun = true
		}
	}
	return b.String()
}

// tableName derives a table name from a sheet name or file stem.
func tableName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
