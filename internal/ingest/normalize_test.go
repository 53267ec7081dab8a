package ingest

import (
	"regexp"
	"testing"
)

func TestNormalizeColumn(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Part ID", "part_id"},
		{" Unit Price ($) ", "unit_price_"},
		{"Supplier-ID", "supplier_id"},
		{"already_snake", "already_snake"},
		{"a  __  b", "a_b"},
		{"Qty#2", "qty_2"},
		{"Café", "caf_"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeColumn(tt.in); got != tt.want {
			t.Errorf("NormalizeColumn(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeColumnAlphabetAndDeterminism(t *testing.T) {
	valid := regexp.MustCompile(`^[a-z0-9_]*$`)
	inputs := []string{
		"Order Date", "ÜBER größe", "tab\tseparated", "emoji 🚀 col", "MiXeD-Case.Name", "__x__", "12 Months (avg)",
	}
	for _, in := range inputs {
		got := NormalizeColumn(in)
		if !valid.MatchString(got) {
			t.Errorf("NormalizeColumn(%q) = %q, contains characters outside [a-z0-9_]", in, got)
		}
		if again := NormalizeColumn(in); again != got {
			t.Errorf("NormalizeColumn(%q) not deterministic: %q then %q", in, got, again)
		}
	}
}

func TestTableName(t *testing.T) {
	if got := tableName("  Purchase Orders "); got != "purchase orders" {
		t.Errorf("tableName = %q, want %q", got, "purchase orders")
	}
}
