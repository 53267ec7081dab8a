// Package ingesttest writes small source directories for tests.
package ingesttest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// FAQ is the curated question list written by WriteSources.
var FAQ = [][2]string{
	{"What is the average unit price for Electrical parts?", "$12.50"},
	{"What is the average unit price for Mechanical parts?", "$3.10"},
	{"Which supplier has the most purchase orders overall?", "Acme Components"},
	{"How many orders did Acme Components place?", "3"},
	{"Which part has the highest unit price?", "Relay"},
}

// WriteSources writes a workbook with Parts and Orders sheets, a
// suppliers.csv table and faq.csv into dir.
func WriteSources(t *testing.T, dir string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Parts"); err != nil {
		t.Fatal(err)
	}
	parts := [][]any{
		{"Part ID", "Part Name", "Category", "Unit Price ($)"},
		{1, "Fuse", "Electrical", 5.0},
		{2, "Relay", "Electrical", 20.0},
		{3, "Bolt", "Mechanical", 0.2},
		{4, "Gear", "Mechanical", 6.0},
	}
	writeSheet(t, f, "Parts", parts)

	if _, err := f.NewSheet("Orders"); err != nil {
		t.Fatal(err)
	}
	orders := [][]any{
		{"Order ID", "Supplier ID", "Part ID", "Quantity"},
		{100, 1, 1, 10},
		{101, 1, 2, 5},
		{102, 2, 3, 100},
		{103, 1, 4, 7},
	}
	writeSheet(t, f, "Orders", orders)

	if err := f.SaveAs(filepath.Join(dir, "part_list.xlsx")); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(dir, "suppliers.csv"),
		"Supplier ID,Supplier Name\n1,Acme Components\n2,Bolt Brothers\n")

	faq := "question,answer\n"
	for _, qa := range FAQ {
		faq += `"` + qa[0] + `","` + qa[1] + `"` + "\n"
	}
	writeFile(t, filepath.Join(dir, "faq.csv"), faq)
}

// WriteEmptyFAQ replaces faq.csv in dir with a header-only file.
func WriteEmptyFAQ(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "faq.csv"), "question,answer\n")
}

func writeSheet(t *testing.T, f *excelize.File, sheet string, rows [][]any) {
	t.Helper()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
