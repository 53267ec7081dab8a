package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SourceError reports a source file that could not be read. Ingestion skips
// the source and continues with the rest.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("ingest source %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// sheet is one rectangular block of cells read from a source: a header row
// followed by data records.
type sheet struct {
	name    string
	source  string
	header  []string
	records [][]string
}

// readWorkbook returns every sheet of an xlsx workbook in workbook order.
func readWorkbook(path string) ([]sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	defer f.Close()

	var sheets []sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, &SourceError{Path: path, Err: fmt.Errorf("sheet %q: %w", name, err)}
		}
		sh := sheet{name: name, source: filepath.Base(path) + "#" + name}
		if len(rows) > 0 {
			sh.header = rows[0]
			sh.records = rows[1:]
		}
		sheets = append(sheets, sh)
	}
	return sheets, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV reads a comma separated file with a header row. The sheet is named
// after the file stem.
func readCSV(path string) (sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sheet{}, &SourceError{Path: path, Err: err}
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	base := filepath.Base(path)
	sh := sheet{name: strings.TrimSuffix(base, filepath.Ext(base)), source: base}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sheet{}, &SourceError{Path: path, Err: err}
		}
		if sh.header == nil {
			sh.header = rec
			continue
		}
		sh.records = append(sh.records, rec)
	}
	return sh, nil
}
