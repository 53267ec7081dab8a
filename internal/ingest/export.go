package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kalambet/askdb/internal/storage"
)

// exportJSONL writes every row of table to <dir>/<table>.jsonl, one JSON
// object per line. The files mirror the store for inspection only.
func exportJSONL(ctx context.Context, store *storage.Store, table, dir string) error {
	rows, err := store.Query(ctx, "SELECT * FROM "+storage.QuoteIdent(table))
	if err != nil {
		return fmt.Errorf("reading %s: %w", table, err)
	}

	path := filepath.Join(dir, table+".jsonl")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			f.Close()
			return fmt.Errorf("encoding %s: %w", table, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
