package lexical

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kalambet/askdb/internal/storage"
)

func newTestSearcher(t *testing.T, faq ...[2]string) *Searcher {
	t.Helper()
	s, err := storage.Create(filepath.Join(t.TempDir(), "lexical.db"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	tbl := storage.Table{
		Name: storage.FAQTable,
		Columns: []storage.Column{
			{Name: "id", Type: storage.TypeInteger, PrimaryKey: true},
			{Name: "question", Type: storage.TypeText},
			{Name: "answer", Type: storage.TypeText},
		},
	}
	for i, qa := range faq {
		tbl.Rows = append(tbl.Rows, []any{int64(i + 1), qa[0], qa[1]})
	}
	ctx := context.Background()
	if err := s.CreateTable(ctx, tbl); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := s.BuildFAQIndex(ctx); err != nil {
		t.Fatalf("BuildFAQIndex: %v", err)
	}
	return NewSearcher(s.DB())
}

var sampleFAQ = [][2]string{
	{"What is the average unit price for Electrical parts?", "$12.50"},
	{"What is the average unit price for Mechanical parts?", "$3.10"},
	{"Which supplier has the most purchase orders overall?", "Acme Components"},
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"What's the price?", "What s the price"},
		{"  unit-price   (avg)  ", "unit price avg"},
		{"pric*", "pric*"},
		{"snake_case", "snake_case"},
		{"?!.", ""},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchExpr(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"average price", `"average" "price"`},
		{"elec* parts", `"elec"* "parts"`},
		{"cats OR dogs", `"cats" "OR" "dogs"`},
		{"* _ ?", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MatchExpr(tt.in); got != tt.want {
			t.Errorf("MatchExpr(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSearchExactQuestion(t *testing.T) {
	s := newTestSearcher(t, sampleFAQ...)

	hits, err := s.Search(context.Background(), "What is the average unit price for Electrical parts?", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1: %+v", len(hits), hits)
	}
	if hits[0].Answer != "$12.50" {
		t.Errorf("Answer = %q, want %q", hits[0].Answer, "$12.50")
	}
}

func TestSearchOrderedByScore(t *testing.T) {
	s := newTestSearcher(t, sampleFAQ...)

	hits, err := s.Search(context.Background(), "average unit price", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score < hits[i-1].Score {
			t.Errorf("hits not ascending by score: %v then %v", hits[i-1].Score, hits[i].Score)
		}
	}
}

func TestSearchLimit(t *testing.T) {
	s := newTestSearcher(t, sampleFAQ...)
	hits, err := s.Search(context.Background(), "what", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("got %d hits, want 1", len(hits))
	}
}

func TestSearchPrefix(t *testing.T) {
	s := newTestSearcher(t, sampleFAQ...)
	hits, err := s.Search(context.Background(), "mechan*", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Answer != "$3.10" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearchNoMatch(t *testing.T) {
	s := newTestSearcher(t, sampleFAQ...)

	for _, q := range []string{"which suppliers have most purchase order", "???", "", "NEAR OR AND"} {
		hits, err := s.Search(context.Background(), q, 5)
		if err != nil {
			t.Errorf("Search(%q): %v", q, err)
		}
		if len(hits) != 0 {
			t.Errorf("Search(%q) = %+v, want no hits", q, hits)
		}
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	s := newTestSearcher(t)
	hits, err := s.Search(context.Background(), "price", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %+v, want none", hits)
	}
}
