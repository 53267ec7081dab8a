// Package lexical ranks FAQ entries against a free-text query using the
// snapshot's FTS5 index and bm25 scoring.
package lexical

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/kalambet/askdb/internal/storage"
)

// Hit is one matching FAQ entry. Lower scores are more relevant.
type Hit struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

type Searcher struct {
	db *sql.DB
}

func NewSearcher(db *sql.DB) *Searcher {
	return &Searcher{db: db}
}

var searchSQL = fmt.Sprintf(`
	SELECT COALESCE(question, ''), COALESCE(answer, ''), bm25(%[1]s) AS score
	FROM %[1]s
	WHERE %[1]s MATCH ?
	ORDER BY score
	LIMIT ?`, storage.FAQIndexTable)

// Search returns up to k entries matching every term of query, best first.
// A query with no searchable terms returns no hits.
func (s *Searcher) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	match := MatchExpr(query)
	if match == "" || k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, searchSQL, match, k)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Question, &h.Answer, &h.Score); err != nil {
			return nil, fmt.Errorf("lexical search: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	return hits, nil
}

// Clean replaces every character that is not a letter, digit, underscore,
// whitespace or '*' with a space, then collapses whitespace.
func Clean(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for _, r := range query {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '*':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// MatchExpr turns a free-text query into an FTS5 expression that ANDs one
// quoted phrase per term. A trailing '*' on a term becomes a prefix query.
// Quoting keeps words like OR and NEAR from being read as operators.
func MatchExpr(query string) string {
	var terms []string
	for _, tok := range strings.Fields(Clean(query)) {
		prefix := strings.HasSuffix(tok, "*")
		tok = strings.ReplaceAll(tok, "*", "")
		if strings.IndexFunc(tok, isAlnum) < 0 {
			// The tokenizer would produce nothing for "_" or "*".
			continue
		}
		term := `"` + tok + `"`
		if prefix {
			term += "*"
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, " ")
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
