// Package router answers a question by trying, in order, FAQ full-text search,
// FAQ semantic search and generated SQL.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kalambet/askdb/internal/lexical"
	"github.com/kalambet/askdb/internal/retrieval"
)

// Tier names the stage that produced an answer.
type Tier string

const (
	TierLexical   Tier = "lexical"
	TierSemantic  Tier = "semantic"
	TierGenerated Tier = "generated"
)

// Source is the wire label for the tier.
func (t Tier) Source() string {
	switch t {
	case TierLexical:
		return "faq"
	case TierSemantic:
		return "semantic"
	case TierGenerated:
		return "sql"
	}
	return string(t)
}

// Fixed confidence per tier.
const (
	LexicalConfidence   = 1.0
	SemanticConfidence  = 0.9
	GeneratedConfidence = 0.7
)

// ErrQueryExecution wraps a failure to run generated SQL.
var ErrQueryExecution = errors.New("query execution failed")

// Result is a routed answer. Rows is never nil.
type Result struct {
	Tier       Tier             `json:"tier"`
	Rows       []map[string]any `json:"rows"`
	Confidence float64          `json:"confidence"`
	// SQL is set for the generated tier.
	SQL string `json:"sql,omitempty"`
}

type LexicalSearcher interface {
	Search(ctx context.Context, query string, k int) ([]lexical.Hit, error)
}

type SemanticSearcher interface {
	Search(ctx context.Context, query string, k int) ([]retrieval.Hit, error)
}

type Translator interface {
	Translate(ctx context.Context, question, schema string) (string, error)
}

type Executor interface {
	Query(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}

// Deps are the collaborators for one snapshot.
type Deps struct {
	Lexical    LexicalSearcher
	Semantic   SemanticSearcher
	Translator Translator
	Executor   Executor
	Schema     string
}

type Limits struct {
	Lexical  int
	Semantic int
}

type Router struct {
	deps   Deps
	limits Limits
	logger *slog.Logger
}

func New(deps Deps, limits Limits) *Router {
	if limits.Lexical <= 0 {
		limits.Lexical = 5
	}
	if limits.Semantic <= 0 {
		limits.Semantic = 3
	}
	return &Router{
		deps:   deps,
		limits: limits,
		logger: slog.Default().With("component", "router"),
	}
}

// Route returns the first tier with an answer. Lexical and semantic failures
// fall through to the next tier, except ErrDimensionMismatch. The generated
// tier always answers or fails; zero rows is an answer.
func (r *Router) Route(ctx context.Context, question string) (*Result, error) {
	if r.deps.Lexical != nil {
		hits, err := r.deps.Lexical.Search(ctx, question, r.limits.Lexical)
		switch {
		case err != nil:
			r.logger.Warn("lexical search failed, falling through", "error", err)
		case len(hits) > 0:
			rows := make([]map[string]any, len(hits))
			for i, h := range hits {
				rows[i] = hitRow(h.Question, h.Answer, h.Score)
			}
			r.logger.Debug("answered", "tier", TierLexical, "hits", len(hits))
			return &Result{Tier: TierLexical, Rows: rows, Confidence: LexicalConfidence}, nil
		}
	}

	if r.deps.Semantic != nil {
		hits, err := r.deps.Semantic.Search(ctx, question, r.limits.Semantic)
		switch {
		case errors.Is(err, retrieval.ErrDimensionMismatch):
			return nil, fmt.Errorf("semantic search: %w", err)
		case err != nil:
			r.logger.Warn("semantic search failed, falling through", "error", err)
		case len(hits) > 0:
			rows := make([]map[string]any, len(hits))
			for i, h := range hits {
				rows[i] = hitRow(h.Question, h.Answer, h.Score)
			}
			r.logger.Debug("answered", "tier", TierSemantic, "hits", len(hits))
			return &Result{Tier: TierSemantic, Rows: rows, Confidence: SemanticConfidence}, nil
		}
	}

	if r.deps.Translator == nil || r.deps.Executor == nil {
		return nil, errors.New("no sql generation configured")
	}
	sql, err := r.deps.Translator.Translate(ctx, question, r.deps.Schema)
	if err != nil {
		return nil, err
	}
	rows, err := r.deps.Executor.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryExecution, err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	r.logger.Debug("answered", "tier", TierGenerated, "rows", len(rows))
	return &Result{Tier: TierGenerated, Rows: rows, Confidence: GeneratedConfidence, SQL: sql}, nil
}

func hitRow(question, answer string, score float64) map[string]any {
	return map[string]any{"question": question, "answer": answer, "score": score}
}
