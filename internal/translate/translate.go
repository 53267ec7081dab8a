// Package translate turns natural-language questions into SQLite SQL using a
// chat completion engine.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/askdb/internal/cache"
	"github.com/kalambet/askdb/internal/engine"
)

// ErrTranslation wraps every failure to obtain SQL from the engine.
var ErrTranslation = errors.New("translation failed")

const systemPrompt = "You are a SQL generator for SQLite."

const userPromptTemplate = `schema:
%s

Convert the question into valid SQLite SQL.
Question: %s
SQL:`

// Options configures a Translator. Zero Timeout means no deadline beyond the
// caller's context.
type Options struct {
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	Cache       cache.Client
	CacheTTL    time.Duration
}

type Translator struct {
	engine engine.Engine
	opts   Options
	logger *slog.Logger
}

func New(e engine.Engine, opts Options) *Translator {
	return &Translator{
		engine: e,
		opts:   opts,
		logger: slog.Default().With("component", "translate"),
	}
}

// BuildPrompt returns the chat messages sent for one question.
func BuildPrompt(question, schema string) []engine.Message {
	return []engine.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(userPromptTemplate, schema, question)},
	}
}

// Translate asks the engine for one SQL statement answering question over
// schema. The call is made once; failures are not retried.
func (t *Translator) Translate(ctx context.Context, question, schema string) (string, error) {
	key := cache.Key(schema, question)
	if t.opts.Cache != nil {
		sql, err := t.opts.Cache.Get(ctx, key)
		if err == nil {
			t.logger.Debug("translation cache hit", "question", question)
			return sql, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			t.logger.Warn("translation cache read failed", "error", err)
		}
	}

	callCtx := ctx
	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := t.engine.Chat(callCtx, t.opts.Model, BuildPrompt(question, schema), engine.ChatOptions{
		MaxTokens:   t.opts.MaxTokens,
		Temperature: t.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranslation, err)
	}
	sql, ok := Finalize(raw)
	if !ok {
		return "", fmt.Errorf("%w: empty completion", ErrTranslation)
	}
	t.logger.Info("generated sql", "question", question, "sql", sql, "duration", time.Since(start))

	if t.opts.Cache != nil {
		if err := t.opts.Cache.Set(ctx, key, sql, t.opts.CacheTTL); err != nil {
			t.logger.Warn("translation cache write failed", "error", err)
		}
	}
	return sql, nil
}

// Finalize normalizes a model completion into a single statement ending in
// exactly one semicolon. A surrounding markdown code fence is removed. ok is
// false when nothing but whitespace and semicolons remains.
func Finalize(raw string) (sql string, ok bool) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			// drop the language tag line, e.g. ```sql
			if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, " \t") {
				s = s[nl+1:]
			}
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimRight(s, "; \t\r\n")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s + ";", true
}
