package retrieval

import (
	"context"
	"fmt"

	"github.com/kalambet/askdb/internal/engine"
	"golang.org/x/sync/errgroup"
)

// Embedder turns text into vectors. The same Embedder must be used to build
// an Index and to query it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// batchEngine is implemented by engines that accept several inputs per request.
type batchEngine interface {
	EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// batchSize caps the inputs sent in one batched embedding request.
const batchSize = 64

// EngineEmbedder wraps an Engine to generate text embeddings.
type EngineEmbedder struct {
	engine engine.Engine
	model  string
}

// NewEngineEmbedder creates an EngineEmbedder using the given Engine and model name.
func NewEngineEmbedder(e engine.Engine, model string) *EngineEmbedder {
	return &EngineEmbedder{engine: e, model: model}
}

// Embed returns the embedding vector for a single text.
func (e *EngineEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.engine.Embed(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	return vec, nil
}

// EmbedBatch returns embedding vectors for multiple texts, aligned with texts.
// Engines with native batching get chunks of batchSize; others get one
// request per text with bounded concurrency.
// Returns nil (not error) for empty/nil input.
func (e *EngineEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	if be, ok := e.engine.(batchEngine); ok {
		for start := 0; start < len(texts); start += batchSize {
			end := min(start+batchSize, len(texts))
			g.Go(func() error {
				vecs, err := be.EmbedBatch(gCtx, e.model, texts[start:end])
				if err != nil {
					return fmt.Errorf("embedding texts %d-%d: %w", start, end-1, err)
				}
				copy(results[start:end], vecs)
				return nil
			})
		}
	} else {
		for i, text := range texts {
			g.Go(func() error {
				vec, err := e.engine.Embed(gCtx, e.model, text)
				if err != nil {
					return fmt.Errorf("embedding text %d: %w", i, err)
				}
				results[i] = vec
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
