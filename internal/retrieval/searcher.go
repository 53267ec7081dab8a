package retrieval

import (
	"context"
	"fmt"
)

// Searcher answers nearest-question queries against an Index. It applies no
// distance cutoff: any non-empty index yields at least one hit.
type Searcher struct {
	index    *Index
	embedder Embedder
}

func NewSearcher(index *Index, embedder Embedder) *Searcher {
	return &Searcher{index: index, embedder: embedder}
}

// Search embeds query and returns up to k hits, closest first. An empty index
// returns nil without calling the embedder.
func (s *Searcher) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if s.index.Len() == 0 || k <= 0 {
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return s.index.Nearest(vec, k)
}
