// Package retrieval builds and queries the in-memory semantic index over FAQ
// questions.
package retrieval

import (
	"container/heap"
	"context"
	"errors"
	"fmt"

	"github.com/kalambet/askdb/internal/storage"
)

// ErrDimensionMismatch is returned when vectors of different lengths meet,
// either while building the index or when a query vector does not match it.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Hit is one semantic match. Score is the squared L2 distance to the query;
// lower is closer.
type Hit struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

// Index holds one vector per FAQ entry. Ordinal i of the vectors always
// refers to entries[i].
type Index struct {
	entries []storage.FAQEntry
	vectors [][]float32
	dim     int
}

// BuildIndex embeds every question in entries, in order, and returns the
// resulting index. Entries with no FAQ yield an empty index.
func BuildIndex(ctx context.Context, entries []storage.FAQEntry, emb Embedder) (*Index, error) {
	if len(entries) == 0 {
		return &Index{}, nil
	}
	questions := make([]string, len(entries))
	for i, e := range entries {
		questions[i] = e.Question
	}
	vecs, err := emb.EmbedBatch(ctx, questions)
	if err != nil {
		return nil, fmt.Errorf("embedding faq questions: %w", err)
	}
	return NewIndex(entries, vecs)
}

// NewIndex pairs entries with precomputed vectors. All vectors must share one
// non-zero length.
func NewIndex(entries []storage.FAQEntry, vectors [][]float32) (*Index, error) {
	if len(entries) != len(vectors) {
		return nil, fmt.Errorf("index: %d entries but %d vectors", len(entries), len(vectors))
	}
	if len(vectors) == 0 {
		return &Index{}, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("index: entry 0: %w: empty vector", ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("index: entry %d: %w: got %d, want %d", i, ErrDimensionMismatch, len(v), dim)
		}
	}
	return &Index{entries: entries, vectors: vectors, dim: dim}, nil
}

// Len returns the number of indexed entries.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entries)
}

// Dim returns the vector length, 0 for an empty index.
func (x *Index) Dim() int {
	if x == nil {
		return 0
	}
	return x.dim
}

// Nearest returns the k entries closest to q by squared L2 distance, closest
// first. Equal distances keep index order.
func (x *Index) Nearest(q []float32, k int) ([]Hit, error) {
	if x.Len() == 0 || k <= 0 {
		return nil, nil
	}
	if len(q) != x.dim {
		return nil, fmt.Errorf("query: %w: got %d, want %d", ErrDimensionMismatch, len(q), x.dim)
	}

	h := &maxHeap{}
	for i, v := range x.vectors {
		c := candidate{ordinal: i, dist: squaredL2(q, v)}
		if h.Len() < k {
			heap.Push(h, c)
		} else if c.less((*h)[0]) {
			(*h)[0] = c
			heap.Fix(h, 0)
		}
	}

	hits := make([]Hit, h.Len())
	for i := len(hits) - 1; i >= 0; i-- {
		c := heap.Pop(h).(candidate)
		e := x.entries[c.ordinal]
		hits[i] = Hit{Question: e.Question, Answer: e.Answer, Score: c.dist}
	}
	return hits, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

type candidate struct {
	ordinal int
	dist    float64
}

// less reports whether c ranks ahead of o.
func (c candidate) less(o candidate) bool {
	if c.dist != o.dist {
		return c.dist < o.dist
	}
	return c.ordinal < o.ordinal
}

// maxHeap keeps the worst of the current top-k at the root.
type maxHeap []candidate

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[j].less(h[i]) }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
