package retrieval

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder is a local, deterministic embedder that needs no model. Each
// text becomes a bag of features (words, adjacent word pairs and character
// trigrams) hashed into dim signed buckets, then L2-normalized. Texts sharing
// words or word stems end up close; identical texts map to identical vectors.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder constructs the embedder. dim <= 0 defaults to 256.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{dim: dim}
}

// Dim returns the vector length.
func (e *HashEmbedder) Dim() int { return e.dim }

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *HashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

const (
	wordWeight    = 1.0
	pairWeight    = 0.5
	trigramWeight = 0.35
)

func (e *HashEmbedder) vector(text string) []float32 {
	acc := make([]float64, e.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for i, w := range words {
		e.add(acc, "w:"+w, wordWeight)
		if i > 0 {
			e.add(acc, "p:"+words[i-1]+" "+w, pairWeight)
		}
		padded := []rune("#" + w + "#")
		for j := 0; j+3 <= len(padded); j++ {
			e.add(acc, "t:"+string(padded[j:j+3]), trigramWeight)
		}
	}

	var sum float64
	for _, v := range acc {
		sum += v * v
	}
	vec := make([]float32, e.dim)
	if sum == 0 {
		return vec
	}
	inv := 1 / math.Sqrt(sum)
	for i, v := range acc {
		vec[i] = float32(v * inv)
	}
	return vec
}

// add hashes feature into a bucket; one hash bit picks the sign so that
// colliding features tend to cancel rather than accumulate.
func (e *HashEmbedder) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(e.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}
