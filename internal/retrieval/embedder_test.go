package retrieval

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/kalambet/askdb/internal/engine"
)

type mockEngine struct {
	embedFn func(ctx context.Context, model, text string) ([]float32, error)
}

func (m *mockEngine) Chat(_ context.Context, _ string, _ []engine.Message, _ engine.ChatOptions) (string, error) {
	return "", nil
}

func (m *mockEngine) Embed(ctx context.Context, model, text string) ([]float32, error) {
	return m.embedFn(ctx, model, text)
}

// mockBatchEngine also supports batched embedding.
type mockBatchEngine struct {
	mockEngine
	calls atomic.Int32
}

func (m *mockBatchEngine) EmbedBatch(_ context.Context, _ string, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestEmbed_ReturnsDimension(t *testing.T) {
	m := &mockEngine{embedFn: func(_ context.Context, _, _ string) ([]float32, error) {
		return make([]float32, 768), nil
	}}
	e := NewEngineEmbedder(m, "nomic-embed-text")
	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 768 {
		t.Errorf("len = %d, want 768", len(vec))
	}
}

func TestEmbed_EngineError(t *testing.T) {
	m := &mockEngine{embedFn: func(_ context.Context, _, _ string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}}
	if _, err := NewEngineEmbedder(m, "m").Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
}

func TestEmbedBatch_AlignedWithInput(t *testing.T) {
	m := &mockEngine{embedFn: func(_ context.Context, _, text string) ([]float32, error) {
		return []float32{float32(len(text))}, nil
	}}
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff"}
	vecs, err := NewEngineEmbedder(m, "m").EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if int(v[0]) != len(texts[i]) {
			t.Errorf("vecs[%d] = %v, want [%d]", i, v, len(texts[i]))
		}
	}
}

func TestEmbedBatch_UsesNativeBatching(t *testing.T) {
	m := &mockBatchEngine{}
	texts := make([]string, batchSize+3)
	for i := range texts {
		texts[i] = string(make([]byte, i))
	}
	vecs, err := NewEngineEmbedder(m, "m").EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if got := m.calls.Load(); got != 2 {
		t.Errorf("batch calls = %d, want 2", got)
	}
	for i, v := range vecs {
		if int(v[0]) != i {
			t.Errorf("vecs[%d] = %v, want [%d]", i, v, i)
		}
	}
}

func TestEmbedBatch_EngineError(t *testing.T) {
	m := &mockEngine{embedFn: func(_ context.Context, _, text string) ([]float32, error) {
		if text == "bad" {
			return nil, errors.New("boom")
		}
		return []float32{1}, nil
	}}
	if _, err := NewEngineEmbedder(m, "m").EmbedBatch(context.Background(), []string{"ok", "bad"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	m := &mockEngine{embedFn: func(_ context.Context, _, _ string) ([]float32, error) {
		t.Fatal("engine should not be called")
		return nil, nil
	}}
	vecs, err := NewEngineEmbedder(m, "m").EmbedBatch(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Errorf("EmbedBatch(nil) = %v, %v; want nil, nil", vecs, err)
	}
}
