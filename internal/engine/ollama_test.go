package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaEngine_Chat(t *testing.T) {
	var opts map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Options map[string]any `json:"options"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		opts = body.Options
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "SELECT 1;"},
		})
	}))
	defer srv.Close()

	e := NewOllamaEngine(srv.URL)
	result, err := e.Chat(context.Background(), "llama3.2", []Message{
		{Role: "user", Content: "hi"},
	}, ChatOptions{MaxTokens: 150})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result != "SELECT 1;" {
		t.Errorf("got %q, want %q", result, "SELECT 1;")
	}
	if opts["num_predict"] != float64(150) {
		t.Errorf("num_predict = %v, want 150", opts["num_predict"])
	}
	if opts["temperature"] != float64(0) {
		t.Errorf("temperature = %v, want 0", opts["temperature"])
	}
}

func TestOllamaEngine_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}},
		})
	}))
	defer srv.Close()

	e := NewOllamaEngine(srv.URL)
	vecs, err := e.EmbedBatch(context.Background(), "nomic-embed-text", []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 2 || len(vecs[1]) != 3 {
		t.Fatalf("vecs = %v", vecs)
	}
}

func TestOllamaEngine_PullModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" {
			http.NotFound(w, r)
			return
		}
		enc := json.NewEncoder(w)
		enc.Encode(map[string]any{"status": "downloading", "total": 1000, "completed": 500})
		enc.Encode(map[string]any{"status": "downloading", "total": 1000, "completed": 1000})
		enc.Encode(map[string]any{"status": "success"})
	}))
	defer srv.Close()

	e := NewOllamaEngine(srv.URL)
	var progressCount int
	err := e.PullModel(context.Background(), "nomic-embed-text", func(p PullProgress) {
		progressCount++
	})
	if err != nil {
		t.Fatalf("PullModel: %v", err)
	}
	if progressCount != 3 {
		t.Errorf("received %d progress updates, want 3", progressCount)
	}
}

func TestOllamaEngineIsModelManager(t *testing.T) {
	var e Engine = NewOllamaEngine("http://localhost:11434")
	if _, ok := e.(ModelManager); !ok {
		t.Error("OllamaEngine does not implement ModelManager")
	}
}
