package engine

import "context"

// Engine abstracts a language model backend (Ollama, OpenAI or Azure
// OpenAI). The translator and the embedding index use this interface
// instead of depending on a concrete client.
type Engine interface {
	// Chat sends messages to model and returns the assistant's reply.
	Chat(ctx context.Context, model string, messages []Message, opts ChatOptions) (string, error)

	// Embed returns the embedding vector for text using model.
	Embed(ctx context.Context, model string, text string) ([]float32, error)
}

// ModelManager is implemented by backends that host models locally and can
// download missing ones.
type ModelManager interface {
	IsRunning(ctx context.Context) bool
	HasModel(ctx context.Context, name string) bool
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions bounds a single chat completion.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}

// PullProgress reports download progress for a model pull operation.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}
