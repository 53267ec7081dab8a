package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEngine talks to the OpenAI API, an OpenAI-compatible server, or an
// Azure OpenAI resource. On Azure the model argument is the deployment name.
type OpenAIEngine struct {
	client *openai.Client
}

// NewOpenAIEngine creates an engine for the OpenAI API. baseURL may point at
// any OpenAI-compatible server; empty keeps the public endpoint.
func NewOpenAIEngine(apiKey, baseURL string) *OpenAIEngine {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEngine{client: openai.NewClientWithConfig(cfg)}
}

// NewAzureEngine creates an engine for an Azure OpenAI endpoint.
func NewAzureEngine(apiKey, endpoint, apiVersion string) *OpenAIEngine {
	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	// Deployment names are used verbatim.
	cfg.AzureModelMapperFunc = func(model string) string { return model }
	return &OpenAIEngine{client: openai.NewClientWithConfig(cfg)}
}

func (e *OpenAIEngine) Chat(ctx context.Context, model string, messages []Message, opts ChatOptions) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	temp := float32(opts.Temperature)
	if temp == 0 {
		// A zero temperature is dropped by omitempty and the API default (1) applies.
		temp = math.SmallestNonzeroFloat32
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: temp,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (e *OpenAIEngine) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, model, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in a single request. The result is aligned with
// texts regardless of the order the API returns items in.
func (e *OpenAIEngine) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embeddings: index %d out of range", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i := range d.Embedding {
			v[i] = float32(d.Embedding[i])
		}
		out[d.Index] = v
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("embeddings: missing vector for input %d", i)
		}
	}
	return out, nil
}
