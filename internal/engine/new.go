package engine

import "fmt"

// Backend names accepted by New.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
	BackendAzure  = "azure"
)

// Options holds the connection parameters for New.
type Options struct {
	Backend       string
	BaseURL       string
	APIKey        string
	APIVersion    string
	OllamaBaseURL string
}

// New returns the engine for o.Backend.
func New(o Options) (Engine, error) {
	switch o.Backend {
	case BackendOllama:
		return NewOllamaEngine(o.OllamaBaseURL), nil
	case BackendOpenAI:
		if o.APIKey == "" && o.BaseURL == "" {
			return nil, fmt.Errorf("openai backend requires an API key or a base URL")
		}
		return NewOpenAIEngine(o.APIKey, o.BaseURL), nil
	case BackendAzure:
		if o.APIKey == "" || o.BaseURL == "" {
			return nil, fmt.Errorf("azure backend requires an API key and an endpoint")
		}
		return NewAzureEngine(o.APIKey, o.BaseURL, o.APIVersion), nil
	default:
		return nil, fmt.Errorf("unknown engine backend %q", o.Backend)
	}
}
