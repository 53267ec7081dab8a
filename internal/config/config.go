package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Ingest    IngestConfig
	Embed     EmbedConfig
	Translate TranslateConfig
	Ollama    OllamaConfig
	Search    SearchConfig
	Cache     CacheConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host   string
	Port   int
	APIKey string
}

type StorageConfig struct {
	DataDir string
}

type IngestConfig struct {
	SourceDir     string
	FAQFile       string
	ExportDir     string
	OnStartup     bool
	KeepSnapshots int
}

type EmbedConfig struct {
	// Backend is one of "hash", "ollama" or "openai".
	Backend string
	Model   string
	Dim     int
	// BaseURL and APIKey address the openai embedding backend. They are
	// separate from the translate settings, which may point at Azure.
	BaseURL string
	APIKey  string
}

type TranslateConfig struct {
	// Backend is one of "openai", "azure" or "ollama".
	Backend     string
	Model       string
	BaseURL     string
	APIVersion  string
	APIKey      string
	Timeout     string
	MaxTokens   int
	Temperature float64
}

type OllamaConfig struct {
	BaseURL string
}

type SearchConfig struct {
	LexicalLimit  int
	SemanticLimit int
}

type CacheConfig struct {
	RedisAddr string
	TTL       string
	// Size caps the in-process cache used when RedisAddr is empty.
	Size int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Ingest: IngestConfig{
			SourceDir:     "mock_sharepoint",
			FAQFile:       "faq.csv",
			OnStartup:     true,
			KeepSnapshots: 2,
		},
		Embed: EmbedConfig{
			Backend: "hash",
			Model:   "nomic-embed-text",
			Dim:     256,
		},
		Translate: TranslateConfig{
			Backend:    "openai",
			Model:      "gpt-4o-mini",
			APIVersion: "2024-12-01-preview",
			Timeout:    "30s",
			MaxTokens:  150,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
		},
		Search: SearchConfig{
			LexicalLimit:  5,
			SemanticLimit: 3,
		},
		Cache: CacheConfig{
			TTL:  "1h",
			Size: 1024,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration in increasing order of precedence: built-in
// defaults, the YAML file at $XDG_CONFIG_HOME/askdb/config.yaml, and ASKDB_*
// environment variables. A .env file in the working directory is loaded into
// the environment first; variables already set are not overwritten.
//
// Secrets (API keys) are read from the environment only.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Ingest.ExportDir == "" {
		cfg.Ingest.ExportDir = filepath.Join(cfg.Storage.DataDir, "exports")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Embed.Backend {
	case "hash", "ollama", "openai":
	default:
		return fmt.Errorf("invalid embed.backend %q: want hash, ollama or openai", c.Embed.Backend)
	}
	switch c.Translate.Backend {
	case "openai", "azure", "ollama":
	default:
		return fmt.Errorf("invalid translate.backend %q: want openai, azure or ollama", c.Translate.Backend)
	}
	if _, err := time.ParseDuration(c.Translate.Timeout); err != nil {
		return fmt.Errorf("invalid translate.timeout %q: %w", c.Translate.Timeout, err)
	}
	if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
		return fmt.Errorf("invalid cache.ttl %q: %w", c.Cache.TTL, err)
	}
	if c.Embed.Dim <= 0 {
		return fmt.Errorf("invalid embed.dim %d: must be positive", c.Embed.Dim)
	}
	if c.Embed.Backend == "openai" && c.EmbedAPIKey() == "" && c.Embed.BaseURL == "" {
		return fmt.Errorf("embed.backend openai needs ASKDB_EMBED_API_KEY or embed.base_url " +
			"(translate credentials are reused only when translate.backend is openai)")
	}
	if c.Cache.Size <= 0 {
		return fmt.Errorf("invalid cache.size %d: must be positive", c.Cache.Size)
	}
	if c.Search.LexicalLimit <= 0 || c.Search.SemanticLimit <= 0 {
		return fmt.Errorf("search limits must be positive")
	}
	return nil
}

// RequireAPIKey returns an error when the server API key is not configured.
// Only the HTTP server needs it; offline commands do not.
func (c Config) RequireAPIKey() error {
	if c.Server.APIKey == "" {
		return fmt.Errorf("missing required config: server API key. " +
			"Set it via environment variable ASKDB_API_KEY or in a .env file")
	}
	return nil
}

// EmbedAPIKey returns the key for the openai embedding backend. Without an
// explicit embed.api_key it falls back to translate.api_key, but only when
// translation also talks to OpenAI.
func (c Config) EmbedAPIKey() string {
	if c.Embed.APIKey != "" {
		return c.Embed.APIKey
	}
	if c.Translate.Backend == "openai" {
		return c.Translate.APIKey
	}
	return ""
}

// TranslateTimeout returns the parsed translate.timeout.
func (c Config) TranslateTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Translate.Timeout)
	return d
}

// CacheTTL returns the parsed cache.ttl.
func (c Config) CacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.TTL)
	return d
}

// Addr returns the host:port the HTTP server listens on.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
