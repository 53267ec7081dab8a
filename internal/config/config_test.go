package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearEnv blanks every ASKDB_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadWith(newFileBackend(filepath.Join(t.TempDir(), "missing.yaml")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Ingest.FAQFile != "faq.csv" {
		t.Errorf("Ingest.FAQFile = %q, want %q", cfg.Ingest.FAQFile, "faq.csv")
	}
	if !cfg.Ingest.OnStartup {
		t.Error("Ingest.OnStartup = false, want true")
	}
	if cfg.Translate.MaxTokens != 150 {
		t.Errorf("Translate.MaxTokens = %d, want 150", cfg.Translate.MaxTokens)
	}
	if cfg.Translate.Temperature != 0 {
		t.Errorf("Translate.Temperature = %v, want 0", cfg.Translate.Temperature)
	}
	if cfg.Search.LexicalLimit != 5 || cfg.Search.SemanticLimit != 3 {
		t.Errorf("Search limits = %d/%d, want 5/3", cfg.Search.LexicalLimit, cfg.Search.SemanticLimit)
	}
	if cfg.Embed.Backend != "hash" {
		t.Errorf("Embed.Backend = %q, want %q", cfg.Embed.Backend, "hash")
	}
	want := filepath.Join(cfg.Storage.DataDir, "exports")
	if cfg.Ingest.ExportDir != want {
		t.Errorf("Ingest.ExportDir = %q, want %q", cfg.Ingest.ExportDir, want)
	}
}

func TestYAMLParsing(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
server.port: 9000
storage.data_dir: /tmp/askdb-test
ingest.on_startup: false
ingest.keep_snapshots: 4
embed.backend: ollama
translate.temperature: 0.2
translate.timeout: 5s
cache.redis_addr: localhost:6379
`)

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/tmp/askdb-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Ingest.OnStartup {
		t.Error("Ingest.OnStartup = true, want false")
	}
	if cfg.Ingest.KeepSnapshots != 4 {
		t.Errorf("Ingest.KeepSnapshots = %d, want 4", cfg.Ingest.KeepSnapshots)
	}
	if cfg.Embed.Backend != "ollama" {
		t.Errorf("Embed.Backend = %q", cfg.Embed.Backend)
	}
	if cfg.Translate.Temperature != 0.2 {
		t.Errorf("Translate.Temperature = %v, want 0.2", cfg.Translate.Temperature)
	}
	if got := cfg.TranslateTimeout().String(); got != "5s" {
		t.Errorf("TranslateTimeout = %s, want 5s", got)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("Cache.RedisAddr = %q", cfg.Cache.RedisAddr)
	}
	if cfg.Ingest.ExportDir != "/tmp/askdb-test/exports" {
		t.Errorf("Ingest.ExportDir = %q", cfg.Ingest.ExportDir)
	}
}

func TestJSONFileAccepted(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{"server.port": 7000, "log.level": "debug"}`)

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "server.port: 9000\n")

	t.Setenv("ASKDB_SERVER_PORT", "9100")
	t.Setenv("ASKDB_API_KEY", "secret")
	t.Setenv("ASKDB_INGEST_ON_STARTUP", "false")

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Server.APIKey != "secret" {
		t.Errorf("Server.APIKey = %q, want %q", cfg.Server.APIKey, "secret")
	}
	if cfg.Ingest.OnStartup {
		t.Error("Ingest.OnStartup = true, want false")
	}
}

func TestSecretsIgnoredInFile(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "server.api_key: from-file\n")

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.APIKey != "" {
		t.Errorf("Server.APIKey = %q, want empty", cfg.Server.APIKey)
	}
	if err := cfg.RequireAPIKey(); err == nil {
		t.Fatal("expected error for missing API key, got nil")
	} else if !strings.Contains(err.Error(), "missing required config") {
		t.Errorf("error = %q, want it to contain %q", err, "missing required config")
	}
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"embed backend", "embed.backend: faiss\n"},
		{"translate backend", "translate.backend: bard\n"},
		{"timeout", "translate.timeout: soon\n"},
		{"bool", "ingest.on_startup: maybe\n"},
		{"int", "server.port: eighty\n"},
		{"cache size", "cache.size: 0\n"},
		{"openai embed behind azure translate", "embed.backend: openai\ntranslate.backend: azure\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if _, err := loadWith(newFileBackend(writeTempConfig(t, tt.content))); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSetKey(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "askdb", "config.yaml")
	b := newFileBackend(path)

	if err := setKey(b, "server.port", "8123"); err != nil {
		t.Fatalf("setKey: %v", err)
	}
	if err := setKey(b, "ingest.on_startup", "false"); err != nil {
		t.Fatalf("setKey: %v", err)
	}
	if err := setKey(b, "server.api_key", "nope"); err == nil {
		t.Error("expected error setting a secret")
	}
	if err := setKey(b, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := setKey(b, "server.port", "abc"); err == nil {
		t.Error("expected error for invalid integer")
	}

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Server.Port != 8123 {
		t.Errorf("Server.Port = %d, want 8123", cfg.Server.Port)
	}
	if cfg.Ingest.OnStartup {
		t.Error("Ingest.OnStartup = true, want false")
	}
}

func TestShowAllSkipsSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Server.APIKey = "hidden"
	for _, ki := range ShowAll(cfg) {
		if ki.Key == "server.api_key" || ki.Key == "translate.api_key" {
			t.Errorf("ShowAll exposed secret key %s", ki.Key)
		}
	}
	if len(ValidKeys()) != len(ShowAll(cfg)) {
		t.Errorf("ValidKeys and ShowAll disagree: %d vs %d", len(ValidKeys()), len(ShowAll(cfg)))
	}
}

func TestEmbedCredentials(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		env       map[string]string
		wantKey   string
		wantURL   string
		wantError bool
	}{
		{
			name:    "reuses openai translate key",
			content: "embed.backend: openai\n",
			env:     map[string]string{"ASKDB_TRANSLATE_API_KEY": "sk-translate"},
			wantKey: "sk-translate",
		},
		{
			name:    "own key and endpoint beside azure",
			content: "embed.backend: openai\nembed.base_url: https://embed.example/v1\ntranslate.backend: azure\ntranslate.base_url: https://corp.openai.azure.com\n",
			env:     map[string]string{"ASKDB_TRANSLATE_API_KEY": "azure-key", "ASKDB_EMBED_API_KEY": "sk-embed"},
			wantKey: "sk-embed",
			wantURL: "https://embed.example/v1",
		},
		{
			name:      "azure key is never reused",
			content:   "embed.backend: openai\ntranslate.backend: azure\n",
			env:       map[string]string{"ASKDB_TRANSLATE_API_KEY": "azure-key"},
			wantError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := loadWith(newFileBackend(writeTempConfig(t, tt.content)))
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := cfg.EmbedAPIKey(); got != tt.wantKey {
				t.Errorf("EmbedAPIKey() = %q, want %q", got, tt.wantKey)
			}
			if cfg.Embed.BaseURL != tt.wantURL {
				t.Errorf("Embed.BaseURL = %q, want %q", cfg.Embed.BaseURL, tt.wantURL)
			}
		})
	}
}
