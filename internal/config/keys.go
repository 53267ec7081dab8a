package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "ASKDB_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "ASKDB_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_key", typ: kString, env: "ASKDB_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIKey },
	},
	{
		key: "storage.data_dir", typ: kString, env: "ASKDB_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "ingest.source_dir", typ: kString, env: "ASKDB_INGEST_SOURCE_DIR",
		apply:   func(cfg *Config, v any) { cfg.Ingest.SourceDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Ingest.SourceDir },
	},
	{
		key: "ingest.faq_file", typ: kString, env: "ASKDB_INGEST_FAQ_FILE",
		apply:   func(cfg *Config, v any) { cfg.Ingest.FAQFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Ingest.FAQFile },
	},
	{
		key: "ingest.export_dir", typ: kString, env: "ASKDB_INGEST_EXPORT_DIR",
		apply:   func(cfg *Config, v any) { cfg.Ingest.ExportDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Ingest.ExportDir },
	},
	{
		key: "ingest.on_startup", typ: kBool, env: "ASKDB_INGEST_ON_STARTUP",
		apply:   func(cfg *Config, v any) { cfg.Ingest.OnStartup = v.(bool) },
		extract: func(cfg Config) any { return cfg.Ingest.OnStartup },
	},
	{
		key: "ingest.keep_snapshots", typ: kInt, env: "ASKDB_INGEST_KEEP_SNAPSHOTS",
		apply:   func(cfg *Config, v any) { cfg.Ingest.KeepSnapshots = v.(int) },
		extract: func(cfg Config) any { return cfg.Ingest.KeepSnapshots },
	},
	{
		key: "embed.backend", typ: kString, env: "ASKDB_EMBED_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Embed.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Embed.Backend },
	},
	{
		key: "embed.model", typ: kString, env: "ASKDB_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Embed.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Embed.Model },
	},
	{
		key: "embed.dim", typ: kInt, env: "ASKDB_EMBED_DIM",
		apply:   func(cfg *Config, v any) { cfg.Embed.Dim = v.(int) },
		extract: func(cfg Config) any { return cfg.Embed.Dim },
	},
	{
		key: "embed.base_url", typ: kString, env: "ASKDB_EMBED_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Embed.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Embed.BaseURL },
	},
	{
		key: "embed.api_key", typ: kString, env: "ASKDB_EMBED_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Embed.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Embed.APIKey },
	},
	{
		key: "translate.backend", typ: kString, env: "ASKDB_TRANSLATE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Translate.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Translate.Backend },
	},
	{
		key: "translate.model", typ: kString, env: "ASKDB_TRANSLATE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Translate.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Translate.Model },
	},
	{
		key: "translate.base_url", typ: kString, env: "ASKDB_TRANSLATE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Translate.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Translate.BaseURL },
	},
	{
		key: "translate.api_version", typ: kString, env: "ASKDB_TRANSLATE_API_VERSION",
		apply:   func(cfg *Config, v any) { cfg.Translate.APIVersion = v.(string) },
		extract: func(cfg Config) any { return cfg.Translate.APIVersion },
	},
	{
		key: "translate.api_key", typ: kString, env: "ASKDB_TRANSLATE_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Translate.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Translate.APIKey },
	},
	{
		key: "translate.timeout", typ: kString, env: "ASKDB_TRANSLATE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Translate.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Translate.Timeout },
	},
	{
		key: "translate.max_tokens", typ: kInt, env: "ASKDB_TRANSLATE_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Translate.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Translate.MaxTokens },
	},
	{
		key: "translate.temperature", typ: kFloat, env: "ASKDB_TRANSLATE_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Translate.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Translate.Temperature },
	},
	{
		key: "ollama.base_url", typ: kString, env: "ASKDB_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "search.lexical_limit", typ: kInt, env: "ASKDB_SEARCH_LEXICAL_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Search.LexicalLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Search.LexicalLimit },
	},
	{
		key: "search.semantic_limit", typ: kInt, env: "ASKDB_SEARCH_SEMANTIC_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Search.SemanticLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Search.SemanticLimit },
	},
	{
		key: "cache.redis_addr", typ: kString, env: "ASKDB_CACHE_REDIS_ADDR",
		apply:   func(cfg *Config, v any) { cfg.Cache.RedisAddr = v.(string) },
		extract: func(cfg Config) any { return cfg.Cache.RedisAddr },
	},
	{
		key: "cache.ttl", typ: kString, env: "ASKDB_CACHE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Cache.TTL = v.(string) },
		extract: func(cfg Config) any { return cfg.Cache.TTL },
	},
	{
		key: "cache.size", typ: kInt, env: "ASKDB_CACHE_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Cache.Size = v.(int) },
		extract: func(cfg Config) any { return cfg.Cache.Size },
	},
	{
		key: "log.level", typ: kString, env: "ASKDB_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		default:
			raw, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if !ok {
				continue
			}
			v, err := parseValue(s.typ, raw)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			s.apply(cfg, v)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}

func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}
