package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/askdb/internal/api"
	"github.com/kalambet/askdb/internal/cache"
	"github.com/kalambet/askdb/internal/config"
	"github.com/kalambet/askdb/internal/engine"
	"github.com/kalambet/askdb/internal/ingest"
	"github.com/kalambet/askdb/internal/kb"
	"github.com/kalambet/askdb/internal/retrieval"
	"github.com/kalambet/askdb/internal/router"
	"github.com/kalambet/askdb/internal/storage"
	"github.com/kalambet/askdb/internal/translate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the knowledge base and serve the HTTP API (or MCP over stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		mcpMode, _ := cmd.Flags().GetBool("mcp")
		return runServer(mcpMode)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "serve the MCP protocol on stdin/stdout instead of HTTP")
}

func ingestOptions(cfg config.Config) ingest.Options {
	return ingest.Options{
		SourceDir:     cfg.Ingest.SourceDir,
		FAQFile:       cfg.Ingest.FAQFile,
		ExportDir:     cfg.Ingest.ExportDir,
		KeepSnapshots: cfg.Ingest.KeepSnapshots,
	}
}

// newEmbedder returns the configured embedder and, for model-backed
// embedders, the engine serving it.
func newEmbedder(cfg config.Config) (retrieval.Embedder, engine.Engine, error) {
	switch cfg.Embed.Backend {
	case "hash":
		return retrieval.NewHashEmbedder(cfg.Embed.Dim), nil, nil
	case engine.BackendOllama, engine.BackendOpenAI:
		e, err := engine.New(engine.Options{
			Backend:       cfg.Embed.Backend,
			BaseURL:       cfg.Embed.BaseURL,
			APIKey:        cfg.EmbedAPIKey(),
			OllamaBaseURL: cfg.Ollama.BaseURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("embedding engine: %w", err)
		}
		return retrieval.NewEngineEmbedder(e, cfg.Embed.Model), e, nil
	default:
		return nil, nil, fmt.Errorf("unknown embed backend %q", cfg.Embed.Backend)
	}
}

// newCache connects to Redis when configured. Without Redis, or when it is
// unreachable, translations are cached in process.
func newCache(ctx context.Context, cfg config.Config) cache.Client {
	if cfg.Cache.RedisAddr == "" {
		return cache.NewMemoryClient(cfg.Cache.Size, cfg.CacheTTL())
	}
	c, err := cache.NewRedisClient(ctx, cache.RedisConfig{Addr: cfg.Cache.RedisAddr})
	if err != nil {
		slog.Warn("redis unavailable, using in-process translation cache", "addr", cfg.Cache.RedisAddr, "error", err)
		return cache.NewMemoryClient(cfg.Cache.Size, cfg.CacheTTL())
	}
	slog.Info("translation cache connected", "addr", cfg.Cache.RedisAddr)
	return c
}

// buildService wires the knowledge base from cfg. The returned close func
// releases the snapshot and the cache.
func buildService(ctx context.Context, cfg config.Config) (*kb.Service, func(), error) {
	embedder, embedEngine, err := newEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}
	chatEngine, err := engine.New(engine.Options{
		Backend:       cfg.Translate.Backend,
		BaseURL:       cfg.Translate.BaseURL,
		APIKey:        cfg.Translate.APIKey,
		APIVersion:    cfg.Translate.APIVersion,
		OllamaBaseURL: cfg.Ollama.BaseURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("translation engine: %w", err)
	}

	if err := engine.EnsureReady(ctx, chatEngine, []string{cfg.Translate.Model}, os.Stderr); err != nil {
		return nil, nil, err
	}
	if embedEngine != nil {
		if err := engine.EnsureReady(ctx, embedEngine, []string{cfg.Embed.Model}, os.Stderr); err != nil {
			return nil, nil, err
		}
	}

	tc := newCache(ctx, cfg)
	svc := kb.NewService(kb.Options{
		Catalog:  storage.NewCatalog(cfg.Storage.DataDir),
		Ingest:   ingestOptions(cfg),
		Embedder: embedder,
		Translator: translate.New(chatEngine, translate.Options{
			Model:       cfg.Translate.Model,
			Timeout:     cfg.TranslateTimeout(),
			MaxTokens:   cfg.Translate.MaxTokens,
			Temperature: cfg.Translate.Temperature,
			Cache:       tc,
			CacheTTL:    cfg.CacheTTL(),
		}),
		Limits: router.Limits{
			Lexical:  cfg.Search.LexicalLimit,
			Semantic: cfg.Search.SemanticLimit,
		},
	})
	closeFn := func() {
		if err := svc.Close(); err != nil {
			slog.Warn("closing snapshot", "error", err)
		}
		tc.Close()
	}
	return svc, closeFn, nil
}

// startService ingests on startup when configured, otherwise loads the
// published snapshot, falling back to ingestion when none exists yet.
func startService(ctx context.Context, cfg config.Config, svc *kb.Service) error {
	if !cfg.Ingest.OnStartup {
		err := svc.LoadCurrent(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		slog.Info("no published snapshot, ingesting", "source_dir", cfg.Ingest.SourceDir)
	}
	report, err := svc.Reload(ctx)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", cfg.Ingest.SourceDir, err)
	}
	for _, s := range report.Skipped {
		slog.Warn("source skipped", "path", s.Path, "error", s.Err)
	}
	return nil
}

func runServer(mcpMode bool) error {
	fmt.Fprintln(os.Stderr, versionString())

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)
	if !mcpMode {
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, closeSvc, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSvc()

	if err := startService(ctx, cfg, svc); err != nil {
		return err
	}
	slog.Info("knowledge base ready", "version", svc.Version())

	if mcpMode {
		stdioSrv := server.NewStdioServer(api.NewMCPServer(svc, version))
		slog.Info("MCP server started (stdio transport)")
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server: %w", err)
		}
		return nil
	}

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewHandler(svc, cfg.Server.APIKey),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "askdb listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
