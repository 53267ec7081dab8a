package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/askdb/internal/api"
	"github.com/kalambet/askdb/internal/config"
	"github.com/kalambet/askdb/internal/ingest"
	"github.com/kalambet/askdb/internal/storage"
)

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load workbooks and the FAQ into a new snapshot and publish it",
	Long: `Load every *.xlsx workbook (one table per sheet), extra *.csv tables and
the FAQ file from the source directory into a new snapshot, export each table
as JSONL, and publish the snapshot. A running server picks it up on
POST /admin/reload or restart.

Examples:
  askdb ingest
  askdb ingest --source ./mock_sharepoint --faq faq.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		opts := ingestOptions(cfg)
		if s, _ := cmd.Flags().GetString("source"); s != "" {
			opts.SourceDir = s
		}
		if f, _ := cmd.Flags().GetString("faq"); f != "" {
			opts.FAQFile = f
		}

		printStep("Ingesting %s", opts.SourceDir)
		report, err := ingest.NewEngine(storage.NewCatalog(cfg.Storage.DataDir)).Run(cmd.Context(), opts)
		if err != nil {
			return err
		}
		printIngestReport(report)
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("source", "", "source directory (default: ingest.source_dir)")
	ingestCmd.Flags().String("faq", "", "FAQ file name inside the source directory (default: ingest.faq_file)")
}

func printIngestReport(r ingest.Report) {
	for _, t := range r.Tables {
		printStatus(t.Name, "%d rows, %d columns (%s)", t.Rows, t.Columns, t.Source)
	}
	for _, s := range r.Skipped {
		printWarning("skipped %s: %v", s.Path, s.Err)
	}
	printSuccess("Published snapshot %s (%d FAQ entries)", r.Version, r.FAQEntries)
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask the running server a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		a, err := ask(cmd.Context(), client, strings.Join(args, " "))
		if err != nil {
			return err
		}
		writeAnswer(os.Stdout, a)
		return nil
	},
}

func ask(ctx context.Context, c *apiClient, question string) (answer, error) {
	resp, err := c.post(ctx, "/query", api.QueryRequest{Query: question})
	if err != nil {
		return answer{}, err
	}
	var a answer
	if err := decodeJSON(resp, &a); err != nil {
		return answer{}, err
	}
	return a, nil
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema of the published snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		schema, ver, err := currentSchema(cmd.Context(), storage.NewCatalog(cfg.Storage.DataDir))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s\n", colorize(colorCyan, "snapshot "+ver))
		fmt.Println(schema)
		return nil
	},
}

func currentSchema(ctx context.Context, cat *storage.Catalog) (schema, version string, err error) {
	version, err = cat.Current()
	if errors.Is(err, storage.ErrNotFound) {
		return "", "", fmt.Errorf("no snapshot published yet; run askdb ingest first")
	}
	if err != nil {
		return "", "", err
	}
	store, err := cat.Open(version)
	if err != nil {
		return "", "", err
	}
	defer store.Close()
	schema, err = store.Schema(ctx)
	return schema, version, err
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and snapshot status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			printError("config error: %v", err)
			return nil
		}

		client := &http.Client{Timeout: 2 * time.Second}
		resp, err := client.Get("http://" + cfg.Addr() + "/health")
		if err != nil {
			printStatus("Server", "stopped")
		} else {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				printStatus("Server", "running on %s", cfg.Addr())
			} else {
				printStatus("Server", "error (HTTP %d)", resp.StatusCode)
			}
		}

		cat := storage.NewCatalog(cfg.Storage.DataDir)
		if cur, err := cat.Current(); err == nil {
			printStatus("Snapshot", "%s", cur)
		} else {
			printStatus("Snapshot", "none")
		}
		if versions, err := cat.Versions(); err == nil {
			printStatus("Retained", "%d", len(versions))
		}
		printStatus("Translate", "%s (%s)", cfg.Translate.Backend, cfg.Translate.Model)
		printStatus("Embed", "%s", embedLabel(cfg))
		printStatus("Data dir", "%s", cfg.Storage.DataDir)
		return nil
	},
}

func embedLabel(cfg config.Config) string {
	if cfg.Embed.Backend == "hash" {
		return fmt.Sprintf("hash (dim %d)", cfg.Embed.Dim)
	}
	return fmt.Sprintf("%s (%s)", cfg.Embed.Backend, cfg.Embed.Model)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Set a configuration value",
	Args:      cobra.ExactArgs(2),
	ValidArgs: config.ValidKeys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.ConfigFilePath())
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}
