package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/savagelysubtle/archivum/internal/api"
	"github.com/savagelysubtle/archivum/internal/cache"
	"github.com/savagelysubtle/archivum/internal/config"
	"github.com/savagelysubtle/archivum/internal/extract"
	"github.com/savagelysubtle/archivum/internal/extractors"
	"github.com/savagelysubtle/archivum/internal/record"
)

// engineStack bundles what a command needs to run extractions: the
// engine, its registry, the cache admin surface (nil when the backend
// is off), and a cleanup for the cache handle.
type engineStack struct {
	engine   *extract.Engine
	registry *extract.Registry
	cache    api.CacheAdmin
	cleanup  func()
}

// buildEngine assembles an extraction engine from config: the default
// extractor set, the per-extractor timeout, and the configured cache
// backend.
func buildEngine(cfg config.Config, log *slog.Logger) (engineStack, error) {
	reg := extractors.DefaultRegistry(int64(cfg.Extract.MaxContentBytes))

	opts := []extract.Option{extract.WithLogger(log)}

	timeout, err := time.ParseDuration(cfg.Extract.Timeout)
	if err != nil {
		printWarning("invalid extract timeout %q, using 30s", cfg.Extract.Timeout)
		timeout = 30 * time.Second
	}
	if timeout > 0 {
		opts = append(opts, extract.WithTimeout(timeout))
	}

	stack := engineStack{registry: reg, cleanup: func() {}}
	switch cfg.Cache.Backend {
	case "sqlite":
		store, err := cache.Open(cfg.Cache.Dir)
		if err != nil {
			return engineStack{}, fmt.Errorf("opening cache: %w", err)
		}
		store.SetMaxEntries(cfg.Cache.MaxEntries)
		opts = append(opts, extract.WithCache(store))
		stack.cache = store
		stack.cleanup = func() { store.Close() }
	case "memory":
		mem := cache.NewMemory(cfg.Cache.MaxEntries)
		opts = append(opts, extract.WithCache(mem))
		stack.cache = mem
	case "off":
	default:
		return engineStack{}, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}

	stack.engine = extract.New(reg, opts...)
	return stack, nil
}

// cliLogger keeps one-shot commands quiet: record errors carry failure
// detail already, so only warnings surface unless debug logging is on.
func cliLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelWarn
	if strings.EqualFold(cfg.Log.Level, "debug") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// --- extract ---

var extractCmd = &cobra.Command{
	Use:   "extract <path>",
	Short: "Extract metadata from a single file",
	Long: `Extract metadata from a single file.

Examples:
  archivum extract ./report.pdf
  archivum extract ./page.html --json
  archivum extract ./blob.dat --mime-type text/plain`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mimeType, _ := cmd.Flags().GetString("mime-type")
		contentFrom, _ := cmd.Flags().GetString("content")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		stack, err := buildEngine(cfg, cliLogger(cfg))
		if err != nil {
			return err
		}
		defer stack.cleanup()

		var opts []extract.ExtractOption
		if mimeType != "" {
			opts = append(opts, extract.WithMIMEType(mimeType))
		}
		if contentFrom != "" {
			data, err := os.ReadFile(contentFrom)
			if err != nil {
				return fmt.Errorf("reading content file: %w", err)
			}
			opts = append(opts, extract.WithContent(data))
		}

		rec := stack.engine.ExtractOne(cmd.Context(), args[0], opts...)

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}

		printRecord(rec)
		return nil
	},
}

func init() {
	extractCmd.Flags().String("mime-type", "", "MIME type override, skips detection")
	extractCmd.Flags().String("content", "", "file to read content bytes from instead of <path>")
	extractCmd.Flags().Bool("json", false, "print the full record as JSON")
}

func printRecord(rec *record.Record) {
	fmt.Printf("%s %s\n", colorize(colorBold, "Path:"), rec.Path)
	fmt.Printf("%s %s\n", colorize(colorBold, "MIME type:"), rec.MIMEType)
	fmt.Printf("%s %d bytes\n", colorize(colorBold, "Size:"), rec.Size)
	if rec.ContentType != "" {
		fmt.Printf("%s %s\n", colorize(colorBold, "Content type:"), rec.ContentType)
	}
	if rec.Language != "" {
		fmt.Printf("%s %s\n", colorize(colorBold, "Language:"), rec.Language)
	}
	if len(rec.Keywords) > 0 {
		fmt.Printf("%s %s\n", colorize(colorBold, "Keywords:"), strings.Join(rec.Keywords, ", "))
	}
	if rec.Preview != "" {
		fmt.Printf("%s %s\n", colorize(colorBold, "Preview:"), rec.Preview)
	}

	names := make([]string, 0, len(rec.Payload))
	for name := range rec.Payload {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		keys := make([]string, 0, len(rec.Payload[name]))
		for key := range rec.Payload[name] {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Printf("  %s.%s = %v\n", name, key, rec.Payload[name][key])
		}
	}

	if rec.Error != "" {
		fmt.Printf("%s %s\n", colorize(colorBold, "Errors:"), rec.Error)
	}
	state := colorize(colorGreen, "complete")
	if !rec.Complete {
		state = colorize(colorRed, "incomplete")
	}
	fmt.Printf("%s %s in %.3fs\n", colorize(colorBold, "Extraction:"), state, rec.ExtractionTime)
}

// --- scan ---

var scanCmd = &cobra.Command{
	Use:   "scan <path>...",
	Short: "Extract metadata from many files concurrently",
	Long: `Extract metadata from many files concurrently. Results keep the
input order regardless of which files finish first.

Examples:
  archivum scan ./docs/*.md
  archivum scan a.pdf b.html c.png --concurrency 8 --output records.jsonl`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		output, _ := cmd.Flags().GetString("output")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if concurrency <= 0 {
			concurrency = cfg.Extract.Concurrency
		}

		stack, err := buildEngine(cfg, cliLogger(cfg))
		if err != nil {
			return err
		}
		defer stack.cleanup()

		results := stack.engine.ExtractMany(cmd.Context(), args, concurrency)

		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			if err := writeJSONL(f, results); err != nil {
				return err
			}
			printSuccess("Wrote %d records to %s", len(results), output)
			return nil
		}

		if asJSON {
			return writeJSONL(os.Stdout, results)
		}

		failed := 0
		for _, rec := range results {
			mark := colorize(colorGreen, "✓")
			if !rec.Complete {
				mark = colorize(colorRed, "✗")
				failed++
			}
			fmt.Printf("%s %s  %s  %.3fs\n", mark, rec.Path, rec.MIMEType, rec.ExtractionTime)
		}
		if failed > 0 {
			printWarning("%d of %d files failed", failed, len(results))
		} else {
			printSuccess("%d files processed", len(results))
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().Int("concurrency", 0, "maximum files processed at once (default from config)")
	scanCmd.Flags().String("output", "", "write records as JSONL to this file")
	scanCmd.Flags().Bool("json", false, "print records as JSONL to stdout")
}

func writeJSONL(w io.Writer, results []*record.Record) error {
	enc := json.NewEncoder(w)
	for _, rec := range results {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding record for %s: %w", rec.Path, err)
		}
	}
	return nil
}

// --- extractors ---

var extractorsCmd = &cobra.Command{
	Use:   "extractors",
	Short: "List registered extractors",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		regs := extractors.DefaultRegistry(0).All()

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(regs)
		}

		for _, r := range regs {
			extra := ""
			if r.ContentCapable {
				extra = "  [content]"
			}
			if r.Subtype != "" {
				extra += fmt.Sprintf("  subtype=%s", r.Subtype)
			}
			fmt.Printf("%s  %s v%s  priority %.1f%s\n",
				colorize(colorCyan, fmt.Sprintf("%-24s", r.MIMEType)),
				r.Name, r.Version, r.Priority, extra)
		}
		return nil
	},
}

func init() {
	extractorsCmd.Flags().Bool("json", false, "print registrations as JSON")
}

// --- cache ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or purge the extraction cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and size",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Cache.Backend != "sqlite" {
			printWarning("cache backend %q keeps no persistent state", cfg.Cache.Backend)
			return nil
		}

		ctx := cmd.Context()

		// Ask a running server first; fall back to opening the store
		// directly when none is up.
		if client, cerr := newAPIClient(); cerr == nil {
			if resp, derr := client.get(ctx, "/cache/stats"); derr == nil {
				var stats cache.Stats
				if err := decodeJSON(resp, &stats); err != nil {
					return err
				}
				printCacheStats(stats)
				return nil
			}
		}

		store, err := cache.Open(cfg.Cache.Dir)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer store.Close()

		stats, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		printCacheStats(stats)
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all cached extraction results",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete all cached extraction results. Use --confirm to proceed.")
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Cache.Backend != "sqlite" {
			printWarning("cache backend %q keeps no persistent state", cfg.Cache.Backend)
			return nil
		}

		ctx := cmd.Context()

		if client, cerr := newAPIClient(); cerr == nil {
			if resp, derr := client.delete(ctx, "/cache"); derr == nil {
				var result map[string]string
				if err := decodeJSON(resp, &result); err != nil {
					return err
				}
				printSuccess("Cache purged")
				return nil
			}
		}

		printStep("Purging cached extraction results...")
		store, err := cache.Open(cfg.Cache.Dir)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer store.Close()

		if err := store.Purge(ctx); err != nil {
			return err
		}
		printSuccess("Cache purged")
		return nil
	},
}

func printCacheStats(stats cache.Stats) {
	printStatus("Entries", "%d", stats.Entries)
	printStatus("Size", "%s", byteLabel(stats.Bytes))
}

func init() {
	cachePurgeCmd.Flags().Bool("confirm", false, "confirm cache purge")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
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
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token <token>",
	Short: "Store the API auth token in the platform secret store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetAuthToken(args[0]); err != nil {
			return err
		}

		printSuccess("Auth token stored")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetTokenCmd)
}
