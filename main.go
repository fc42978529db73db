package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"news-cms/pkg/config"
	"news-cms/pkg/handlers"
	"news-cms/pkg/logging"
	"news-cms/pkg/services"
	"news-cms/pkg/store"
)

const usage = `usage: news-cms <command> [flags]

commands:
  export   write CMS news articles to Markdown files
  import   create CMS news pages from Markdown files
  serve    serve the pages API over the local record store
  fields   print the detail fields of the first news article`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	// Initialize config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	provider, err := logging.NewProvider(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	logger := provider.GetLogger("news-cms")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "export":
		err = runExport(ctx, cfg, provider, args)
	case "import":
		err = runImport(ctx, cfg, provider, args)
	case "serve":
		err = runServe(ctx, cfg, provider, args)
	case "fields":
		err = runFields(ctx, cfg, provider, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(cmd+" failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func runExport(ctx context.Context, cfg *config.Config, provider *logging.Provider, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	apiURL := fs.String("api", cfg.APIURL, "Root URL of the CMS API (e.g. http://host/api/v2/)")
	outDir := fs.String("out", cfg.OutputDir, "Directory the Markdown files are written to")
	format := fs.String("format", cfg.ExportFormat, "Frontmatter format: yaml or toml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.APIURL, cfg.OutputDir, cfg.ExportFormat = *apiURL, *outDir, *format
	if err := cfg.Validate(); err != nil {
		return err
	}

	fetcher, err := services.NewFetcher(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.PagesURL(), provider.GetLogger("fetcher"))
	if err != nil {
		return err
	}
	exporter := services.NewExporter(
		fetcher,
		services.NewDateNormalizer(cfg.Location, provider.GetLogger("dates")),
		services.ExporterConfig{
			OutputDir: cfg.OutputDir,
			Format:    cfg.ExportFormat,
			IndexType: cfg.IndexType,
			PageType:  cfg.PageType,
		},
		provider.GetLogger("exporter"),
	)
	_, err = exporter.Run(ctx)
	return err
}

func runImport(ctx context.Context, cfg *config.Config, provider *logging.Provider, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	contentDir := fs.String("dir", cfg.ContentDir, "Directory holding the Markdown files")
	dbPath := fs.String("db", cfg.DatabasePath, "Path to the sqlite record store")
	dryRun := fs.Bool("dry-run", false, "Preview changes without persisting pages")
	createIndex := fs.String("create-index", "", "Create a news index with this title when none exists")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer records.Close()

	if *createIndex != "" {
		if _, err := records.EnsureIndex(ctx, *createIndex); err != nil {
			return err
		}
	}

	importer := newImporter(cfg, provider, records, *contentDir, *dryRun)
	result, err := importer.Run(ctx)
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d of %d files failed", len(result.Failed),
			len(result.Created)+len(result.Skipped)+len(result.Failed))
	}
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, provider *logging.Provider, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.ListenAddr, "Address to listen on")
	dbPath := fs.String("db", cfg.DatabasePath, "Path to the sqlite record store")
	createIndex := fs.String("create-index", "", "Create a news index with this title when none exists")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := provider.GetLogger("server")

	records, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer records.Close()

	if *createIndex != "" {
		if _, err := records.EnsureIndex(ctx, *createIndex); err != nil {
			return err
		}
	}

	auth := handlers.NewAuth(cfg.OAuth(), cfg.SessionSecret)
	if auth != nil && cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required when GitHub login is configured")
	}
	if auth == nil {
		logger.Warn("GitHub login not configured, admin routes disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	api := handlers.NewAPI(records, newImporter(cfg, provider, records, cfg.ContentDir, false), provider.GetLogger("api"))
	srv := &http.Server{
		Addr:    *addr,
		Handler: handlers.NewRouter(api, auth),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", *addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		grace := cfg.HTTPTimeout
		if grace <= 0 {
			grace = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func runFields(ctx context.Context, cfg *config.Config, provider *logging.Provider, args []string) error {
	fs := flag.NewFlagSet("fields", flag.ExitOnError)
	apiURL := fs.String("api", cfg.APIURL, "Root URL of the CMS API")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.APIURL = *apiURL

	fetcher, err := services.NewFetcher(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.PagesURL(), provider.GetLogger("fetcher"))
	if err != nil {
		return err
	}
	indexID, err := fetcher.FindIndex(ctx, cfg.IndexType)
	if err != nil {
		return err
	}
	pages, err := fetcher.FetchChildren(ctx, cfg.PageType, indexID, []string{"date", "title"})
	if err != nil {
		return err
	}
	fmt.Printf("Found %d total news pages\n", len(pages))
	if len(pages) == 0 {
		return nil
	}

	detail, err := fetcher.FetchDetail(ctx, pages[0].ID)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(detail))
	for key := range detail {
		if key != "body" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	fmt.Println("Available fields:")
	for _, key := range keys {
		value, _ := json.Marshal(detail[key])
		fmt.Printf("  %s: %s\n", key, value)
	}
	return nil
}

func newImporter(cfg *config.Config, provider *logging.Provider, records store.RecordStore, dir string, dryRun bool) *services.Importer {
	return services.NewImporter(
		records,
		services.NewDateNormalizer(cfg.Location, provider.GetLogger("dates")),
		services.NewMarkdownRenderer(),
		services.ImporterConfig{ContentDir: dir, DryRun: dryRun},
		provider.GetLogger("importer"),
	)
}
