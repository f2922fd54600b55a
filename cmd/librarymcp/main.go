// Command librarymcp runs the library MCP server.
//
// It communicates over stdio using JSON-RPC 2.0 (MCP protocol) and
// persists catalog, patron, and circulation state to a local SQLite
// database.
//
// Optional environment variables:
//
//	LIBRARYMCP_CONFIG                      - path to a TOML config file
//	LIBRARYMCP_DATABASE_PATH                - SQLite database path
//	LIBRARYMCP_LATE_FEE_PER_DAY              - decimal string, e.g. "0.25"
//	LIBRARYMCP_LOAN_DEFAULT_DAYS              - default loan length in days
//	LIBRARYMCP_LOAN_MAX_DAYS                  - max loan length in days
//	LIBRARYMCP_SAMPLING_TIMEOUT_SECONDS        - sampling request timeout
//	LIBRARYMCP_PAGINATION_DEFAULT_PAGE_SIZE    - default resource page size
//	LIBRARYMCP_PAGINATION_MAX_PAGE_SIZE        - max resource page size
//	LIBRARYMCP_LOG_LEVEL                      - debug, info, warn, error (default: info)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/librarymcp/librarymcp/internal/catalog"
	"github.com/librarymcp/librarymcp/internal/config"
	"github.com/librarymcp/librarymcp/internal/maintenance"
	"github.com/librarymcp/librarymcp/internal/mcp"
	"github.com/librarymcp/librarymcp/internal/prompts"
	"github.com/librarymcp/librarymcp/internal/scheduler"
	"github.com/librarymcp/librarymcp/internal/store"
	"github.com/librarymcp/librarymcp/internal/tools/circulation"
	"github.com/librarymcp/librarymcp/internal/tools/ingest"
	"github.com/librarymcp/librarymcp/internal/tools/insights"
	"github.com/librarymcp/librarymcp/internal/tools/search"
	"github.com/librarymcp/librarymcp/internal/tools/upkeep"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "info" {
		runInfo(os.Args[2:])
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "librarymcp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("LIBRARYMCP_CONFIG")
	if len(os.Args) > 1 && strings.HasPrefix(os.Args[1], "--config=") {
		configPath = strings.TrimPrefix(os.Args[1], "--config=")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Set up structured logging to stderr (stdout is for MCP protocol)
	logLevel := parseLogLevel(cfg.Log.Level)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	version := cfg.Server.Version
	if Version != "dev" {
		version = Version
	}

	logger.Info("starting librarymcp",
		"version", version,
		"database_path", cfg.Database.Path,
	)

	// Set up signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	registry := mcp.NewRegistry()

	server := mcp.NewServer(registry, mcp.ServerInfo{
		Name:    cfg.Server.Name,
		Version: version,
	}, logger)

	pager := catalog.Pager{
		DefaultPageSize: cfg.Pagination.DefaultPageSize,
		MaxPageSize:     cfg.Pagination.MaxPageSize,
	}

	// Register resources
	registry.RegisterResource(catalog.NewBooksResource(db, pager))
	registry.RegisterResource(catalog.NewBookDetailResource(db))
	registry.RegisterResource(catalog.NewGenreBooksResource(db, pager))
	registry.RegisterResource(catalog.NewAuthorBooksResource(db, pager))
	registry.RegisterResource(catalog.NewPatronDetailResource(db))
	registry.RegisterResource(catalog.NewStatsResource(db))
	registry.RegisterResource(catalog.NewRecommendationsResource(db))

	// Register tools
	registry.Register(search.NewSearchCatalog(db, cfg.Pagination))
	registry.Register(circulation.NewCheckoutBook(db, cfg.Loan))
	registry.Register(circulation.NewReturnBook(db, cfg.LateFee, server))
	registry.Register(circulation.NewReserveBook(db))
	registry.Register(ingest.NewBulkImportBooks(db))
	registry.Register(upkeep.NewCatalogMaintenance(db))
	registry.Register(insights.NewGenerateBookInsights(db, server, cfg.Sampling))

	// Register prompts
	registry.RegisterPrompt(prompts.NewBookRecommendationsPrompt(db))
	registry.RegisterPrompt(prompts.NewReadingPlanPrompt())
	registry.RegisterPrompt(prompts.NewReviewGeneratorPrompt(db))

	if cfg.Observability.Enabled && cfg.Observability.SweepIntervalSeconds > 0 {
		sched := scheduler.NewScheduler(logger)
		interval := time.Duration(cfg.Observability.SweepIntervalSeconds) * time.Second
		sched.AddJob(maintenance.NewSweepJob(db, logger), interval)
		sched.Start(ctx)
		defer sched.Stop()
		logger.Info("background maintenance sweep enabled", "interval", interval)
	}

	return server.Run(ctx)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
