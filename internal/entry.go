// Package internal provides the application wiring and the long-running
// modes (HTTP server, watch loops, MCP server).
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/starford/steno/internal/api"
	"github.com/starford/steno/internal/archive"
	"github.com/starford/steno/internal/catalog"
	"github.com/starford/steno/internal/extract"
	"github.com/starford/steno/internal/fetch"
	"github.com/starford/steno/internal/mcpserver"
	"github.com/starford/steno/internal/refservice"
	"github.com/starford/steno/internal/sse"
	"github.com/starford/steno/internal/storage"
	"github.com/starford/steno/internal/texsync"
	"github.com/starford/steno/internal/watch"
)

// NewLogger builds the process logger on w: text when w is a terminal,
// JSON otherwise, unless cfg.LogFormat forces one.
func NewLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	format := cfg.LogFormat
	if format == "" || format == LogFormatAuto {
		format = LogFormatJSON
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			format = LogFormatText
		}
	}
	if format == LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// App holds the wired components shared by every command.
type App struct {
	Config  *Config
	Logger  *slog.Logger
	Store   *storage.FS
	Catalog *catalog.DB
	Service *refservice.Service

	version string
}

// New wires storage, catalog, fetcher, extractor chains, archiver, syncer
// and the reference service from the options.
func New(opts ...Option) (*App, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(cfg.App, os.Stderr)
	}
	slog.SetDefault(logger)

	root, err := filepath.Abs(cfg.Project.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	store, err := storage.EnsureFS(cfg.References.Path(root))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, Store: store, version: app.version}

	var db catalog.Catalog
	var archiveOpts []archive.Option
	archiveOpts = append(archiveOpts, archive.WithLogger(logger))
	if cfg.Catalog.Enabled {
		path := cfg.Catalog.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		a.Catalog, err = catalog.Open(path)
		if err != nil {
			return nil, fmt.Errorf("init catalog: %w", err)
		}
		db = a.Catalog
		archiveOpts = append(archiveOpts, archive.WithRecorder(a.Catalog))
	}

	fetcher := app.fetcher
	if fetcher == nil {
		fopts := []fetch.Option{
			fetch.WithUserAgent(cfg.Fetch.UserAgent),
			fetch.WithTimeout(cfg.Fetch.Timeout),
			fetch.WithMaxBytes(cfg.Fetch.MaxBytes),
		}
		if cfg.Fetch.HostGuard || app.hostGuard {
			fopts = append(fopts, fetch.WithHostGuard())
		}
		fetcher = fetch.NewHTTPFetcher(fopts...)
	}

	runner := app.runner
	if runner == nil {
		runner = extract.ExecRunner{}
	}
	tools := extract.Tools{Pandoc: cfg.Extract.Pandoc, Mutool: cfg.Extract.Mutool, Pdftotext: cfg.Extract.Pdftotext}
	pdfChain := extract.NewPDFChain(logger, extract.DefaultPDFStrategies(runner, tools)...)
	htmlChain := extract.NewHTMLChain(logger, extract.DefaultHTMLStrategies(runner, tools)...)

	arch := archive.New(fetcher, pdfChain, htmlChain, store, root, archiveOpts...)
	project := refservice.Project{Root: root, Paper: cfg.Project.Paper, LatexDir: cfg.Project.LatexDir}
	a.Service = refservice.NewService(store, db, arch, texsync.New(logger), project, logger)

	return a, nil
}

// Close releases the catalog.
func (a *App) Close() error {
	if a.Catalog != nil {
		return a.Catalog.Close()
	}
	return nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := New(opts...)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Serve(ctx)
}

// Serve runs the REST API until ctx is cancelled or SIGINT/SIGTERM arrives.
func (a *App) Serve(ctx context.Context) error {
	cfg, logger := a.Config, a.Logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.HTTP.Address()),
		slog.String("project_root", cfg.Project.Root),
		slog.String("references", a.Store.Root()),
		slog.Bool("catalog", a.Catalog != nil),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if a.Catalog != nil {
		if stats, err := catalog.Sync(a.Catalog, a.Store, logger); err != nil {
			logger.Warn("initial catalog sync failed", slog.String("error", err.Error()))
		} else {
			logger.Info("catalog synced",
				slog.Int("indexed", stats.Indexed),
				slog.Int("unchanged", stats.Unchanged),
				slog.Int("removed", stats.Removed))
		}
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	a.Service.SetNotifier(broker)

	apiRouter := api.NewRouter(a.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := os.Stat(a.Store.Root()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// Watch keeps the fragments of paper in sync with its manuscript and
// publishes each new build PDF next to the manuscript. When a build command
// is configured it runs in the same cancellation scope.
func (a *App) Watch(ctx context.Context, paper string) error {
	layout, err := a.Service.Layout(paper)
	if err != nil {
		return err
	}
	cfg, logger := a.Config, a.Logger

	publish := layout.PublishedPDF
	if cfg.Watch.PublishPDF != "" {
		publish = cfg.Watch.PublishPDF
	}

	syncPoller := &watch.Poller{
		Name:     "manuscript",
		Path:     layout.Manuscript,
		Interval: cfg.Watch.Interval,
		Logger:   logger,
		OnChange: func(ctx context.Context) error {
			_, err := a.Service.SyncManuscript(ctx, layout.Name)
			return err
		},
	}
	pdfPoller := &watch.Poller{
		Name:     "build",
		Path:     layout.BuildPDF,
		Interval: cfg.Watch.Interval,
		Logger:   logger,
		OnChange: watch.PublishCopier(layout.BuildPDF, publish, logger),
	}

	tasks := []watch.Task{syncPoller.Run, pdfPoller.Run}
	if len(cfg.Watch.BuildCommand) > 0 {
		tasks = append(tasks, watch.CommandTask(cfg.Watch.BuildCommand, layout.LatexDir, os.Stderr, os.Stderr, logger))
	}

	logger.Info("watch: starting",
		slog.String("manuscript", layout.Manuscript),
		slog.String("fragments", layout.SourceDir),
		slog.String("build_pdf", layout.BuildPDF),
		slog.String("publish", publish))
	return watch.Run(ctx, logger, tasks...)
}

// MCP serves the reference tools over stdio.
func (a *App) MCP() error {
	version := a.version
	if version == "" {
		version = "dev"
	}
	return mcpserver.New(a.Service, version).ServeStdio()
}
