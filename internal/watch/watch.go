// Package watch runs the polling loops of watch mode: one keeps the LaTeX
// fragments in sync with the manuscript, the other publishes each freshly
// built PDF next to the manuscript.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/steno/internal/storage"
)

// DefaultInterval is the polling period used when a Poller has none.
const DefaultInterval = 500 * time.Millisecond

// Task is one long-running unit of watch mode. It returns when ctx is
// cancelled or when it cannot continue.
type Task func(ctx context.Context) error

// Poller calls OnChange whenever the modification time of Path differs from
// the last observed one. The first successful observation counts as a
// change. A missing file is not a change.
type Poller struct {
	Name     string
	Path     string
	Interval time.Duration
	OnChange func(ctx context.Context) error
	Logger   *slog.Logger
}

// Run polls until ctx is cancelled. OnChange errors are logged and the loop
// keeps going; the observed mtime is recorded either way.
func (p *Poller) Run(ctx context.Context) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	logger.Info("watch: poller started",
		slog.String("poller", p.Name),
		slog.String("path", p.Path),
		slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last time.Time
	for {
		if info, err := os.Stat(p.Path); err == nil && !info.ModTime().Equal(last) {
			last = info.ModTime()
			if err := p.OnChange(ctx); err != nil {
				logger.Warn("watch: change handler failed",
					slog.String("poller", p.Name),
					slog.String("error", err.Error()))
			} else {
				logger.Info("watch: change handled", slog.String("poller", p.Name))
			}
		}

		select {
		case <-ctx.Done():
			logger.Info("watch: poller stopped", slog.String("poller", p.Name))
			return nil
		case <-ticker.C:
		}
	}
}

// Run executes all tasks in one cancellation scope. The first task to
// return, for any reason, stops the others, and so does SIGINT or SIGTERM.
// A task returning nil after the scope was cancelled is not an error.
func Run(ctx context.Context, logger *slog.Logger, tasks ...Task) error {
	if logger == nil {
		logger = slog.Default()
	}
	if len(tasks) == 0 {
		return errors.New("watch: no tasks")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			defer cancel()
			return task(gCtx)
		})
	}

	err := g.Wait()
	logger.Info("watch: stopped")
	return err
}

// PublishCopier returns a change handler that copies the built PDF at src to
// dst. The destination is replaced atomically so readers never see a
// partially copied file.
func PublishCopier(src, dst string, logger *slog.Logger) func(ctx context.Context) error {
	if logger == nil {
		logger = slog.Default()
	}
	return func(context.Context) error {
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("watch: read build output: %w", err)
		}
		store, err := storage.EnsureFS(filepath.Dir(dst))
		if err != nil {
			return fmt.Errorf("watch: publish dir: %w", err)
		}
		if err := store.Write(filepath.Base(dst), data); err != nil {
			return fmt.Errorf("watch: publish: %w", err)
		}
		logger.Info("watch: published", slog.String("pdf", dst))
		return nil
	}
}
