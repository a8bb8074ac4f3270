package internal

import (
	"log/slog"

	"github.com/starford/steno/internal/extract"
	"github.com/starford/steno/internal/fetch"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	logger  *slog.Logger
	version string
	fetcher fetch.Fetcher
	runner  extract.CommandRunner

	hostGuard bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f fetch.Fetcher) Option {
	return func(a *application) {
		a.fetcher = f
	}
}

// WithCommandRunner replaces the runner used for external extraction tools.
func WithCommandRunner(r extract.CommandRunner) Option {
	return func(a *application) {
		a.runner = r
	}
}

// WithHostGuard makes the fetcher refuse loopback and cloud-metadata hosts
// whatever fetch.host_guard says. The serve and mcp front ends set it.
func WithHostGuard() Option {
	return func(a *application) {
		a.hostGuard = true
	}
}
