package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/steno/internal/archive"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatAuto = "auto"
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Project    ProjectConfig     `yaml:"project"`
	References ReferencesConfig  `yaml:"references"`
	Fetch      FetchConfig       `yaml:"fetch"`
	Extract    ExtractConfig     `yaml:"extract"`
	Watch      WatchConfig       `yaml:"watch"`
	Catalog    CatalogConfig     `yaml:"catalog"`
	HTTP       HTTPConfig        `yaml:"http"`
	Auth       AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Project, &c.References, &c.Fetch, &c.Extract, &c.Watch, &c.Catalog, &c.HTTP, &c.Auth,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatAuto
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatAuto, LogFormatJSON, LogFormatText)),
	)
}

// ProjectConfig locates the paper. An empty Paper means the only *_latex
// directory under Root.
type ProjectConfig struct {
	Root     string `yaml:"root"`
	Paper    string `yaml:"paper"`
	LatexDir string `yaml:"latex_dir"`
}

// Validate validates the project configuration.
func (c *ProjectConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Paper, validation.By(func(v interface{}) error {
			if p, _ := v.(string); p != "" && !archive.ValidPaper(p) {
				return errors.New("must be a plain paper name")
			}
			return nil
		})),
	)
}

// ManuscriptPath returns the Markdown manuscript of the configured paper.
func (c *ProjectConfig) ManuscriptPath() string {
	return filepath.Join(c.Root, c.Paper+".md")
}

// ReferencesConfig holds the reference archive location.
type ReferencesConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the references configuration.
func (c *ReferencesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// Path returns the archive directory, resolved against root when relative.
func (c *ReferencesConfig) Path(root string) string {
	if filepath.IsAbs(c.Dir) {
		return c.Dir
	}
	return filepath.Join(root, c.Dir)
}

// FetchConfig configures the content fetcher. HostGuard extends the
// loopback/metadata guard, always on for serve and mcp, to the CLI.
type FetchConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
	HostGuard bool          `yaml:"host_guard"`
}

// Validate validates the fetch configuration.
func (c *FetchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxBytes, validation.Min(int64(0))),
	)
}

// ExtractConfig names the external extraction tools.
type ExtractConfig struct {
	Pandoc    string `yaml:"pandoc"`
	Mutool    string `yaml:"mutool"`
	Pdftotext string `yaml:"pdftotext"`
}

// Validate validates the extract configuration.
func (c *ExtractConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Pandoc, validation.Required),
		validation.Field(&c.Mutool, validation.Required),
		validation.Field(&c.Pdftotext, validation.Required),
	)
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Interval     time.Duration `yaml:"interval"`
	BuildCommand []string      `yaml:"build_command"`
	PublishPDF   string        `yaml:"publish_pdf"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Interval, validation.Required, validation.Min(10*time.Millisecond)),
	)
}

// CatalogConfig holds SQLite catalog configuration. A relative Path is
// resolved against the project root.
type CatalogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return errors.New("auth: mode is \"token\" but token is empty")
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatAuto,
		},
		Project: ProjectConfig{
			Root: ".",
		},
		References: ReferencesConfig{
			Dir: "References",
		},
		Fetch: FetchConfig{
			UserAgent: "steno/1.0 (+reference archiver)",
		},
		Extract: ExtractConfig{
			Pandoc:    "pandoc",
			Mutool:    "mutool",
			Pdftotext: "pdftotext",
		},
		Watch: WatchConfig{
			Interval: 500 * time.Millisecond,
		},
		Catalog: CatalogConfig{
			Enabled: true,
			Path:    "References/.catalog.db",
		},
		HTTP: HTTPConfig{
			Port: 8080,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
