package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/steno/internal"
	"github.com/starford/steno/internal/archive"
	"github.com/starford/steno/internal/texsync"
	pkgconfig "github.com/starford/steno/pkg/config"
)

var version = "dev"

var stdout io.Writer = os.Stdout

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if root := cmd.String("root"); root != "" {
		cfg.Project.Root = root
	}
	return cfg, nil
}

// withApp loads the configuration, wires the application with opts and
// hands it to fn.
func withApp(fn func(ctx context.Context, cmd *cli.Command, app *internal.App) error, opts ...internal.Option) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts = append([]internal.Option{internal.WithConfig(cfg), internal.WithVersion(version)}, opts...)
		app, err := internal.New(opts...)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, cmd, app)
	}
}

func runSync(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	var (
		res *texsync.Result
		err error
	)
	switch cmd.Args().Len() {
	case 0:
		res, err = app.Service.SyncManuscript(ctx, cmd.String("paper"))
	case 2:
		res, err = texsync.New(app.Logger).Sync(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
	default:
		return errors.New("sync takes either no arguments or <manuscript.md> <src_dir>")
	}
	if err != nil {
		return err
	}
	return printJSON(stdout, res)
}

func runWatch(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	return app.Watch(ctx, cmd.String("paper"))
}

func runServe(ctx context.Context, _ *cli.Command, app *internal.App) error {
	return app.Serve(ctx)
}

func runMCP(_ context.Context, _ *cli.Command, app *internal.App) error {
	return app.MCP()
}

func runRefAdd(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	if cmd.Args().Len() != 1 {
		return errors.New("ref add takes exactly one URL")
	}
	res, err := app.Service.AddReference(ctx, archive.Request{
		URL:       cmd.Args().First(),
		Title:     cmd.String("title"),
		Slug:      cmd.String("slug"),
		BibKey:    cmd.String("bibkey"),
		UpdateBib: cmd.Bool("update-bib"),
		Paper:     cmd.String("paper"),
		LatexDir:  cmd.String("latex-dir"),
	})
	if err != nil {
		return err
	}
	return printJSON(stdout, res)
}

func runRefList(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	refs, total, err := app.Service.ListReferences(ctx, int(cmd.Int("limit")), int(cmd.Int("offset")), cmd.String("format"))
	if err != nil {
		return err
	}
	printReferences(stdout, refs, total)
	return nil
}

func runRefSearch(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	if cmd.Args().Len() == 0 {
		return errors.New("ref search needs a query")
	}
	results, err := app.Service.Search(ctx, cmd.Args().First(), int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	printSearch(stdout, results)
	return nil
}

func runRefShow(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	if cmd.Args().Len() != 1 {
		return errors.New("ref show takes exactly one slug")
	}
	ref, err := app.Service.GetReference(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	_, err = io.WriteString(stdout, ref.Content)
	return err
}

func runRefReindex(ctx context.Context, _ *cli.Command, app *internal.App) error {
	stats, err := app.Service.Reindex(ctx)
	if err != nil {
		return err
	}
	printStats(stdout, stats)
	return nil
}

func paperFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "paper",
		Usage: "Paper name (<paper>.md and <paper>_latex/); empty uses the configured one",
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "steno",
		Usage:   "Keep a Markdown manuscript in sync with its LaTeX sources and archive cited references",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (missing file = defaults)",
				DefaultText: "steno.yaml",
				Value:       "steno.yaml",
				Sources:     cli.EnvVars("STENO_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Usage:   "Project root, overrides project.root",
				Sources: cli.EnvVars("STENO_ROOT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "sync",
				Usage:     "Regenerate meta.tex, abstract.tex and content.tex from the manuscript",
				ArgsUsage: "[manuscript.md src_dir]",
				Flags:     []cli.Flag{paperFlag()},
				Action:    withApp(runSync),
			},
			{
				Name:   "watch",
				Usage:  "Sync on every manuscript change and publish each new build PDF",
				Flags:  []cli.Flag{paperFlag()},
				Action: withApp(runWatch),
			},
			{
				Name:  "ref",
				Usage: "Manage the local reference archive",
				Commands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Fetch a source and archive it as Markdown",
						ArgsUsage: "URL",
						Flags: []cli.Flag{
							paperFlag(),
							&cli.StringFlag{Name: "latex-dir", Usage: "Typesetting directory holding src/references.bib"},
							&cli.StringFlag{Name: "title", Usage: "Title override"},
							&cli.StringFlag{Name: "slug", Usage: "File name override"},
							&cli.StringFlag{Name: "bibkey", Usage: "Citation key"},
							&cli.BoolFlag{Name: "update-bib", Usage: "Append a bibliography entry when the key is missing"},
						},
						Action: withApp(runRefAdd),
					},
					{
						Name:  "list",
						Usage: "List archived references, newest first",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "format", Usage: "Filter by format (pdf, html)"},
							&cli.IntFlag{Name: "limit", Value: 50, Usage: "Page size"},
							&cli.IntFlag{Name: "offset", Usage: "Page offset"},
						},
						Action: withApp(runRefList),
					},
					{
						Name:      "search",
						Usage:     "Search archived references",
						ArgsUsage: "QUERY",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20, Usage: "Max results"},
						},
						Action: withApp(runRefSearch),
					},
					{
						Name:      "show",
						Usage:     "Print an archived reference",
						ArgsUsage: "SLUG",
						Action:    withApp(runRefShow),
					},
					{
						Name:   "reindex",
						Usage:  "Rebuild the catalog from the archive directory",
						Action: withApp(runRefReindex),
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the REST API",
				Action: withApp(runServe, internal.WithHostGuard()),
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: withApp(runMCP, internal.WithHostGuard()),
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
