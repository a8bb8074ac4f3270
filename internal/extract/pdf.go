package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFStrategy extracts plain text from a PDF file.
type PDFStrategy interface {
	Name() string
	ExtractPDF(ctx context.Context, path string) (string, error)
}

// PDFChain tries its strategies in order and returns the result of the
// first one that does not fail, even when that result is empty. A later
// strategy is never consulted just because an earlier one found no text.
type PDFChain struct {
	strategies []PDFStrategy
	logger     *slog.Logger
}

// NewPDFChain creates a chain over strategies, richest first.
func NewPDFChain(logger *slog.Logger, strategies ...PDFStrategy) *PDFChain {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFChain{strategies: strategies, logger: logger}
}

// DefaultPDFStrategies returns MuPDF, the two pure-Go readers and
// pdftotext, in that order.
func DefaultPDFStrategies(runner CommandRunner, tools Tools) []PDFStrategy {
	return []PDFStrategy{
		&MutoolStrategy{Runner: runner, Bin: tools.Mutool},
		RowLayoutStrategy{},
		PageTextStrategy{},
		&PdftotextStrategy{Runner: runner, Bin: tools.Pdftotext},
	}
}

// Extract returns the text and the name of the strategy that produced it.
// When every strategy fails both are empty.
func (c *PDFChain) Extract(ctx context.Context, path string) (text, strategy string) {
	for _, s := range c.strategies {
		out, err := c.attempt(ctx, s, path)
		if err != nil {
			c.logger.Debug("extract: pdf strategy failed",
				slog.String("strategy", s.Name()),
				slog.String("error", err.Error()))
			continue
		}
		return out, s.Name()
	}
	return "", ""
}

// attempt runs one strategy and turns a panic inside a PDF parser into an
// ordinary error.
func (c *PDFChain) attempt(ctx context.Context, s PDFStrategy, path string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract: %s panicked: %v", s.Name(), r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.ExtractPDF(ctx, path)
}

// joinPages trims every page, drops the empty ones and joins the rest with a
// blank line. The result always ends in a newline.
func joinPages(pages []string) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if t := strings.TrimSpace(p); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// MutoolStrategy runs `mutool draw -F txt`, which separates pages with a
// form feed.
type MutoolStrategy struct {
	Runner CommandRunner
	Bin    string
}

// Name implements PDFStrategy.
func (s *MutoolStrategy) Name() string { return "mutool" }

// ExtractPDF implements PDFStrategy.
func (s *MutoolStrategy) ExtractPDF(ctx context.Context, path string) (string, error) {
	stdout, stderr, err := s.Runner.Run(ctx, s.Bin, "draw", "-q", "-F", "txt", "-o", "-", path)
	if err != nil {
		return "", fmt.Errorf("mutool: %s: %w", strings.TrimSpace(stderr), err)
	}
	return joinPages(strings.Split(stdout, "\f")), nil
}

// PdftotextStrategy runs poppler's pdftotext and returns its output as is.
type PdftotextStrategy struct {
	Runner CommandRunner
	Bin    string
}

// Name implements PDFStrategy.
func (s *PdftotextStrategy) Name() string { return "pdftotext" }

// ExtractPDF implements PDFStrategy.
func (s *PdftotextStrategy) ExtractPDF(ctx context.Context, path string) (string, error) {
	stdout, stderr, err := s.Runner.Run(ctx, s.Bin, "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %s: %w", strings.TrimSpace(stderr), err)
	}
	return stdout, nil
}

// RowLayoutStrategy rebuilds each page line by line from text positions.
type RowLayoutStrategy struct{}

// Name implements PDFStrategy.
func (RowLayoutStrategy) Name() string { return "pdf-rows" }

// ExtractPDF implements PDFStrategy.
func (RowLayoutStrategy) ExtractPDF(_ context.Context, path string) (string, error) {
	return readPages(path, func(p pdf.Page) (string, error) {
		rows, err := p.GetTextByRow()
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, row := range rows {
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			b.WriteByte('\n')
		}
		return b.String(), nil
	})
}

// PageTextStrategy takes the plain text stream of each page.
type PageTextStrategy struct{}

// Name implements PDFStrategy.
func (PageTextStrategy) Name() string { return "pdf-text" }

// ExtractPDF implements PDFStrategy.
func (PageTextStrategy) ExtractPDF(_ context.Context, path string) (string, error) {
	return readPages(path, func(p pdf.Page) (string, error) {
		return p.GetPlainText(nil)
	})
}

func readPages(path string, page func(pdf.Page) (string, error)) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := page(p)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return joinPages(pages), nil
}
