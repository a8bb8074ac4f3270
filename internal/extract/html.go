package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

var (
	titleTagRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	headingRe    = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

// Document is the Markdown rendition of an HTML page.
type Document struct {
	Title    string
	Markdown string
	Strategy string
}

// HTMLStrategy converts an HTML page to Markdown. Title may be empty when
// the strategy cannot recover one.
type HTMLStrategy interface {
	Name() string
	ConvertHTML(ctx context.Context, page string, pageURL string) (Document, error)
}

// HTMLChain accepts the first strategy whose Markdown is non-empty. The
// title is resolved separately: first non-empty strategy title, then the
// page's <title>, then the URL.
type HTMLChain struct {
	strategies []HTMLStrategy
	logger     *slog.Logger
}

// NewHTMLChain creates a chain over strategies, richest first.
func NewHTMLChain(logger *slog.Logger, strategies ...HTMLStrategy) *HTMLChain {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTMLChain{strategies: strategies, logger: logger}
}

// DefaultHTMLStrategies returns pandoc, readability and the raw text
// fallback, in that order.
func DefaultHTMLStrategies(runner CommandRunner, tools Tools) []HTMLStrategy {
	return []HTMLStrategy{
		&PandocStrategy{Runner: runner, Bin: tools.Pandoc},
		ReadabilityStrategy{},
		RawTextStrategy{},
	}
}

// PassthroughStrategy names the result when the untouched HTML is kept.
const PassthroughStrategy = "passthrough"

// Extract converts page. It never fails: when no strategy yields text the
// untouched HTML is returned as the Markdown body.
func (c *HTMLChain) Extract(ctx context.Context, page, pageURL string) Document {
	var title string
	doc := Document{Markdown: page, Strategy: PassthroughStrategy}

	for _, s := range c.strategies {
		if ctx.Err() != nil {
			break
		}
		out, err := s.ConvertHTML(ctx, page, pageURL)
		if err != nil {
			c.logger.Debug("extract: html strategy failed",
				slog.String("strategy", s.Name()),
				slog.String("error", err.Error()))
			continue
		}
		if title == "" {
			title = strings.TrimSpace(out.Title)
		}
		if strings.TrimSpace(out.Markdown) == "" {
			c.logger.Debug("extract: html strategy produced no text", slog.String("strategy", s.Name()))
			continue
		}
		doc = Document{Markdown: out.Markdown, Strategy: s.Name()}
		break
	}

	if title == "" {
		title = TitleTag(page)
	}
	if title == "" {
		title = pageURL
	}
	doc.Title = title
	doc.Markdown = strings.TrimSpace(doc.Markdown) + "\n"
	return doc
}

// TitleTag returns the whitespace-collapsed content of the first <title>
// element, or "".
func TitleTag(page string) string {
	m := titleTagRe.FindStringSubmatch(page)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(m[1], " "))
}

// PandocStrategy converts with pandoc to GitHub-flavoured Markdown and takes
// the title from the first level-1 heading of the output.
type PandocStrategy struct {
	Runner CommandRunner
	Bin    string
}

// Name implements HTMLStrategy.
func (s *PandocStrategy) Name() string { return "pandoc" }

// ConvertHTML implements HTMLStrategy.
func (s *PandocStrategy) ConvertHTML(ctx context.Context, page, _ string) (Document, error) {
	path, cleanup, err := writeTemp("steno-*.html", []byte(page))
	if err != nil {
		return Document{}, err
	}
	defer cleanup()

	stdout, stderr, err := s.Runner.Run(ctx, s.Bin, path, "--from=html", "--to=gfm", "--wrap=none")
	if err != nil {
		return Document{}, fmt.Errorf("pandoc: %s: %w", strings.TrimSpace(stderr), err)
	}
	out := strings.TrimSpace(stdout)
	if out == "" {
		return Document{}, ErrEmptyOutput
	}

	doc := Document{Markdown: out}
	if m := headingRe.FindStringSubmatch(out); m != nil {
		doc.Title = strings.TrimSpace(m[1])
	}
	return doc, nil
}

// ReadabilityStrategy isolates the main article of the page and converts
// it to Markdown. The title comes from the article metadata.
type ReadabilityStrategy struct{}

// Name implements HTMLStrategy.
func (ReadabilityStrategy) Name() string { return "readability" }

// ConvertHTML implements HTMLStrategy.
func (ReadabilityStrategy) ConvertHTML(_ context.Context, page, pageURL string) (Document, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return Document{}, fmt.Errorf("readability: parse url: %w", err)
	}
	article, err := readability.FromReader(strings.NewReader(page), u)
	if err != nil {
		return Document{}, fmt.Errorf("readability: %w", err)
	}

	doc := Document{Title: article.Title}
	if strings.TrimSpace(article.Content) == "" {
		return doc, nil
	}
	converter := md.NewConverter(u.Host, true, nil)
	out, err := converter.ConvertString(article.Content)
	if err != nil {
		return Document{}, fmt.Errorf("readability: to markdown: %w", err)
	}
	doc.Markdown = out
	return doc, nil
}

// RawTextStrategy strips all markup and keeps the visible text, one text
// node per line.
type RawTextStrategy struct{}

// Name implements HTMLStrategy.
func (RawTextStrategy) Name() string { return "raw" }

// ConvertHTML implements HTMLStrategy.
func (RawTextStrategy) ConvertHTML(_ context.Context, page, _ string) (Document, error) {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return Document{}, fmt.Errorf("raw: parse html: %w", err)
	}

	var buf bytes.Buffer
	collectText(root, &buf)
	text := blankRunRe.ReplaceAllString(buf.String(), "\n\n")
	return Document{Title: TitleTag(page), Markdown: strings.TrimSpace(text)}, nil
}

func collectText(n *html.Node, buf *bytes.Buffer) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "title":
			return
		}
	}
	if n.Type == html.TextNode {
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, buf)
	}
}
