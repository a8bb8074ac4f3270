package texconv

import "strings"

// Fragments is the converted manuscript. Each field is overwritten as a
// whole on every sync.
type Fragments struct {
	Title    string
	Author   string
	Abstract string
	Body     string
}

// Meta renders the metadata fragment.
func (f Fragments) Meta() string {
	return `\title{` + Escape(f.Title) + "}\n" +
		`\author{` + Escape(f.Author) + "}\n" +
		`\date{\today}` + "\n"
}

// Convert splits a Markdown manuscript and converts each part to LaTeX.
// The output depends only on the input, so repeated runs are byte-identical.
func Convert(markdown string) Fragments {
	lines := SplitLines(markdown)

	f := Fragments{
		Title:    Title(lines),
		Author:   Author(lines),
		Abstract: convertAbstract(AbstractLines(lines)),
		Body:     ConvertBody(BodyLines(lines)),
	}
	if f.Title == "" {
		f.Title = TitlePlaceholder
	}
	if f.Author == "" {
		f.Author = AuthorPlaceholder
	}
	if f.Abstract == "" {
		f.Abstract = AbstractPlaceholder
	}
	if f.Body == "" {
		f.Body = BodyPlaceholder
	}
	return f
}

// ConvertBody runs the block machine over body lines.
func ConvertBody(lines []string) string {
	m := newBlockMachine()
	for _, line := range lines {
		m.Feed(line)
	}
	return strings.TrimSpace(strings.Join(m.Finish(), "\n"))
}

// SplitLines normalises line endings and splits text into lines.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func convertAbstract(lines []string) string {
	var out []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, Inline(line))
	}
	return strings.Join(out, "\n")
}
