package texconv

import (
	"regexp"
	"strings"
)

var (
	linkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	citeRe = regexp.MustCompile(`\[@([A-Za-z0-9:_-]+)\]`)
	codeRe = regexp.MustCompile("`([^`]+)`")
)

// CiteKeyPattern is the accepted form of a citation key, shared with the
// reference archiver so that archived keys can be cited as [@key].
const CiteKeyPattern = `^[A-Za-z0-9:_-]+$`

// segment is a piece of a line. Rendered segments hold finished LaTeX and
// are never matched or escaped again.
type segment struct {
	text     string
	rendered bool
}

// inlineRule rewrites one Markdown span into a LaTeX command.
type inlineRule struct {
	re     *regexp.Regexp
	render func(groups []string) string
}

// inlineRules run in this order on the raw text: links, citations, code spans.
var inlineRules = []inlineRule{
	{re: linkRe, render: func(g []string) string { return `\href{` + g[2] + `}{` + Escape(g[1]) + `}` }},
	{re: citeRe, render: func(g []string) string { return `\cite{` + g[1] + `}` }},
	{re: codeRe, render: func(g []string) string { return `\texttt{` + Escape(g[1]) + `}` }},
}

// Inline converts the inline Markdown of a single line to LaTeX.
// Bold markers are dropped; everything not claimed by a rule is escaped.
func Inline(line string) string {
	segs := []segment{{text: line}}
	for _, rule := range inlineRules {
		segs = applyRule(segs, rule)
	}

	var b strings.Builder
	for _, s := range segs {
		if s.rendered {
			b.WriteString(s.text)
			continue
		}
		b.WriteString(Escape(strings.ReplaceAll(s.text, "**", "")))
	}
	return b.String()
}

func applyRule(segs []segment, rule inlineRule) []segment {
	out := make([]segment, 0, len(segs))
	for _, s := range segs {
		if s.rendered {
			out = append(out, s)
			continue
		}
		matches := rule.re.FindAllStringSubmatchIndex(s.text, -1)
		if len(matches) == 0 {
			out = append(out, s)
			continue
		}
		last := 0
		for _, m := range matches {
			if m[0] > last {
				out = append(out, segment{text: s.text[last:m[0]]})
			}
			groups := make([]string, len(m)/2)
			for i := range groups {
				if m[2*i] >= 0 {
					groups[i] = s.text[m[2*i]:m[2*i+1]]
				}
			}
			out = append(out, segment{text: rule.render(groups), rendered: true})
			last = m[1]
		}
		if last < len(s.text) {
			out = append(out, segment{text: s.text[last:]})
		}
	}
	return out
}
