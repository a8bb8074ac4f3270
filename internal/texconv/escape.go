// Package texconv converts a Markdown manuscript into the LaTeX fragments
// consumed by the paper build: metadata, abstract and body.
package texconv

import "strings"

// escaper maps the characters that break LaTeX outside verbatim contexts.
// Backslashes and braces are left alone so authors can write raw commands.
var escaper = strings.NewReplacer(
	"&", `\&`,
	"%", `\%`,
	"#", `\#`,
	"_", `\_`,
	"~", `\textasciitilde{}`,
	"^", `\textasciicircum{}`,
)

// Escape returns text safe to place in LaTeX markup.
func Escape(text string) string {
	return escaper.Replace(text)
}
