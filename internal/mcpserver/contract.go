package mcpserver

// ReferenceFormatContract describes the layout of archived reference files
// so LLM consumers can cite and quote them correctly.
const ReferenceFormatContract = `# steno Reference Format

Every archived source lives in References/ as <slug>.md, next to <slug>.pdf
for PDF sources. References/index.md lists them in archive order.

## Structure

` + "```" + `markdown
---
source_url: https://example.org/paper.pdf   # URL that was fetched
retrieved_utc: 2026-03-14T09:26:53Z         # UTC, second precision
format: pdf                                  # pdf | html
bibkey: smith2026                            # OPTIONAL citation key
---

# Title of the source

Extracted text of the source, as Markdown.
` + "```" + `

## Rules

1. **Slugs** contain letters, digits, ` + "`_`" + `, ` + "`.`" + ` and single hyphens. They never
   start or end with a hyphen.
2. **Titles** come from the request, then the page, then the URL file name.
3. **Bodies** are extracted text, not the original page. A PDF whose text could
   not be extracted holds a short notice instead.
4. **Bib keys** match ` + "`[A-Za-z0-9:_-]+`" + ` and are cited in the manuscript as
   ` + "`[@key]`" + `, which becomes ` + "`\\cite{key}`" + ` in LaTeX.
5. **Archiving the same slug again** replaces the file and appends a new
   index line; index lines are never rewritten.
6. **Encoding** is UTF-8.
`
