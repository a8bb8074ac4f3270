package texconv

import (
	"strings"
	"testing"
)

const sampleManuscript = `# A Study of Things & Stuff

*Author*: Jane Doe

- preamble list item that must not leak

## Abstract

We study **things** at 95% confidence [@doe2024].

Second line with ` + "`code_span`" + `.

## 1. Introduction

Intro paragraph with a [link](https://example.org).

## 2. Methods

1. collect
2. analyse

### Details

- note

## References

- [@doe2024] Doe, J. Things.
## 9. Appendix after references
`

func TestConvert_Fragments(t *testing.T) {
	f := Convert(sampleManuscript)

	if f.Title != "A Study of Things & Stuff" {
		t.Errorf("title = %q", f.Title)
	}
	if f.Author != "Jane Doe" {
		t.Errorf("author = %q", f.Author)
	}
	wantAbstract := `We study things at 95\% confidence \cite{doe2024}.` + "\n" +
		`Second line with \texttt{code\_span}.`
	if f.Abstract != wantAbstract {
		t.Errorf("abstract = %q, want %q", f.Abstract, wantAbstract)
	}

	wantBody := strings.Join([]string{
		`\section{Introduction}`,
		``,
		`Intro paragraph with a \href{https://example.org}{link}.`,
		``,
		`\section{Methods}`,
		``,
		`\begin{enumerate}`,
		`\item collect`,
		`\item analyse`,
		`\end{enumerate}`,
		``,
		`\subsection{Details}`,
		``,
		`\begin{itemize}`,
		`\item note`,
		`\end{itemize}`,
	}, "\n")
	if f.Body != wantBody {
		t.Errorf("body =\n%s\nwant\n%s", f.Body, wantBody)
	}
}

func TestConvert_ScopeBoundary(t *testing.T) {
	f := Convert(sampleManuscript)
	for _, leaked := range []string{"preamble", "Appendix", "Doe, J.", "Abstract"} {
		if strings.Contains(f.Body, leaked) {
			t.Errorf("body contains %q from outside the body scope", leaked)
		}
	}
}

func TestConvert_Idempotent(t *testing.T) {
	a := Convert(sampleManuscript)
	b := Convert(sampleManuscript)
	if a != b {
		t.Error("two conversions of the same manuscript differ")
	}
	if a.Meta() != b.Meta() {
		t.Error("meta fragments differ")
	}
}

func TestConvert_Placeholders(t *testing.T) {
	f := Convert("just some text\n")
	if f.Title != TitlePlaceholder || f.Author != AuthorPlaceholder {
		t.Errorf("title/author = %q/%q", f.Title, f.Author)
	}
	if f.Abstract != AbstractPlaceholder {
		t.Errorf("abstract = %q", f.Abstract)
	}
	if f.Body != BodyPlaceholder {
		t.Errorf("body = %q", f.Body)
	}
}

func TestConvert_CRLF(t *testing.T) {
	crlf := strings.ReplaceAll(sampleManuscript, "\n", "\r\n")
	if Convert(crlf) != Convert(sampleManuscript) {
		t.Error("CRLF manuscript converts differently")
	}
}

func TestFragments_Meta(t *testing.T) {
	f := Fragments{Title: "Q&A_1", Author: "J. Doe"}
	want := "\\title{Q\\&A\\_1}\n\\author{J. Doe}\n\\date{\\today}\n"
	if got := f.Meta(); got != want {
		t.Errorf("Meta() = %q, want %q", got, want)
	}
}

func TestTitle_FirstHeadingInWindow(t *testing.T) {
	lines := []string{"# First", "# Second"}
	if got := Title(lines); got != "First" {
		t.Errorf("Title = %q, want First", got)
	}

	late := make([]string, headerWindow)
	late = append(late, "# Too Late")
	if got := Title(late); got != "" {
		t.Errorf("Title outside window = %q, want empty", got)
	}
}

func TestAuthor_Forms(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"*Author*: Jane Doe", "Jane Doe"},
		{"**Author:** Jane Doe", "Jane Doe"},
		{"Author: *Jane*", "Jane"},
		{"Authored without colon", ""},
	}
	for _, tt := range tests {
		if got := Author([]string{tt.line}); got != tt.want {
			t.Errorf("Author(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}
