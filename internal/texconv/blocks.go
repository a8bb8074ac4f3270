package texconv

import (
	"regexp"
	"strings"
)

var (
	orderedItemRe   = regexp.MustCompile(`^\d+\.\s+`)
	sectionNumberRe = regexp.MustCompile(`^\d+\.\s*`)
)

// Line kinds recognised in the manuscript body.
type lineKind int

const (
	kindText lineKind = iota
	kindBlank
	kindFence
	kindHeading1
	kindHeading2
	kindHeading3
	kindOrdered
	kindUnordered
	numLineKinds
)

// Machine modes. Inside a fence only the closing fence is interpreted.
type mode int

const (
	modeText mode = iota
	modeCode
)

// listKind names the LaTeX list environment being accumulated.
type listKind string

const (
	listNone      listKind = ""
	listOrdered   listKind = "enumerate"
	listUnordered listKind = "itemize"
)

// rawFenceLanguage marks a fence whose body is copied through as LaTeX.
const rawFenceLanguage = "latex"

// classify returns the kind of a body line in text mode and its payload:
// the heading text, list item text or fence language.
func classify(line string) (lineKind, string) {
	switch {
	case strings.HasPrefix(line, "```"):
		return kindFence, strings.TrimSpace(line[3:])
	case strings.TrimSpace(line) == "":
		return kindBlank, ""
	case strings.HasPrefix(line, "### "):
		return kindHeading3, strings.TrimSpace(line[4:])
	case strings.HasPrefix(line, "## "):
		return kindHeading2, sectionNumberRe.ReplaceAllString(strings.TrimSpace(line[3:]), "")
	case strings.HasPrefix(line, "# "):
		return kindHeading1, strings.TrimSpace(line[2:])
	case orderedItemRe.MatchString(line):
		return kindOrdered, strings.TrimSpace(orderedItemRe.ReplaceAllString(line, ""))
	case strings.HasPrefix(line, "- "):
		return kindUnordered, strings.TrimSpace(line[2:])
	default:
		return kindText, line
	}
}

// transition handles one classified line in text mode.
type transition func(m *blockMachine, payload string)

// textTransitions is indexed by lineKind.
var textTransitions = [numLineKinds]transition{
	kindText:      (*blockMachine).paragraph,
	kindBlank:     (*blockMachine).blank,
	kindFence:     (*blockMachine).openFence,
	kindHeading1:  (*blockMachine).skip,
	kindHeading2:  (*blockMachine).section,
	kindHeading3:  (*blockMachine).subsection,
	kindOrdered:   (*blockMachine).ordered,
	kindUnordered: (*blockMachine).unordered,
}

// blockMachine converts body lines to LaTeX lines. Pending list items are
// always of one kind; any other construct flushes them first.
type blockMachine struct {
	mode      mode
	fenceLang string
	list      listKind
	items     []string
	out       []string
}

func newBlockMachine() *blockMachine {
	return &blockMachine{}
}

// Feed processes one body line.
func (m *blockMachine) Feed(line string) {
	if m.mode == modeCode {
		if strings.HasPrefix(line, "```") {
			m.closeFence()
			return
		}
		m.emit(line)
		return
	}
	kind, payload := classify(line)
	textTransitions[kind](m, payload)
}

// Finish flushes pending state and returns the converted lines.
func (m *blockMachine) Finish() []string {
	if m.mode == modeCode {
		m.closeFence()
	}
	m.flush()
	return m.out
}

func (m *blockMachine) emit(lines ...string) {
	m.out = append(m.out, lines...)
}

func (m *blockMachine) flush() {
	if m.list == listNone {
		return
	}
	m.emit(`\begin{` + string(m.list) + `}`)
	for _, item := range m.items {
		m.emit(`\item ` + item)
	}
	m.emit(`\end{` + string(m.list) + `}`)
	m.list = listNone
	m.items = nil
}

func (m *blockMachine) accumulate(kind listKind, item string) {
	if m.list != listNone && m.list != kind {
		m.flush()
	}
	m.list = kind
	m.items = append(m.items, Inline(item))
}

func (m *blockMachine) paragraph(line string) {
	m.flush()
	m.emit(Inline(line))
}

func (m *blockMachine) blank(string) {
	m.flush()
	m.emit("")
}

func (m *blockMachine) skip(string) {}

func (m *blockMachine) section(title string) {
	m.flush()
	m.emit(`\section{` + Inline(title) + `}`)
}

func (m *blockMachine) subsection(title string) {
	m.flush()
	m.emit(`\subsection{` + Inline(title) + `}`)
}

func (m *blockMachine) ordered(item string) {
	m.accumulate(listOrdered, item)
}

func (m *blockMachine) unordered(item string) {
	m.accumulate(listUnordered, item)
}

func (m *blockMachine) openFence(lang string) {
	m.flush()
	m.mode = modeCode
	m.fenceLang = lang
	if lang == rawFenceLanguage {
		m.emit("% BEGIN raw LaTeX")
		return
	}
	m.emit(`\begin{verbatim}`)
}

func (m *blockMachine) closeFence() {
	if m.fenceLang == rawFenceLanguage {
		m.emit("% END raw LaTeX")
	} else {
		m.emit(`\end{verbatim}`)
	}
	m.mode = modeText
	m.fenceLang = ""
}
