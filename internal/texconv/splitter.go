package texconv

import "strings"

// headerWindow is how many leading lines are scanned for title and author.
const headerWindow = 30

// Placeholders used when the manuscript lacks a part.
const (
	TitlePlaceholder    = "[Title]"
	AuthorPlaceholder   = "[Author]"
	AbstractPlaceholder = "[Abstract]"
	BodyPlaceholder     = `\section{Introduction}` + "\n" + "[Intro]"
)

var (
	bodyStartMarkers = []string{"## 1.", "## 1 ", "## Introduction"}
	bodyEndMarker    = "## References"
	abstractMarker   = "## Abstract"
)

// Title returns the first level-1 heading in the header window.
func Title(lines []string) string {
	for _, line := range window(lines) {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// Author returns the value of the first "Author: ..." line in the header
// window, with surrounding emphasis markers removed. Both "*Author*: Jane"
// and "**Author:** Jane" are recognised.
func Author(lines []string) string {
	for _, line := range window(lines) {
		label := strings.ToLower(strings.TrimLeft(strings.TrimSpace(line), "*_"))
		if !strings.HasPrefix(label, "author") {
			continue
		}
		i := strings.Index(line, ":")
		if i < 0 {
			continue
		}
		return strings.TrimSpace(strings.Trim(strings.TrimSpace(line[i+1:]), "*_"))
	}
	return ""
}

// AbstractLines returns the raw lines between the Abstract heading and the
// next level-2 heading.
func AbstractLines(lines []string) []string {
	var out []string
	inAbstract := false
	for _, line := range lines {
		if !inAbstract {
			inAbstract = strings.HasPrefix(line, abstractMarker)
			continue
		}
		if strings.HasPrefix(line, "## ") {
			break
		}
		out = append(out, line)
	}
	return out
}

// BodyLines returns the lines from the first introductory heading up to,
// not including, the References heading.
func BodyLines(lines []string) []string {
	var out []string
	inBody := false
	for _, line := range lines {
		if strings.HasPrefix(line, bodyEndMarker) {
			break
		}
		if !inBody && isBodyStart(line) {
			inBody = true
		}
		if inBody {
			out = append(out, line)
		}
	}
	return out
}

func isBodyStart(line string) bool {
	for _, marker := range bodyStartMarkers {
		if strings.HasPrefix(line, marker) {
			return true
		}
	}
	return false
}

func window(lines []string) []string {
	if len(lines) > headerWindow {
		return lines[:headerWindow]
	}
	return lines
}
