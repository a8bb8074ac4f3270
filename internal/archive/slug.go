package archive

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxSlugLen caps the slug length in runes.
const MaxSlugLen = 160

// DefaultSlug is used when a title leaves nothing usable.
const DefaultSlug = "reference"

var (
	spaceRunRe  = regexp.MustCompile(`[\p{Z}\s]+`)
	unsafeRe    = regexp.MustCompile(`[^\p{L}\p{N}_\p{Z}\s.-]`)
	hyphenRunRe = regexp.MustCompile(`-{2,}`)
)

// Slugify derives a file-name-safe identifier from title. The result holds
// only letters, digits, underscores, periods and single hyphens, never
// starts or ends with a hyphen and is never empty.
func Slugify(title string) string {
	s := norm.NFC.String(title)
	s = spaceRunRe.ReplaceAllString(strings.TrimSpace(s), " ")
	s = strings.ReplaceAll(s, "/", " ")
	s = unsafeRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "-")
	s = hyphenRunRe.ReplaceAllString(s, "-")
	if s == "" {
		return DefaultSlug
	}
	if r := []rune(s); len(r) > MaxSlugLen {
		s = string(r[:MaxSlugLen])
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return DefaultSlug
	}
	return s
}

// indexStem is the slug that would name the archive index itself.
var indexStem = strings.TrimSuffix(IndexFile, ".md")

// ReservedSlug reports whether slug collides with the archive index, ignoring
// case so that case-insensitive filesystems are covered too.
func ReservedSlug(slug string) bool {
	return strings.EqualFold(slug, indexStem)
}
