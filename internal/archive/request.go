package archive

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/steno/internal/texconv"
)

var (
	httpSchemeRe = regexp.MustCompile(`^(?i)https?://`)
	citeKeyRe    = regexp.MustCompile(texconv.CiteKeyPattern)
	paperRe      = regexp.MustCompile(`^[\p{L}\p{N}_][\p{L}\p{N}_.-]*$`)
)

// Request describes one archive run. Only URL is required.
type Request struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Slug      string `json:"slug,omitempty"`
	BibKey    string `json:"bibkey,omitempty"`
	UpdateBib bool   `json:"update_bib,omitempty"`
	Paper     string `json:"paper,omitempty"`
	LatexDir  string `json:"latex_dir,omitempty"`
}

// Validate checks the request fields.
func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL,
			validation.Required,
			is.URL,
			validation.Match(httpSchemeRe).Error("must be an http or https URL")),
		validation.Field(&r.BibKey, validation.Match(citeKeyRe).Error("must be a citation key")),
		validation.Field(&r.Slug, validation.By(validSlug)),
		validation.Field(&r.Paper, validation.Match(paperRe).Error("must be a plain paper name")),
	)
}

// ValidPaper reports whether paper is a plain name that stays inside the
// project root once "_latex" or ".md" is appended.
func ValidPaper(paper string) bool {
	return paperRe.MatchString(paper)
}

func validSlug(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if Slugify(s) != s {
		return errors.New("must be a slug (letters, digits, _ . and single -)")
	}
	if ReservedSlug(s) {
		return errors.New("is reserved for the archive index")
	}
	return nil
}
