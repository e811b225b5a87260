package chapters

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/brogergvhs/branchd/internal/providers"
	"github.com/gosimple/slug"
)

// Chain is an ancestor chain, oldest chapter first. No URL appears twice.
type Chain []providers.Chapter

// Target is the chapter the walk started from.
func (c Chain) Target() providers.Chapter {
	if len(c) == 0 {
		return providers.Chapter{}
	}
	return c[len(c)-1]
}

func (c Chain) URLs() []string {
	out := make([]string, len(c))
	for i, ch := range c {
		out[i] = ch.URL
	}
	return out
}

const maxNameRunes = 80

var reUnderscore = regexp.MustCompile(`_+`)

// Sanitize turns a chapter title into a file system safe name. Non-latin
// titles are transliterated; a title with nothing usable becomes "untitled".
func Sanitize(s string) string {
	name := strings.ReplaceAll(slug.Make(s), "-", "_")
	if name == "" {
		name = filterRunes(strings.ToLower(s))
	}

	name = reUnderscore.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if r := []rune(name); len(r) > maxNameRunes {
		name = strings.TrimRight(string(r[:maxNameRunes]), "_")
	}
	if name == "" {
		return "untitled"
	}
	return name
}

func filterRunes(s string) string {
	clean := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			clean = append(clean, r)
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			clean = append(clean, '_')
		}
	}
	return string(clean)
}
