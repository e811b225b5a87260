package localize

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode"
)

// baseName derives a file name from the last path segment of u. It returns
// "" when the URL has no usable segment.
func baseName(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}

	seg := path.Base(parsed.Path)
	if seg == "." || seg == "/" {
		return ""
	}

	clean := make([]rune, 0, len(seg))
	for _, r := range seg {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			clean = append(clean, r)
		case r == '.' || r == '-' || r == '_':
			clean = append(clean, r)
		default:
			clean = append(clean, '_')
		}
	}

	name := string(clean)
	ext := path.Ext(name)
	stem := strings.Trim(strings.TrimSuffix(name, ext), "._-")
	if !strings.ContainsFunc(stem, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
		return ""
	}
	if len(stem) > 120 {
		stem = stem[:120]
	}

	return stem + ext
}

func fallbackName(chapterIdx, n int) string {
	return fmt.Sprintf("chapter%d_image%d", chapterIdx, n)
}

// withExt replaces the extension of name with ext (no dot).
func withExt(name, ext string) string {
	if ext == "" {
		return name
	}
	return strings.TrimSuffix(name, path.Ext(name)) + "." + ext
}
