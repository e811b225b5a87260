package site

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/branchd/internal/providers"
)

type imageCollector struct {
	placeholders []string
	items        []string
	seen         map[string]bool
}

func newImageCollector(placeholders []string) *imageCollector {
	return &imageCollector{
		placeholders: placeholders,
		items:        make([]string, 0, 8),
		seen:         make(map[string]bool),
	}
}

func (c *imageCollector) add(u string) {
	lu := strings.ToLower(u)
	if u == "" || strings.HasPrefix(lu, "data:") || strings.HasPrefix(lu, "javascript:") {
		return
	}
	if providers.IsPlaceholder(u, c.placeholders) {
		return
	}
	if c.seen[u] {
		return
	}
	c.seen[u] = true
	c.items = append(c.items, u)
}

// ScanIMGTags collects src (or data-src for lazy images) of every <img> under
// root. The picked URL is written back as an absolute src so the serialized
// body refers to the same strings the collector returns. Images that only
// point at placeholders are dropped from the body.
func (c *imageCollector) ScanIMGTags(root *goquery.Selection, chapterURL string) int {
	before := len(c.items)

	root.Find("img").Each(func(_ int, img *goquery.Selection) {
		var (
			picked      string
			placeholder bool
		)
		for _, k := range []string{"src", "data-src"} {
			v, ok := img.Attr(k)
			v = strings.TrimSpace(v)
			if !ok || v == "" || strings.HasPrefix(strings.ToLower(v), "data:") {
				continue
			}

			abs := resolve(chapterURL, v)
			if providers.IsPlaceholder(abs, c.placeholders) {
				img.RemoveAttr(k)
				placeholder = true
				continue
			}
			img.SetAttr(k, abs)
			if picked == "" {
				picked = abs
			}
		}

		switch {
		case picked != "":
			img.SetAttr("src", picked)
			c.add(picked)
		case placeholder:
			img.Remove()
		}
	})

	return len(c.items) - before
}

func (c *imageCollector) Finalize() []string {
	if len(c.items) == 0 {
		return nil
	}
	out := make([]string, len(c.items))
	copy(out, c.items)
	return out
}

func resolve(chapterURL, raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u == nil {
		return raw
	}

	if u.IsAbs() {
		return u.String()
	}

	base, err := url.Parse(chapterURL)
	if err != nil || base == nil {
		return raw
	}

	return base.ResolveReference(u).String()
}
