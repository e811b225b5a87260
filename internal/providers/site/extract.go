package site

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/branchd/internal/providers"
	"golang.org/x/text/unicode/norm"
)

const untitled = "Untitled"

func (s *Scraper) extract(doc *goquery.Document, pageURL string) providers.Chapter {
	ch := providers.Chapter{
		URL:   pageURL,
		Title: s.extractTitle(doc),
	}

	container := doc.Find(s.site.ContentSelector).First()
	if container.Length() == 0 {
		s.log.Sugar().Warnf("No content container %q on %s", s.site.ContentSelector, pageURL)
	} else {
		col := newImageCollector(s.site.Placeholders)
		col.ScanIMGTags(container, pageURL)
		ch.ImageURLs = col.Finalize()
		ch.Author = s.extractAuthor(container, pageURL)

		body, err := container.Html()
		if err != nil {
			s.log.Sugar().Warnf("Serializing content of %s: %v", pageURL, err)
		}
		ch.BodyHTML = strings.TrimSpace(body)
	}

	ch.ParentURL = s.findParent(doc, pageURL)

	return ch
}

func (s *Scraper) extractTitle(doc *goquery.Document) string {
	for _, sel := range []string{s.site.TitleSelector, s.site.TitleFallbackSelector} {
		if sel == "" {
			continue
		}
		if t := cleanText(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}

	t := cleanText(doc.Find("title").First().Text())
	if s.site.TitleSuffix != "" {
		t = strings.TrimSpace(strings.TrimSuffix(t, strings.TrimSpace(s.site.TitleSuffix)))
	}
	if t == "" {
		return untitled
	}
	return t
}

func (s *Scraper) extractAuthor(container *goquery.Selection, pageURL string) string {
	if s.profile == nil {
		return ""
	}

	var author string
	container.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !s.profile.MatchString(resolve(pageURL, strings.TrimSpace(href))) {
			return true
		}
		if t := cleanText(a.Text()); t != "" {
			author = t
			return false
		}
		return true
	})

	return author
}

// findParent returns the first "Previous Chapter" link that does not point
// back at the page itself.
func (s *Scraper) findParent(doc *goquery.Document, pageURL string) string {
	self := trimURL(pageURL)
	id := chapterID(pageURL)

	var parent string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if cleanText(a.Text()) != s.site.ParentLinkText {
			return true
		}

		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return true
		}

		target := resolve(pageURL, href)
		t := trimURL(target)
		if t == self || (id != "" && strings.HasSuffix(t, "/"+id)) {
			return true
		}

		parent = target
		return false
	})

	return parent
}

// chapterID is the last non-empty path segment of a chapter URL.
func chapterID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// trimURL drops the fragment and a trailing slash for comparisons.
func trimURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/")
}

func cleanText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
