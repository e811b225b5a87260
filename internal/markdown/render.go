// Package markdown turns chapter body HTML into Markdown text.
package markdown

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	reBlankRuns  = regexp.MustCompile(`\n{3,}`)
	reImageThenS = regexp.MustCompile(`(!\[[^\]\n]*\]\([^)\s]*\))[ \t]*([A-Z])`)
)

// keepInline follows images inside emphasis so postProcess does not split
// the paragraph between the markers. It is removed before returning.
const keepInline = "\uE000"

// Render converts bodyHTML to Markdown. Images, bold, italics and paragraph
// breaks are kept, links are reduced to their text. It never fails: broken
// markup degrades to whatever the HTML parser recovers.
func Render(bodyHTML string) string {
	if strings.TrimSpace(bodyHTML) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML))
	if err != nil {
		return ""
	}

	root := doc.Find("body")
	root.Find("script, style, noscript, template").Remove()

	replaceImages(root)
	replaceEmphasis(root, "b, strong", "**")
	replaceEmphasis(root, "i, em", "*")
	replaceLinks(root)
	replaceBreaks(root)

	var b strings.Builder
	if root.Find("p").Length() == 0 {
		writeBlock(&b, root.Text())
	} else {
		writeBlocks(&b, root)
	}

	return postProcess(b.String())
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func replaceImages(root *goquery.Selection) {
	root.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			src = strings.TrimSpace(img.AttrOr("data-src", ""))
		}
		if src == "" {
			img.Remove()
			return
		}

		alt := collapse(img.AttrOr("alt", ""))
		alt = strings.NewReplacer("[", "", "]", "").Replace(alt)
		md := "![" + alt + "](" + src + ")"
		if img.Closest("b, strong, i, em").Length() > 0 {
			md += keepInline
		}
		img.ReplaceWithNodes(textNode(" " + md + " "))
	})
}

// replaceEmphasis flattens each match to its plain text wrapped in marker.
// Whitespace at the edges stays outside the markers.
func replaceEmphasis(root *goquery.Selection, selector, marker string) {
	root.Find(selector).Each(func(_ int, s *goquery.Selection) {
		raw := s.Text()
		inner := collapse(raw)
		if inner == "" {
			s.ReplaceWithNodes(textNode(raw))
			return
		}

		var out strings.Builder
		if strings.IndexFunc(raw, unicode.IsSpace) == 0 {
			out.WriteByte(' ')
		}
		out.WriteString(marker + inner + marker)
		if r := []rune(raw); unicode.IsSpace(r[len(r)-1]) {
			out.WriteByte(' ')
		}
		s.ReplaceWithNodes(textNode(out.String()))
	})
}

func replaceLinks(root *goquery.Selection) {
	root.Find("a").Each(func(_ int, a *goquery.Selection) {
		a.ReplaceWithNodes(textNode(a.Text()))
	})
}

func replaceBreaks(root *goquery.Selection) {
	root.Find("br").Each(func(_ int, br *goquery.Selection) {
		br.ReplaceWithNodes(textNode(" "))
	})
}

// writeBlocks emits each <p> as a paragraph. Siblings that hold text but no
// <p>, such as an image between paragraphs, become paragraphs in place.
func writeBlocks(b *strings.Builder, parent *goquery.Selection) {
	parent.Contents().Each(func(_ int, c *goquery.Selection) {
		switch {
		case goquery.NodeName(c) == "p":
			writeBlock(b, c.Text())
		case c.Find("p").Length() > 0:
			writeBlocks(b, c)
		default:
			writeBlock(b, c.Text())
		}
	})
}

func writeBlock(b *strings.Builder, text string) {
	t := collapse(text)
	if t == "" {
		return
	}
	b.WriteString(t)
	b.WriteString("\n\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func postProcess(s string) string {
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	s = reImageThenS.ReplaceAllString(s, "$1\n\n$2")
	return strings.ReplaceAll(s, keepInline, "")
}
