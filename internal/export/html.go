package export

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	previewEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	xhtmlEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithXHTML()),
	)
)

func markdownToHTML(engine goldmark.Markdown, md string) ([]byte, error) {
	var buf bytes.Buffer
	if err := engine.Convert([]byte(md), &buf); err != nil {
		return nil, fmt.Errorf("markdown parse: %w", err)
	}
	return buf.Bytes(), nil
}

const previewTemplate = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>body{max-width:42em;margin:2em auto;padding:0 1em;font-family:Georgia,serif;line-height:1.6}img{max-width:100%%}</style>
</head>
<body>
%s</body>
</html>
`

// previewPage renders md as a standalone HTML page. Markdown front matter is
// not stripped; it shows up as a rule and a paragraph.
func previewPage(title, md string) ([]byte, error) {
	body, err := markdownToHTML(previewEngine, md)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, previewTemplate, html.EscapeString(title), body), nil
}
