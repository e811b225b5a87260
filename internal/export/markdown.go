package export

import (
	"fmt"
	"strings"

	"github.com/brogergvhs/branchd/internal/chapters"
	"gopkg.in/yaml.v3"
)

func (w *Writer) writeSeparate(chain []RenderedChapter) error {
	for i, ch := range chain {
		name := fmt.Sprintf("%03d_%s.md", i, chapters.Sanitize(ch.Title))
		if err := w.writeMarkdown(name, ch.Title, chapterDocument(ch)); err != nil {
			return err
		}
	}
	return nil
}

func chapterDocument(ch RenderedChapter) string {
	var b strings.Builder
	b.WriteString("# " + ch.Title + "\n\n")
	if ch.Author != "" {
		b.WriteString("*by " + ch.Author + "*\n\n")
	}
	b.WriteString("Source: " + ch.URL + "\n\n")
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimRight(ch.Markdown, "\n"))
	b.WriteString("\n")
	return b.String()
}

type frontMatter struct {
	Title    string   `yaml:"title"`
	Authors  []string `yaml:"authors,omitempty"`
	Chapters int      `yaml:"chapters"`
	Sources  []string `yaml:"sources"`
}

func newFrontMatter(chain []RenderedChapter) frontMatter {
	fm := frontMatter{Title: chain[0].Title, Chapters: len(chain)}
	seen := map[string]bool{}
	for _, ch := range chain {
		fm.Sources = append(fm.Sources, ch.URL)
		if ch.Author != "" && !seen[ch.Author] {
			seen[ch.Author] = true
			fm.Authors = append(fm.Authors, ch.Author)
		}
	}
	return fm
}

func (w *Writer) writeCombined(chain []RenderedChapter) error {
	fm, err := yaml.Marshal(newFrontMatter(chain))
	if err != nil {
		return fmt.Errorf("front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")

	for i, ch := range chain {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "## Chapter %d: %s\n\n", i+1, ch.Title)
		if ch.Author != "" {
			b.WriteString("*by " + ch.Author + "*\n\n")
		}
		b.WriteString(strings.TrimRight(ch.Markdown, "\n"))
		b.WriteString("\n")
	}

	return w.writeMarkdown(w.baseName()+".md", chain[0].Title, b.String())
}
