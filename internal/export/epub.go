package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/branchd/internal/util"
	"github.com/go-shiori/go-epub"
	"go.uber.org/zap"
)

func (w *Writer) writeEPUB(chain []RenderedChapter) error {
	book, err := epub.NewEpub(chain[0].Title)
	if err != nil {
		return fmt.Errorf("epub: %w", err)
	}

	fm := newFrontMatter(chain)
	if len(fm.Authors) > 0 {
		book.SetAuthor(strings.Join(fm.Authors, ", "))
	}
	book.SetLang("en")
	book.SetDescription(fmt.Sprintf("%d chapters from %s", len(chain), chain[len(chain)-1].URL))

	added := map[string]string{}
	for i, ch := range chain {
		body, err := w.epubSection(book, ch, added)
		if err != nil {
			return fmt.Errorf("epub chapter %d: %w", i+1, err)
		}

		title := fmt.Sprintf("Chapter %d: %s", i+1, ch.Title)
		if _, err := book.AddSection(body, title, fmt.Sprintf("chapter%03d.xhtml", i), ""); err != nil {
			return fmt.Errorf("epub chapter %d: %w", i+1, err)
		}
	}

	path := filepath.Join(w.opts.Dir, w.baseName()+".epub")
	if err := os.MkdirAll(w.opts.Dir, 0o755); err != nil {
		return err
	}
	tmp := path + util.PartSuffix
	if err := book.Write(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("epub: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("epub: %w", err)
	}

	w.files = append(w.files, path)
	return nil
}

// epubSection converts one chapter to XHTML and moves its local and inline
// images into the book. Remote images are dropped since readers cannot load
// them offline.
func (w *Writer) epubSection(book *epub.Epub, ch RenderedChapter, added map[string]string) (string, error) {
	var md strings.Builder
	md.WriteString("# " + ch.Title + "\n\n")
	if ch.Author != "" {
		md.WriteString("*by " + ch.Author + "*\n\n")
	}
	md.WriteString(ch.Markdown)

	raw, err := markdownToHTML(xhtmlEngine, md.String())
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return "", err
	}

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("src", "")
		source := ""
		switch {
		case strings.HasPrefix(src, "data:"):
			source = src
		case src != "" && !strings.Contains(src, "://"):
			source = filepath.Join(w.opts.Dir, filepath.FromSlash(src))
		}
		if source == "" {
			w.log.Debug("dropping remote image from epub", zap.String("src", src))
			img.Remove()
			return
		}

		internal, ok := added[source]
		if !ok {
			p, err := book.AddImage(source, "")
			if err != nil {
				w.log.Warn("epub image skipped", zap.String("src", truncate(src, 80)), zap.Error(err))
				img.Remove()
				return
			}
			internal = p
			added[source] = internal
		}
		img.SetAttr("src", internal)
	})

	return doc.Find("body").Html()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
