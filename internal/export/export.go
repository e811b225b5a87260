// Package export writes rendered chapters to disk in one of the supported
// layouts.
package export

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/brogergvhs/branchd/internal/chapters"
	"github.com/brogergvhs/branchd/internal/config"
	"github.com/brogergvhs/branchd/internal/util"
	"go.uber.org/zap"
)

var ErrEmptyChain = errors.New("nothing to export")

// RenderedChapter is a chapter after image localization and Markdown
// rendering.
type RenderedChapter struct {
	Title    string
	Author   string
	URL      string
	Markdown string
}

type Options struct {
	// Dir is the per-run output directory, see OutputDir.
	Dir    string
	Layout string
	// Preview writes an HTML sibling for every Markdown file.
	Preview bool
}

// OutputDir names the run directory after the chapter the walk started from.
func OutputDir(base, targetTitle string) string {
	return filepath.Join(base, chapters.Sanitize(targetTitle))
}

type Writer struct {
	opts  Options
	log   *zap.Logger
	files []string
}

func NewWriter(opts Options, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Layout == "" {
		opts.Layout = config.LayoutSeparate
	}
	return &Writer{opts: opts, log: log.Named("export")}
}

// Write stores chain, oldest chapter first, and returns the paths written.
func (w *Writer) Write(chain []RenderedChapter) ([]string, error) {
	if len(chain) == 0 {
		return nil, ErrEmptyChain
	}
	w.files = w.files[:0]

	var err error
	switch w.opts.Layout {
	case config.LayoutSeparate:
		err = w.writeSeparate(chain)
	case config.LayoutCombined:
		err = w.writeCombined(chain)
	case config.LayoutJSON:
		err = w.writeJSON(chain)
	case config.LayoutEPUB:
		err = w.writeEPUB(chain)
	default:
		err = fmt.Errorf("%w: %q", config.ErrUnknownLayout, w.opts.Layout)
	}
	if err != nil {
		return w.files, err
	}

	w.log.Debug("export finished", zap.String("layout", w.opts.Layout), zap.Int("files", len(w.files)))
	return w.files, nil
}

// baseName is the stem shared by single-file layouts.
func (w *Writer) baseName() string {
	return filepath.Base(w.opts.Dir)
}

func (w *Writer) writeFile(name string, data []byte) error {
	path := filepath.Join(w.opts.Dir, name)
	if err := util.WriteFileAtomic(path, data); err != nil {
		return err
	}
	w.files = append(w.files, path)
	return nil
}

func (w *Writer) writeMarkdown(name, title, md string) error {
	if err := w.writeFile(name, []byte(md)); err != nil {
		return err
	}
	if !w.opts.Preview {
		return nil
	}

	page, err := previewPage(title, md)
	if err != nil {
		return fmt.Errorf("preview %s: %w", name, err)
	}
	return w.writeFile(name[:len(name)-len(filepath.Ext(name))]+".html", page)
}
