// Package pipeline runs one download: walk the ancestor chain, then for each
// chapter localize images, render Markdown and finally export. Every stage
// takes a value and returns a new one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brogergvhs/branchd/internal/chapters"
	"github.com/brogergvhs/branchd/internal/export"
	"github.com/brogergvhs/branchd/internal/localize"
	"github.com/brogergvhs/branchd/internal/markdown"
	"github.com/brogergvhs/branchd/internal/providers"
	"github.com/brogergvhs/branchd/internal/ui"
)

// Selection narrows the walked chain, see chapters.Filter.
type Selection struct {
	Chapter string
	Range   string
	List    string
}

type Config struct {
	StartURL   string
	MaxDepth   int
	Selection  Selection
	OutputBase string
	Layout     string
	Preview    bool
	// Images configures localization. OutputDir is filled in per run.
	Images localize.Options
	DryRun bool
}

type Deps struct {
	Fetcher providers.Fetcher
	Images  localize.ImageFetcher
	Log     *ui.Logger
	// Progress is optional.
	Progress *ui.MPBProgressManager
	// OnOutputDir is called once the output directory is known, before
	// anything is written to it.
	OnOutputDir func(dir string)
}

type Result struct {
	Chain   chapters.Chain
	Dir     string
	Files   []string
	Stats   *ui.Stats
	Elapsed time.Duration
}

func Run(ctx context.Context, cfg Config, deps Deps) (Result, error) {
	log := deps.Log
	if log == nil {
		log = ui.NewNopLogger()
	}
	start := time.Now()
	res := Result{Stats: &ui.Stats{}}

	chain, err := walk(ctx, cfg, deps, log)
	if err != nil {
		return res, err
	}
	res.Chain = chain
	log.Infof("Chain has %d chapters, oldest first", len(chain))

	selected, err := chapters.Filter(chain, cfg.Selection.Chapter, cfg.Selection.Range, cfg.Selection.List)
	if err != nil {
		return res, fmt.Errorf("select chapters: %w", err)
	}

	res.Dir = export.OutputDir(cfg.OutputBase, chain.Target().Title)
	if cfg.DryRun {
		res.Chain = selected
		res.Elapsed = time.Since(start)
		return res, nil
	}
	if deps.OnOutputDir != nil {
		deps.OnOutputDir(res.Dir)
	}

	imgOpts := cfg.Images
	imgOpts.OutputDir = res.Dir
	loc := localize.New(deps.Images, imgOpts, log.Zap())

	// Image fallback names use the position in the full walk so they do not
	// depend on the selection.
	position := make(map[string]int, len(chain))
	for i, ch := range chain {
		position[ch.URL] = i
	}

	rendered := make([]export.RenderedChapter, 0, len(selected))
	for _, ch := range selected {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rendered = append(rendered, renderChapter(ctx, loc, ch, position[ch.URL], deps, log, res.Stats))
	}

	w := export.NewWriter(export.Options{Dir: res.Dir, Layout: cfg.Layout, Preview: cfg.Preview}, log.Zap())
	files, err := w.Write(rendered)
	res.Files = files
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("export: %w", err)
	}

	return res, nil
}

func walk(ctx context.Context, cfg Config, deps Deps, log *ui.Logger) (chapters.Chain, error) {
	var bar *ui.ProgressHandle
	if deps.Progress != nil {
		bar = deps.Progress.Register("Chain", "chapters")
	}

	log.Infof("Walking parent chain from %s", cfg.StartURL)
	chain, err := chapters.Walk(ctx, deps.Fetcher, cfg.StartURL, log.Zap(),
		chapters.WithMaxDepth(cfg.MaxDepth),
		chapters.OnChapter(func(depth int, ch providers.Chapter) {
			if bar != nil {
				bar.Step()
			}
			log.Debugf("[%d] %s", depth, ch.Title)
		}),
	)

	if bar != nil {
		if err != nil {
			bar.Abort()
		} else {
			bar.MarkDone()
		}
	}
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, errors.New("walk returned no chapters")
	}
	return chain, nil
}

func renderChapter(
	ctx context.Context,
	loc *localize.Localizer,
	ch providers.Chapter,
	idx int,
	deps Deps,
	log *ui.Logger,
	stats *ui.Stats,
) export.RenderedChapter {
	var bar *ui.ProgressHandle
	if deps.Progress != nil && len(ch.ImageURLs) > 0 {
		bar = deps.Progress.Register(fmt.Sprintf("Ch.%03d", idx), "images")
	}

	var progress localize.Progress
	if bar != nil {
		progress = func(done, total int, bytes int64) { bar.Update(done, total, bytes) }
	}

	localized, rep := loc.Localize(ctx, ch, idx, progress)
	if bar != nil {
		bar.MarkDone()
	}
	if rep.Err != nil {
		log.Warnf("%s: %d of %d images failed", ch.Title, rep.Failed, len(ch.ImageURLs))
	}

	stats.TotalChapters.Add(1)
	stats.TotalImages.Add(int64(rep.Saved))
	stats.SkippedImages.Add(int64(rep.Skipped))
	stats.FailedImages.Add(int64(rep.Failed))
	stats.TotalBytes.Add(rep.Bytes)

	return export.RenderedChapter{
		Title:    localized.Title,
		Author:   localized.Author,
		URL:      localized.URL,
		Markdown: markdown.Render(localized.BodyHTML),
	}
}
