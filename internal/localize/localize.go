// Package localize downloads the images of a chapter and rewrites the body
// to refer to local files or inline data URIs.
package localize

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brogergvhs/branchd/internal/downloader"
	"github.com/brogergvhs/branchd/internal/providers"
	"github.com/brogergvhs/branchd/internal/util"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Mode string

const (
	ModeFile  Mode = "file"
	ModeEmbed Mode = "embed"
)

// ImagesDir is the directory, relative to the output directory, that holds
// downloaded images in file mode.
const ImagesDir = "images"

type Options struct {
	Mode Mode
	// OutputDir receives ImagesDir in file mode.
	OutputDir string
	Convert   bool
	// Format is "jpg" or "png".
	Format       string
	Quality      int
	Placeholders []string
}

type ImageFetcher interface {
	Fetch(ctx context.Context, u, referer string, progress func(done int64)) (downloader.Image, error)
}

// Progress receives done/total images and bytes so far for one chapter.
type Progress func(done, total int, bytes int64)

type Report struct {
	Saved   int
	Skipped int
	Failed  int
	Bytes   int64
	// Files lists the image files written, relative to OutputDir.
	Files []string
	// Err combines every *ImageError of the chapter.
	Err error
}

// Localizer is used for a single run. It remembers which source URL owns each
// file name so chapters with same-named images do not overwrite each other.
type Localizer struct {
	fetcher ImageFetcher
	opts    Options
	log     *zap.Logger
	owners  map[string]string
}

func New(f ImageFetcher, opts Options, log *zap.Logger) *Localizer {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Mode == "" {
		opts.Mode = ModeFile
	}
	if opts.Format == "" {
		opts.Format = "jpg"
	}
	if opts.Quality <= 0 {
		opts.Quality = 85
	}
	return &Localizer{
		fetcher: f,
		opts:    opts,
		log:     log.Named("localize"),
		owners:  make(map[string]string),
	}
}

type result struct {
	ref string
	err error
}

// Localize returns a copy of ch whose body refers to localized images.
// chapterIdx is the chapter's position in the chain and only feeds fallback
// file names.
func (l *Localizer) Localize(ctx context.Context, ch providers.Chapter, chapterIdx int, progress Progress) (providers.Chapter, Report) {
	var rep Report
	out := ch
	out.ImageURLs = append([]string(nil), ch.ImageURLs...)

	total := len(ch.ImageURLs)
	if progress != nil {
		progress(0, total, 0)
	}

	byName := make(map[string]result)
	refs := make(map[string]string)

	for i, u := range ch.ImageURLs {
		if providers.IsPlaceholder(u, l.opts.Placeholders) {
			rep.Skipped++
			l.log.Debug("skipping placeholder image", zap.String("url", u))
			l.report(progress, i+1, total, rep.Bytes)
			continue
		}

		name := baseName(u)
		if name == "" {
			name = fallbackName(chapterIdx, i+1)
		}
		res, seen := byName[name]
		if !seen {
			res = l.localizeOne(ctx, u, ch.URL, name, chapterIdx, i+1, &rep, func(n int64) {
				l.report(progress, i, total, rep.Bytes+n)
			})
			byName[name] = res
		}

		if res.err != nil {
			if !seen {
				rep.Failed++
				rep.Err = multierr.Append(rep.Err, res.err)
				l.log.Warn("image failed", zap.Error(res.err))
			}
		} else {
			refs[u] = res.ref
		}
		l.report(progress, i+1, total, rep.Bytes)
	}

	out.BodyHTML = rewrite(ch.BodyHTML, refs)
	return out, rep
}

func (l *Localizer) report(progress Progress, done, total int, bytes int64) {
	if progress != nil {
		progress(done, total, bytes)
	}
}

// claim reserves the final file name for u. When an earlier chapter already
// wrote file for a different URL, the name gets a chapter prefix instead.
func (l *Localizer) claim(file, u string, chapterIdx, n int) string {
	candidate := file
	for i := 1; ; i++ {
		if owner, ok := l.owners[candidate]; !ok || owner == u {
			l.owners[candidate] = u
			return candidate
		}
		prefix := fallbackName(chapterIdx, n)
		if i > 1 {
			prefix = fmt.Sprintf("%s_%d", prefix, i)
		}
		candidate = prefix + "_" + file
	}
}

func (l *Localizer) localizeOne(ctx context.Context, u, referer, name string, chapterIdx, n int, rep *Report, onBytes func(int64)) result {
	img, err := l.fetcher.Fetch(ctx, u, referer, onBytes)
	if err != nil {
		return result{err: &ImageError{URL: u, Op: "fetch", Err: err}}
	}

	data, mime, ext := img.Data, img.MIME, img.Ext
	if l.opts.Convert && ext != l.opts.Format {
		converted, err := convert(data, l.opts.Format, l.opts.Quality)
		if err != nil {
			l.log.Warn("conversion failed, keeping original",
				zap.String("url", u), zap.String("format", l.opts.Format), zap.Error(err))
		} else {
			data, mime, ext = converted, formatMIME[l.opts.Format], l.opts.Format
		}
	}

	if l.opts.Mode == ModeEmbed {
		rep.Saved++
		rep.Bytes += int64(len(data))
		return result{ref: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)}
	}

	if ext == "" {
		ext = strings.TrimPrefix(path.Ext(name), ".")
	}
	file := l.claim(withExt(name, ext), u, chapterIdx, n)
	rel := ImagesDir + "/" + file
	if err := util.WriteFileAtomic(filepath.Join(l.opts.OutputDir, ImagesDir, file), data); err != nil {
		delete(l.owners, file)
		return result{err: &ImageError{URL: u, Op: "write", Err: err}}
	}

	rep.Saved++
	rep.Bytes += int64(len(data))
	rep.Files = append(rep.Files, rel)
	l.log.Debug("image saved", zap.String("url", u), zap.String("file", rel), zap.Int("bytes", len(data)))

	return result{ref: rel}
}

// rewrite substitutes every literal occurrence of each source URL, in raw
// and attribute-escaped form. Longer URLs go first so a URL that prefixes
// another cannot clobber it.
func rewrite(body string, refs map[string]string) string {
	if len(refs) == 0 {
		return body
	}

	urls := make([]string, 0, len(refs))
	for u := range refs {
		urls = append(urls, u)
	}
	sort.Slice(urls, func(i, j int) bool {
		if len(urls[i]) != len(urls[j]) {
			return len(urls[i]) > len(urls[j])
		}
		return urls[i] < urls[j]
	})

	pairs := make([]string, 0, len(urls)*4)
	for _, u := range urls {
		pairs = append(pairs, u, refs[u])
		if esc := strings.ReplaceAll(u, "&", "&amp;"); esc != u {
			pairs = append(pairs, esc, refs[u])
		}
	}

	return strings.NewReplacer(pairs...).Replace(body)
}
