package chapters

import (
	"context"
	"net/url"
	"slices"
	"strings"

	"github.com/brogergvhs/branchd/internal/providers"
	"go.uber.org/zap"
)

type walkOptions struct {
	maxDepth  int
	onChapter func(depth int, ch providers.Chapter)
}

type WalkOption func(*walkOptions)

// WithMaxDepth stops the walk after n chapters. Zero means unlimited.
func WithMaxDepth(n int) WalkOption {
	return func(o *walkOptions) { o.maxDepth = n }
}

// OnChapter is called after every fetched chapter; depth 0 is the start page.
func OnChapter(fn func(depth int, ch providers.Chapter)) WalkOption {
	return func(o *walkOptions) { o.onChapter = fn }
}

// Walk follows parent links from startURL until a chapter has no parent or a
// URL repeats, and returns the chain oldest ancestor first. A repeated URL
// ends the walk normally. Fetch errors abort it.
func Walk(ctx context.Context, f providers.Fetcher, startURL string, log *zap.Logger, opts ...WalkOption) (Chain, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var o walkOptions
	for _, opt := range opts {
		opt(&o)
	}

	visited := make(map[string]bool)
	var rev Chain

	for cur := startURL; cur != ""; {
		k := visitKey(cur)
		if visited[k] {
			log.Info("cycle detected, stopping walk", zap.String("url", cur), zap.Int("chapters", len(rev)))
			break
		}
		if o.maxDepth > 0 && len(rev) >= o.maxDepth {
			log.Info("max depth reached, stopping walk", zap.Int("max_depth", o.maxDepth), zap.String("next", cur))
			break
		}
		visited[k] = true

		ch, err := f.Fetch(ctx, cur)
		if err != nil {
			return nil, err
		}

		if o.onChapter != nil {
			o.onChapter(len(rev), ch)
		}
		log.Debug("walked chapter", zap.Int("depth", len(rev)), zap.String("title", ch.Title), zap.String("url", cur))

		rev = append(rev, ch)
		cur = ch.ParentURL
	}

	slices.Reverse(rev)
	return rev, nil
}

// visitKey ignores fragments and trailing slashes so "/c/1#top" and "/c/1/"
// count as the same chapter.
func visitKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/")
}
