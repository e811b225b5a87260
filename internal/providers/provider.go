package providers

import "context"

// Chapter is one fetched page. Stages after the fetcher return modified
// copies instead of mutating it.
type Chapter struct {
	URL       string
	Title     string
	BodyHTML  string
	ImageURLs []string
	// ParentURL is empty for the root of a chain.
	ParentURL string
	Author    string
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (Chapter, error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (Chapter, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) (Chapter, error) {
	return f(ctx, url)
}
