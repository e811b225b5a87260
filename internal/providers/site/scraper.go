package site

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/branchd/internal/config"
	"github.com/brogergvhs/branchd/internal/providers"
	"github.com/brogergvhs/branchd/internal/util"
	"go.uber.org/zap"
)

const maxPageSize = 16 << 20

// challengeMarkers identify the interstitial page itself. Ordinary pages
// behind the proxy also load /cdn-cgi/challenge-platform scripts, so that
// path is not a marker.
var challengeMarkers = []string{
	"<title>just a moment",
	"cf_chl_opt",
}

type Scraper struct {
	client  *http.Client
	site    config.Site
	pacer   util.Pacer
	profile *regexp.Regexp
	log     *zap.Logger
}

func NewScraper(c *http.Client, site config.Site, pacer util.Pacer, log *zap.Logger) (*Scraper, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var profile *regexp.Regexp
	if site.ProfilePattern != "" {
		re, err := regexp.Compile(site.ProfilePattern)
		if err != nil {
			return nil, &config.ConfigError{Field: "site.profile_pattern", Err: err}
		}
		profile = re
	}

	return &Scraper{
		client:  c,
		site:    site,
		pacer:   pacer,
		profile: profile,
		log:     log.Named("site"),
	}, nil
}

var _ providers.Fetcher = (*Scraper)(nil)

func (s *Scraper) Fetch(ctx context.Context, pageURL string) (providers.Chapter, error) {
	doc, err := s.fetchDOM(ctx, pageURL)
	if err != nil {
		return providers.Chapter{}, err
	}

	ch := s.extract(doc, pageURL)

	s.log.Debug("chapter fetched",
		zap.String("url", pageURL),
		zap.String("title", ch.Title),
		zap.Int("images", len(ch.ImageURLs)),
		zap.String("parent", ch.ParentURL),
	)

	return ch, nil
}

func (s *Scraper) fetchDOM(ctx context.Context, target string) (*goquery.Document, error) {
	if err := s.pacer.Wait(ctx); err != nil {
		return nil, &FetchError{URL: target, Reason: "cancelled", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{URL: target, Reason: "invalid request", Err: err}
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: target, Reason: "network error", Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.log.Debug("closing response body", zap.String("url", target), zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, &FetchError{URL: target, Status: resp.StatusCode, Reason: "read body", Err: err}
	}

	if isChallenge(resp, body) {
		return nil, &FetchError{URL: target, Status: resp.StatusCode, Reason: "bot challenge", Err: ErrBotChallenge}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: target, Status: resp.StatusCode, Reason: statusReason(resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: target, Status: resp.StatusCode, Reason: "parse html", Err: fmt.Errorf("goquery: %w", err)}
	}

	return doc, nil
}

func isChallenge(resp *http.Response, body []byte) bool {
	if strings.EqualFold(resp.Header.Get("cf-mitigated"), "challenge") {
		return true
	}

	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
	default:
		return false
	}

	head := body
	if len(head) > 64<<10 {
		head = head[:64<<10]
	}
	lower := strings.ToLower(string(head))
	for _, m := range challengeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
