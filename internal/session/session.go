// Package session owns the cookie jar and HTTP client shared by every
// request of a run, and persists cookies between runs.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/brogergvhs/branchd/internal/util"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

type Options struct {
	Store *Store
	// BaseURL scopes inline cookies and the cookies saved on Close.
	BaseURL string
	// Cookie is a raw "a=1; b=2" header applied on top of stored cookies.
	Cookie string
	TTL    time.Duration
	// Persist writes the jar back to Store on Close.
	Persist bool

	Timeout          time.Duration
	UserAgent        string
	Transport        http.RoundTripper
	BypassCloudflare bool
	Log              *zap.Logger
}

type Session struct {
	store   *Store
	state   State
	base    *url.URL
	jar     http.CookieJar
	client  *http.Client
	ttl     time.Duration
	persist bool
	log     *zap.Logger

	once     sync.Once
	closeErr error
}

// Open creates the run's session. Callers must Close it on every exit path.
func Open(opts Options) (*Session, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("session: invalid base url %q", opts.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s := &Session{
		store:   opts.Store,
		base:    base,
		jar:     jar,
		ttl:     opts.TTL,
		persist: opts.Persist,
		log:     log,
	}

	if s.store != nil {
		st, err := s.store.Load()
		if err != nil {
			return nil, err
		}
		s.state = st
		s.seed(st.Cookies)
		if !st.Empty() {
			log.Debug("loaded stored session",
				zap.Int("cookies", len(st.Cookies)), zap.Time("expires", st.Expires))
		}
	}

	if inline := util.ParseCookieHeader(opts.Cookie); len(inline) > 0 {
		jar.SetCookies(base, inline)
		log.Debug("applied inline cookies", zap.Int("count", len(inline)))
	}

	s.client = util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:          opts.Timeout,
		UserAgent:        opts.UserAgent,
		Jar:              jar,
		Transport:        opts.Transport,
		BypassCloudflare: opts.BypassCloudflare,
		DebugLogger:      log.Sugar(),
	})

	return s, nil
}

func (s *Session) seed(cookies []Cookie) {
	for _, c := range cookies {
		domain := strings.TrimPrefix(c.Domain, ".")
		if domain == "" {
			domain = s.base.Hostname()
		}
		path := c.Path
		if path == "" {
			path = "/"
		}

		u := &url.URL{Scheme: "https", Host: domain, Path: path}
		s.jar.SetCookies(u, []*http.Cookie{{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}})
	}
}

func (s *Session) Client() *http.Client { return s.client }

func (s *Session) Jar() http.CookieJar { return s.jar }

// Close persists the jar when requested and releases idle connections.
// It is safe to call more than once.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.client.CloseIdleConnections()

		if !s.persist || s.store == nil {
			return
		}

		st := s.snapshot()
		if st.Empty() {
			return
		}
		if err := s.store.Save(st); err != nil {
			s.closeErr = err
			return
		}
		s.log.Debug("session saved", zap.Int("cookies", len(st.Cookies)), zap.String("path", s.store.Path))
	})

	return s.closeErr
}

// snapshot keeps stored cookies for other hosts and replaces the ones for the
// base host with the jar's current view.
func (s *Session) snapshot() State {
	host := s.base.Hostname()
	now := time.Now()
	if s.store != nil {
		now = s.store.now()
	}

	st := State{Expires: now.Add(s.ttl)}
	for _, c := range s.state.Cookies {
		if strings.TrimPrefix(c.Domain, ".") != host {
			st.Cookies = append(st.Cookies, c)
		}
	}

	for _, c := range s.jar.Cookies(s.base) {
		st.Cookies = append(st.Cookies, Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: host,
			Path:   "/",
		})
	}

	return st
}

// Import replaces the stored cookies for the host of rawURL with the pairs in
// header and returns the saved state.
func Import(store *Store, rawURL, header string, ttl time.Duration) (State, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return State{}, fmt.Errorf("session: invalid url %q", rawURL)
	}

	cookies := util.ParseCookieHeader(header)
	if len(cookies) == 0 {
		return State{}, errors.New("session: no cookies in header")
	}

	cur, err := store.Load()
	if err != nil {
		return State{}, err
	}

	host := u.Hostname()
	st := State{Expires: store.now().Add(ttl)}
	for _, c := range cur.Cookies {
		if strings.TrimPrefix(c.Domain, ".") != host {
			st.Cookies = append(st.Cookies, c)
		}
	}
	for _, c := range cookies {
		st.Cookies = append(st.Cookies, Cookie{Name: c.Name, Value: c.Value, Domain: host, Path: "/"})
	}

	if err := store.Save(st); err != nil {
		return State{}, err
	}
	return st, nil
}
