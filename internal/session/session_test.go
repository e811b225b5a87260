package session

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "session.yaml"))
	s.Now = func() time.Time { return now }
	return s
}

func TestStoreMissingLoadsEmpty(t *testing.T) {
	s := newTestStore(t, time.Now())

	st, err := s.Load()
	require.NoError(t, err)
	assert.True(t, st.Empty())
	assert.NoError(t, s.Clear())
}

func TestStoreExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)

	require.NoError(t, s.Save(State{
		Expires: now.Add(time.Hour),
		Cookies: []Cookie{{Name: "sid", Value: "abc", Domain: "example.com"}},
	}))

	st, err := s.Load()
	require.NoError(t, err)
	require.Len(t, st.Cookies, 1)
	assert.Equal(t, "sid", st.Cookies[0].Name)

	s.Now = func() time.Time { return now.Add(2 * time.Hour) }
	st, err = s.Load()
	require.NoError(t, err)
	assert.True(t, st.Empty())

	require.NoError(t, s.Clear())
	st, err = s.Load()
	require.NoError(t, err)
	assert.True(t, st.Empty())
}

func TestImportKeepsOtherHosts(t *testing.T) {
	now := time.Now()
	s := newTestStore(t, now)
	require.NoError(t, s.Save(State{
		Expires: now.Add(time.Hour),
		Cookies: []Cookie{
			{Name: "other", Value: "1", Domain: "other.org"},
			{Name: "old", Value: "x", Domain: "example.com"},
		},
	}))

	st, err := Import(s, "https://example.com/chapter/1", "sid=abc; theme=dark", 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, st.Cookies, 3)
	assert.Equal(t, "other", st.Cookies[0].Name)
	assert.Equal(t, "sid", st.Cookies[1].Name)
	assert.Equal(t, "example.com", st.Cookies[1].Domain)
	assert.Equal(t, now.Add(24*time.Hour), st.Expires)

	_, err = Import(s, "https://example.com", "  ", time.Hour)
	assert.Error(t, err)
}

func TestSessionSendsAndPersistsCookies(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, c := range r.Cookies() {
			seen = append(seen, c.Name+"="+c.Value)
		}
		http.SetCookie(w, &http.Cookie{Name: "fresh", Value: "new", Path: "/"})
	}))
	defer srv.Close()

	now := time.Now()
	store := newTestStore(t, now)
	require.NoError(t, store.Save(State{
		Expires: now.Add(time.Hour),
		Cookies: []Cookie{{Name: "sid", Value: "abc", Domain: "127.0.0.1", Path: "/"}},
	}))

	s, err := Open(Options{
		Store:   store,
		BaseURL: srv.URL + "/chapter/1",
		Cookie:  "inline=1",
		TTL:     48 * time.Hour,
		Persist: true,
		Timeout: 5 * time.Second,
		Log:     zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	resp, err := s.Client().Get(srv.URL + "/chapter/1")
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.ElementsMatch(t, []string{"sid=abc", "inline=1"}, seen)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	st, err := store.Load()
	require.NoError(t, err)
	names := make([]string, 0, len(st.Cookies))
	for _, c := range st.Cookies {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"sid", "inline", "fresh"}, names)
	assert.WithinDuration(t, now.Add(48*time.Hour), st.Expires, time.Second)
}

func TestOpenRejectsBadURL(t *testing.T) {
	_, err := Open(Options{BaseURL: "not a url"})
	assert.Error(t, err)
}
