package util

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuman(t *testing.T) {
	assert.Equal(t, "512 B", Human(512))
	assert.Equal(t, "1.50 KB", Human(1536))
	assert.Equal(t, "3.00 MB", Human(3<<20))
	assert.Equal(t, "2.00 GB", Human(2<<30))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "000_a.md")

	require.NoError(t, WriteFileAtomic(path, []byte("# A\n")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# A\n", string(b))

	_, err = os.Stat(path + PartSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestCleanupPartialFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md.part"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "images", "x.jpg.part"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("b"), 0o644))

	CleanupPartialFiles(dir)
	RemoveIfEmpty(filepath.Join(dir, "images"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.md", entries[0].Name())
}

func TestJoinCookies(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(file, []byte("\n  sid=abc \nignored=1\n"), 0o600))

	s, err := JoinCookies("a=1", file)
	require.NoError(t, err)
	assert.Equal(t, "a=1; sid=abc", s)

	s, err = JoinCookies(" a=1 ", "")
	require.NoError(t, err)
	assert.Equal(t, "a=1", s)

	_, err = JoinCookies("", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestParseCookieHeader(t *testing.T) {
	cs := ParseCookieHeader("sid=abc; bad; theme = dark ;=x")
	require.Len(t, cs, 2)
	assert.Equal(t, "sid", cs[0].Name)
	assert.Equal(t, "abc", cs[0].Value)
	assert.Equal(t, "theme", cs[1].Name)
	assert.Equal(t, "dark", cs[1].Value)
}

func TestHTTPClientSetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientOptions{UserAgent: PickUserAgent("branchd-test")})
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "branchd-test", got)
}
