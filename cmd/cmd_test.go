package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/brogergvhs/branchd/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its stdout. Flag
// globals are reset afterwards since cobra keeps them between runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags() {
	flagIgnoreConfig, flagDebug = false, false
	flagURL, flagChapter, flagRange, flagList = "", "", "", ""
	flagMaxDepth = 0
	flagCombined, flagJSON, flagEPUB, flagPreview = false, false, false, false
	flagEmbedImages, flagConvertImages = false, false
	flagImageFormat, flagImageQuality = "", 0
	flagOutput, flagDryRun = "", false
	flagCookie, flagCookieFile, flagUserAgent = "", "", ""
	flagSessionURL, flagSessionCookie, flagSessionCookieFile = "", "", ""
	flagSessionReveal = false
	forceRemove, flagResetSession, configInitYes = false, false, false
}

func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("APPDATA", "")
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func chapterPage(title, parent string) string {
	prev := ""
	if parent != "" {
		prev = fmt.Sprintf(`<a href="%s">Previous Chapter</a>`, parent)
	}
	return fmt.Sprintf(`<html><body>
<header class="chapter-header"><h1>%s</h1></header>
<div class="chapter-content"><p>Text of %s.</p></div>
%s
</body></html>`, title, title, prev)
}

func TestDownloadRejectsConflictingLayoutWithoutRequests(t *testing.T) {
	isolateConfig(t)

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(chapterPage("One", "")))
	}))
	defer srv.Close()

	_, err := execute(t, "download", "--ignore-config",
		"--url", srv.URL+"/chapter/1",
		"--combined", "--json",
		"--output", t.TempDir(),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrConflictingLayout)
	assert.Zero(t, hits.Load())

	_, statErr := os.Stat(config.SessionFile())
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadRequiresURL(t *testing.T) {
	isolateConfig(t)

	_, err := execute(t, "download", "--ignore-config", "--output", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing --url")
}

func TestDownloadDryRunListsChain(t *testing.T) {
	isolateConfig(t)

	path, err := config.InitDefaultConfig()
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	cfg.DelayMin, cfg.DelayMax = 0, 0
	require.NoError(t, config.SaveYAML(cfg, path))

	mux := http.NewServeMux()
	mux.HandleFunc("/chapter/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chapterPage("Beginning", "")))
	})
	mux.HandleFunc("/chapter/2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chapterPage("Fork", "/chapter/1")))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	outDir := t.TempDir()
	out, err := execute(t, "download", "--url", srv.URL+"/chapter/2", "--output", outDir, "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "Dry-run: 2 chapters selected")
	assert.Contains(t, out, "  1) Beginning")
	assert.Contains(t, out, "  2) Fork")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSessionImportShowClear(t *testing.T) {
	isolateConfig(t)

	out, err := execute(t, "session", "import", "--ignore-config",
		"--url", "https://stories.example.com/chapter/9",
		"--cookie", "sid=abcdefghij; theme=dark")
	require.NoError(t, err)
	assert.Contains(t, out, "session holds 2")

	out, err = execute(t, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "stories.example.com")
	assert.Contains(t, out, "ab…ij")
	assert.NotContains(t, out, "abcdefghij")

	_, err = execute(t, "session", "clear")
	require.NoError(t, err)

	out, err = execute(t, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No session stored")
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "******", maskValue("abc"))
	assert.Equal(t, "ab…yz", maskValue("abcdxyz"))
}

func TestConfigRemoveActiveFallsBackToDefault(t *testing.T) {
	isolateConfig(t)

	_, err := execute(t, "config", "init", "--yes")
	require.NoError(t, err)
	_, err = execute(t, "config", "add", "night")
	require.NoError(t, err)
	_, err = execute(t, "config", "switch", "night")
	require.NoError(t, err)

	out, err := execute(t, "config", "remove", "night", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, `Removed configuration "night"`)
	assert.Contains(t, out, `Active config is now "Default"`)

	label, err := config.CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, "Default", label)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "branchd version: dev")
}
