package ui

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerSplitsByLevel(t *testing.T) {
	dir := t.TempDir()
	out, err := os.Create(filepath.Join(dir, "out.log"))
	require.NoError(t, err)
	errOut, err := os.Create(filepath.Join(dir, "err.log"))
	require.NoError(t, err)

	l := newLogger(false, out, errOut)
	l.Debugf("hidden %d", 1)
	l.Infof("chapter %s", "A")
	l.Warnf("image %s skipped", "x.jpg")
	l.Errorf("fetch failed: %v", "boom")
	l.Sync()
	require.NoError(t, out.Close())
	require.NoError(t, errOut.Close())

	stdout, _ := os.ReadFile(out.Name())
	stderr, _ := os.ReadFile(errOut.Name())

	assert.NotContains(t, string(stdout), "hidden")
	assert.Contains(t, string(stdout), "chapter A")
	assert.Contains(t, string(stdout), "image x.jpg skipped")
	assert.NotContains(t, string(stdout), "fetch failed")
	assert.Contains(t, string(stderr), "fetch failed: boom")
}

func TestDebugLoggerShowsDebug(t *testing.T) {
	dir := t.TempDir()
	out, err := os.Create(filepath.Join(dir, "out.log"))
	require.NoError(t, err)

	l := newLogger(true, out, out)
	l.Debugf("visible")
	l.Sync()
	require.NoError(t, out.Close())

	stdout, _ := os.ReadFile(out.Name())
	assert.Contains(t, string(stdout), "visible")
}

func TestStatsSummary(t *testing.T) {
	s := &Stats{}
	s.TotalChapters.Add(4)
	s.TotalImages.Add(2)
	s.SkippedImages.Add(1)
	s.TotalBytes.Add(3 << 20)

	var buf bytes.Buffer
	s.PrintSummary(&buf, []string{"a.md", "b.md"}, 1500*time.Millisecond)

	assert.Contains(t, buf.String(), "Chapters: 4")
	assert.Contains(t, buf.String(), "Images:   2 (skipped 1, failed 0)")
	assert.Contains(t, buf.String(), "Data:     3.00 MB")
	assert.Contains(t, buf.String(), "Files:    2")
}

func TestProgressHandleLifecycle(t *testing.T) {
	var buf bytes.Buffer
	pm := newProgressManager(&buf)

	walk := pm.Register("Chain", "chapters")
	walk.Step()
	walk.Step()
	walk.MarkDone()

	imgs := pm.Register("Ch.1", "images")
	imgs.Update(1, 2, 1024)
	imgs.Abort()

	pm.Close()
	assert.Equal(t, int64(2), walk.total)
}
