package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/brogergvhs/branchd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func sampleChain() []RenderedChapter {
	return []RenderedChapter{
		{Title: "The Gate", Author: "alice", URL: "https://s.test/c/a", Markdown: "You stand at a gate.\n\n"},
		{Title: "Left Path", URL: "https://s.test/c/b", Markdown: "You go <left> & on.\n\n"},
		{Title: "The Door", Author: "bob", URL: "https://s.test/c/c", Markdown: "A door.\n\n"},
	}
}

func newTestWriter(t *testing.T, layout string, preview bool) (*Writer, string) {
	t.Helper()
	dir := OutputDir(t.TempDir(), "The Door")
	return NewWriter(Options{Dir: dir, Layout: layout, Preview: preview}, zaptest.NewLogger(t)), dir
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestOutputDir(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "the_door"), OutputDir("out", "The Door!"))
	assert.Equal(t, filepath.Join("out", "untitled"), OutputDir("out", ""))
}

func TestWriteSeparate(t *testing.T) {
	w, dir := newTestWriter(t, config.LayoutSeparate, false)

	files, err := w.Write(sampleChain())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "000_the_gate.md"),
		filepath.Join(dir, "001_left_path.md"),
		filepath.Join(dir, "002_the_door.md"),
	}, files)

	assert.Equal(t,
		"# The Gate\n\n*by alice*\n\nSource: https://s.test/c/a\n\n---\n\nYou stand at a gate.\n",
		read(t, files[0]))
	assert.Equal(t,
		"# Left Path\n\nSource: https://s.test/c/b\n\n---\n\nYou go <left> & on.\n",
		read(t, files[1]))
}

func TestWriteCombined(t *testing.T) {
	w, dir := newTestWriter(t, config.LayoutCombined, false)

	files, err := w.Write(sampleChain())
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "the_door.md")}, files)

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()

	var meta frontMatter
	rest, err := frontmatter.Parse(f, &meta)
	require.NoError(t, err)

	assert.Equal(t, "The Gate", meta.Title)
	assert.Equal(t, []string{"alice", "bob"}, meta.Authors)
	assert.Equal(t, 3, meta.Chapters)
	assert.Equal(t, []string{"https://s.test/c/a", "https://s.test/c/b", "https://s.test/c/c"}, meta.Sources)

	body := string(rest)
	assert.Contains(t, body, "## Chapter 1: The Gate\n\n*by alice*\n\nYou stand at a gate.\n")
	assert.Contains(t, body, "\n---\n\n## Chapter 2: Left Path\n\nYou go")
	assert.Contains(t, body, "## Chapter 3: The Door")
	assert.Less(t, strings.Index(body, "Chapter 1"), strings.Index(body, "Chapter 2"))
}

func TestWriteJSON(t *testing.T) {
	w, dir := newTestWriter(t, config.LayoutJSON, false)

	files, err := w.Write(sampleChain())
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "the_door.json")}, files)

	raw := read(t, files[0])
	assert.Contains(t, raw, "You go <left> & on.")

	type node struct {
		Title    string  `json:"title"`
		Author   *string `json:"author"`
		Content  string  `json:"content"`
		Children []node  `json:"children"`
	}
	var roots []node
	require.NoError(t, json.Unmarshal([]byte(raw), &roots))
	require.Len(t, roots, 1)

	n := roots[0]
	var titles []string
	for {
		titles = append(titles, n.Title)
		if len(n.Children) == 0 {
			break
		}
		require.Len(t, n.Children, 1)
		n = n.Children[0]
	}
	assert.Equal(t, []string{"The Gate", "Left Path", "The Door"}, titles)
	require.NotNil(t, roots[0].Author)
	assert.Equal(t, "alice", *roots[0].Author)
	assert.Nil(t, roots[0].Children[0].Author)
	assert.NotContains(t, raw, `"children": null`)
}

func TestBuildChain(t *testing.T) {
	assert.Nil(t, BuildChain(nil))

	head := BuildChain(sampleChain())
	assert.Equal(t, 3, head.Len())
	assert.Equal(t, "The Gate", head.Title)
	assert.Equal(t, "The Door", head.Next.Next.Title)
	assert.Nil(t, head.Next.Next.Next)

	b, err := json.Marshal(&ChainNode{Title: "only", Content: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"only","content":"x"}`, string(b))
}

func TestLongChainJSON(t *testing.T) {
	const n = 1000
	content := strings.Repeat("It goes on <and> on. ", 250)

	chain := make([]RenderedChapter, n)
	for i := range chain {
		chain[i] = RenderedChapter{Title: fmt.Sprintf("Part %d", i+1), Markdown: content}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	start := time.Now()
	require.NoError(t, enc.Encode([]*ChainNode{BuildChain(chain)}))
	assert.Less(t, time.Since(start), 3*time.Second)

	b := bytes.TrimRight(buf.Bytes(), "\n")

	require.True(t, json.Valid(b))
	assert.Equal(t, n-1, bytes.Count(b, []byte(`"children":[`)))
	assert.True(t, bytes.HasSuffix(b, []byte(`"}`+strings.Repeat("]}", n-1)+"]")))
	assert.Contains(t, string(b), `"title":"Part 1000","content":"It goes on <and> on.`)
}

func TestPreview(t *testing.T) {
	w, dir := newTestWriter(t, config.LayoutSeparate, true)

	files, err := w.Write(sampleChain()[:1])
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "000_the_gate.md"),
		filepath.Join(dir, "000_the_gate.html"),
	}, files)

	page := read(t, files[1])
	assert.Contains(t, page, "<title>The Gate</title>")
	assert.Contains(t, page, "The Gate</h1>")
	assert.Contains(t, page, "<em>by alice</em>")
	assert.Contains(t, page, "<hr>")
}

func TestWriteEPUB(t *testing.T) {
	w, dir := newTestWriter(t, config.LayoutEPUB, false)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "images", "door.png"), buf.Bytes(), 0o644))

	chain := sampleChain()
	chain[2].Markdown = "A door.\n\n![door](images/door.png)\n\n![remote](https://cdn.s.test/x.png)\n\n"

	files, err := w.Write(chain)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "the_door.epub")}, files)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]))

	_, err = os.Stat(files[0] + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteErrors(t *testing.T) {
	w, _ := newTestWriter(t, config.LayoutSeparate, false)
	_, err := w.Write(nil)
	assert.ErrorIs(t, err, ErrEmptyChain)

	w, _ = newTestWriter(t, "pdf", false)
	_, err = w.Write(sampleChain())
	assert.ErrorIs(t, err, config.ErrUnknownLayout)
}
