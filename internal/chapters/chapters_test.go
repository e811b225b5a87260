package chapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/brogergvhs/branchd/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeSite serves chapters from a parent map and counts fetches per URL.
type fakeSite struct {
	parents map[string]string
	fail    map[string]error
	calls   map[string]int
}

func newFakeSite(parents map[string]string) *fakeSite {
	return &fakeSite{parents: parents, fail: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeSite) Fetch(_ context.Context, url string) (providers.Chapter, error) {
	f.calls[url]++
	if err := f.fail[url]; err != nil {
		return providers.Chapter{}, err
	}
	parent, ok := f.parents[strings.TrimRight(strings.Split(url, "#")[0], "/")]
	if !ok {
		return providers.Chapter{}, fmt.Errorf("unknown chapter %s", url)
	}
	return providers.Chapter{URL: url, Title: "Title " + url, ParentURL: parent}, nil
}

func TestWalkAcyclicChains(t *testing.T) {
	for n := 1; n <= 6; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			parents := map[string]string{}
			for i := range n {
				parent := ""
				if i > 0 {
					parent = fmt.Sprintf("https://s.test/c/%d", i-1)
				}
				parents[fmt.Sprintf("https://s.test/c/%d", i)] = parent
			}
			site := newFakeSite(parents)

			chain, err := Walk(context.Background(), site, fmt.Sprintf("https://s.test/c/%d", n-1), zaptest.NewLogger(t))
			require.NoError(t, err)
			require.Len(t, chain, n)
			for i, ch := range chain {
				assert.Equal(t, fmt.Sprintf("https://s.test/c/%d", i), ch.URL)
				assert.Equal(t, 1, site.calls[ch.URL])
			}
			assert.Equal(t, fmt.Sprintf("https://s.test/c/%d", n-1), chain.Target().URL)
		})
	}
}

func TestWalkStopsOnCycle(t *testing.T) {
	site := newFakeSite(map[string]string{
		"https://s.test/a": "https://s.test/c",
		"https://s.test/b": "https://s.test/a",
		"https://s.test/c": "https://s.test/b#comments",
		"https://s.test/d": "https://s.test/c",
	})

	chain, err := Walk(context.Background(), site, "https://s.test/d", zaptest.NewLogger(t))
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, u := range chain.URLs() {
		assert.False(t, seen[u], "duplicate %s", u)
		seen[u] = true
	}
	assert.Equal(t, []string{"https://s.test/a", "https://s.test/b#comments", "https://s.test/c", "https://s.test/d"}, chain.URLs())
}

func TestWalkSelfParent(t *testing.T) {
	site := newFakeSite(map[string]string{"https://s.test/x": "https://s.test/x/"})

	chain, err := Walk(context.Background(), site, "https://s.test/x", nil)
	require.NoError(t, err)
	assert.Len(t, chain, 1)
}

func TestWalkPropagatesFetchError(t *testing.T) {
	site := newFakeSite(map[string]string{
		"https://s.test/b": "https://s.test/a",
		"https://s.test/a": "",
	})
	boom := errors.New("forbidden")
	site.fail["https://s.test/a"] = boom

	chain, err := Walk(context.Background(), site, "https://s.test/b", zaptest.NewLogger(t))
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, chain)
}

func TestWalkMaxDepthAndObserver(t *testing.T) {
	site := newFakeSite(map[string]string{
		"https://s.test/3": "https://s.test/2",
		"https://s.test/2": "https://s.test/1",
		"https://s.test/1": "",
	})

	var depths []int
	chain, err := Walk(context.Background(), site, "https://s.test/3", zaptest.NewLogger(t),
		WithMaxDepth(2),
		OnChapter(func(depth int, _ providers.Chapter) { depths = append(depths, depth) }),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://s.test/2", "https://s.test/3"}, chain.URLs())
	assert.Equal(t, []int{0, 1}, depths)
	assert.Zero(t, site.calls["https://s.test/1"])
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"The Door":            "the_door",
		"  Part 2: The End! ": "part_2_the_end",
		"Глава 1":             "glava_1",
		"":                    "untitled",
		"???":                 "untitled",
	}
	for in, want := range tests {
		assert.Equal(t, want, Sanitize(in), "Sanitize(%q)", in)
	}

	long := Sanitize("a very long title that keeps going and going well past any sane file name length limit")
	assert.LessOrEqual(t, len([]rune(long)), maxNameRunes)
}

func testChain(n int) Chain {
	c := make(Chain, n)
	for i := range c {
		c[i] = providers.Chapter{URL: fmt.Sprintf("u%d", i+1), Title: fmt.Sprintf("Chapter %d", i+1)}
	}
	return c
}

func TestFilter(t *testing.T) {
	all := testChain(5)

	got, err := Filter(all, "", "", "")
	require.NoError(t, err)
	assert.Len(t, got, 5)

	got, err = Filter(all, "chapter 3", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, got.URLs())

	got, err = Filter(all, "2", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, got.URLs())

	got, err = Filter(all, "", "2-4", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3", "u4"}, got.URLs())

	got, err = Filter(all, "", "", "1, 5,9")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u5"}, got.URLs())

	_, err = Filter(all, "1", "1-2", "")
	assert.ErrorIs(t, err, ErrMultipleSelectors)

	_, err = Filter(all, "", "4-9", "")
	assert.Error(t, err)

	_, err = Filter(all, "", "", "x")
	assert.Error(t, err)

	_, err = Filter(all, "", "", "7,8")
	assert.ErrorIs(t, err, ErrEmptySelection)
}
