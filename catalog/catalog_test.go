package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(ids ...int) string {
	var sb strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&sb, `{"id": %d, "question": "Problem title %d\nbody"}`+"\n", id, id)
	}
	return sb.String()
}

func TestLoad(t *testing.T) {
	t.Run("SkipsBlankAndMalformedLines", func(t *testing.T) {
		input := `{"id": 2, "question": "B"}` + "\n\n" +
			`{not json` + "\n" +
			`{"question": "no id"}` + "\n" +
			`{"id": "1", "question": "A"}` + "\n"

		c := New()
		stats, err := c.Load(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, LoadStats{Loaded: 2, Skipped: 2}, stats)
		assert.Equal(t, 2, c.Len())

		p, ok := c.Get(1)
		assert.True(t, ok)
		assert.Equal(t, "A", p.Title)
	})

	t.Run("DuplicateIdsLastWins", func(t *testing.T) {
		input := `{"id": 7, "question": "first"}` + "\n" + `{"id": 7, "question": "second"}` + "\n"

		c := New()
		stats, err := c.Load(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Loaded)
		assert.Equal(t, 1, stats.Duplicates)

		p, _ := c.Get(7)
		assert.Equal(t, "second", p.Title)
	})

	t.Run("OversizedLineIsSkipped", func(t *testing.T) {
		huge := `{"id": 2, "input_output": "` + strings.Repeat("x", 200<<10) + `"}`
		input := `{"id": 1, "question": "A"}` + "\n" + huge + "\n" + `{"id": 3, "question": "C"}`

		c := New()
		c.maxLineSize = 1024
		stats, err := c.Load(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, LoadStats{Loaded: 2, Skipped: 1}, stats)

		_, ok := c.Get(2)
		assert.False(t, ok)
		p, ok := c.Get(3)
		assert.True(t, ok)
		assert.Equal(t, "C", p.Title)
	})

	t.Run("LongLineWithinLimit", func(t *testing.T) {
		question := "Long\n" + strings.Repeat("y", 300<<10)
		input := fmt.Sprintf(`{"id": 9, "question": %q}`, question) + "\n"

		c := New()
		stats, err := c.Load(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, LoadStats{Loaded: 1}, stats)

		p, ok := c.Get(9)
		require.True(t, ok)
		assert.Equal(t, question, p.Question)
	})

	t.Run("LineAtLimit", func(t *testing.T) {
		line := `{"id": 4}`
		c := New()
		c.maxLineSize = len(line)
		stats, err := c.Load(strings.NewReader(line + "\n" + line + " \n"))
		require.NoError(t, err)
		assert.Equal(t, LoadStats{Loaded: 1, Skipped: 1}, stats)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		c := New()
		_, err := c.Load(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, 0, c.Len())
		assert.Empty(t, c.List(0, 50))
		_, ok := c.Get(1)
		assert.False(t, ok)
	})

	t.Run("ReplacesPreviousContent", func(t *testing.T) {
		c := New()
		_, err := c.Load(strings.NewReader(records(1, 2, 3)))
		require.NoError(t, err)
		_, err = c.Load(strings.NewReader(records(4)))
		require.NoError(t, err)

		assert.Equal(t, 1, c.Len())
		_, ok := c.Get(1)
		assert.False(t, ok)
	})
}

func TestList(t *testing.T) {
	c := New()
	_, err := c.Load(strings.NewReader(records(10, 3, 7, 1, 5, 9, 2, 8, 4, 6)))
	require.NoError(t, err)

	t.Run("AllAscending", func(t *testing.T) {
		list := c.List(0, 50)
		require.Len(t, list, 10)
		for i, s := range list {
			assert.Equal(t, i+1, s.ID)
			assert.Equal(t, fmt.Sprintf("Problem title %d", i+1), s.Title)
			assert.Equal(t, "Medium", s.Difficulty)
		}
	})

	t.Run("SkipThenLimit", func(t *testing.T) {
		list := c.List(2, 3)
		require.Len(t, list, 3)
		assert.Equal(t, []int{3, 4, 5}, []int{list[0].ID, list[1].ID, list[2].ID})
	})

	t.Run("OutOfRange", func(t *testing.T) {
		assert.Empty(t, c.List(20, 10))
		assert.NotNil(t, c.List(20, 10))
		assert.Empty(t, c.List(0, 0))
		assert.Len(t, c.List(-5, 2), 2)
		assert.Len(t, c.List(8, 100), 2)
	})

	t.Run("ResultIsACopy", func(t *testing.T) {
		list := c.List(0, 1)
		list[0].Title = "changed"
		assert.Equal(t, "Problem title 1", c.List(0, 1)[0].Title)
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("Plain", func(t *testing.T) {
		path := filepath.Join(dir, "problems.jsonl")
		require.NoError(t, os.WriteFile(path, []byte(records(1, 2)), 0o644))

		c := New()
		stats, err := c.LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Loaded)
	})

	t.Run("Zstd", func(t *testing.T) {
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		compressed := enc.EncodeAll([]byte(records(1, 2, 3)), nil)
		require.NoError(t, enc.Close())

		path := filepath.Join(dir, "problems.jsonl.zst")
		require.NoError(t, os.WriteFile(path, compressed, 0o644))

		c := New()
		stats, err := c.LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Loaded)
		assert.Equal(t, 3, c.Len())
	})

	t.Run("MissingFileKeepsCatalog", func(t *testing.T) {
		c := New()
		_, err := c.Load(strings.NewReader(records(1)))
		require.NoError(t, err)

		_, err = c.LoadFile(filepath.Join(dir, "missing.jsonl"))
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
		assert.Equal(t, 1, c.Len())
	})
}

func TestConcurrentReadersSeeCompleteLoads(t *testing.T) {
	c := New()
	small, large := records(1, 2, 3), records(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	_, err := c.Load(strings.NewReader(small))
	require.NoError(t, err)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var mu sync.Mutex
	observed := map[int]bool{}

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				n := len(c.List(0, 100))
				mu.Lock()
				observed[n] = true
				mu.Unlock()
			}
		}()
	}

	for i := range 50 {
		src := small
		if i%2 == 0 {
			src = large
		}
		_, err := c.Load(strings.NewReader(src))
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	for n := range observed {
		assert.Contains(t, []int{3, 10}, n)
	}
}

func TestHealthAndJSON(t *testing.T) {
	c := New()
	ok, _ := c.Ok()
	assert.False(t, ok)

	_, err := c.Load(strings.NewReader(records(1) + "garbage\n"))
	require.NoError(t, err)

	ok, msg := c.Ok()
	assert.True(t, ok)
	assert.Equal(t, "1 problems loaded", msg)
	assert.Equal(t, "ProblemCatalog", c.ServiceName())
	assert.Equal(t, "problem_catalog", c.PartName())
	assert.Contains(t, string(c.JSON()), `"skipped": 1`)
}
