// Package catalog holds the in-memory problem catalog.
package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/CodeDeck/codedeck_backend/log"
	"github.com/CodeDeck/codedeck_backend/problem"
	"github.com/CodeDeck/codedeck_backend/types"
	"github.com/CodeDeck/codedeck_backend/utils"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxLineSize = 64 << 20
	readBufferSize     = 64 << 10
	oversizedPrefix    = 256
)

// LoadError reports a bulk source that could not be read at all.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load problem catalog %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type LoadStats struct {
	Loaded     int `json:"loaded"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}

// snapshot is never mutated after it is published.
type snapshot struct {
	byID     map[int]types.Problem
	ordered  []types.ProblemSummary
	stats    LoadStats
	source   string
	loadedAt time.Time
}

// Catalog maps problem ids to problems. Readers always see one complete load.
type Catalog struct {
	current     atomic.Pointer[snapshot]
	maxLineSize int
}

func New() *Catalog {
	c := &Catalog{maxLineSize: defaultMaxLineSize}
	c.current.Store(&snapshot{byID: map[int]types.Problem{}})
	return c
}

// LoadFile loads a newline-delimited problem file, transparently
// decompressing files ending in .zst. On a *LoadError the previous
// content is kept.
func (c *Catalog) LoadFile(path string) (LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadStats{}, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return LoadStats{}, &LoadError{Path: path, Err: err}
		}
		defer dec.Close()
		r = dec
	}

	stats, err := c.load(r, path)
	if err != nil {
		return stats, &LoadError{Path: path, Err: err}
	}
	return stats, nil
}

// Load replaces the catalog with the problems parsed from r, one JSON record
// per line. Blank lines are ignored and malformed lines are skipped.
func (c *Catalog) Load(r io.Reader) (LoadStats, error) {
	return c.load(r, "reader")
}

func (c *Catalog) load(r io.Reader, source string) (LoadStats, error) {
	log.Logger.Infof("Loading problems from %s...", source)

	var stats LoadStats
	byID := make(map[int]types.Problem)

	br := bufio.NewReaderSize(r, readBufferSize)
	lineNo := 0
	for {
		raw, tooLong, err := readLine(br, c.maxLineSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read line %d: %w", lineNo+1, err)
		}
		lineNo++

		if tooLong {
			stats.Skipped++
			log.Logger.WithFields(logrus.Fields{
				"line":   lineNo,
				"prefix": utils.Prefix(string(raw), 50),
				"limit":  c.maxLineSize,
			}).Warn("Skipping oversized problem record")
			continue
		}

		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}

		p, err := problem.Parse([]byte(line))
		if err != nil {
			stats.Skipped++
			log.Logger.WithFields(logrus.Fields{
				"line":   lineNo,
				"prefix": utils.Prefix(line, 50),
			}).WithError(err).Warn("Skipping malformed problem record")
			continue
		}

		if _, dup := byID[p.ID]; dup {
			stats.Duplicates++
			log.Logger.WithFields(logrus.Fields{
				"line":       lineNo,
				"problem_id": p.ID,
			}).Warn("Duplicate problem id, overwriting earlier record")
		}
		byID[p.ID] = p
	}

	ordered := make([]types.ProblemSummary, 0, len(byID))
	for _, p := range byID {
		ordered = append(ordered, p.Summary())
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	stats.Loaded = len(byID)
	c.current.Store(&snapshot{
		byID:     byID,
		ordered:  ordered,
		stats:    stats,
		source:   source,
		loadedAt: time.Now(),
	})

	log.Logger.WithFields(logrus.Fields{
		"skipped":    stats.Skipped,
		"duplicates": stats.Duplicates,
	}).Infof("Successfully loaded %d problems", stats.Loaded)
	return stats, nil
}

// List returns summaries sorted by id after applying skip then limit.
// Out of range arguments yield an empty slice.
func (c *Catalog) List(skip, limit int) []types.ProblemSummary {
	ordered := c.current.Load().ordered
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || skip >= len(ordered) {
		return []types.ProblemSummary{}
	}
	if limit > len(ordered)-skip {
		limit = len(ordered) - skip
	}
	return slices.Clone(ordered[skip : skip+limit])
}

func (c *Catalog) Get(id int) (types.Problem, bool) {
	p, ok := c.current.Load().byID[id]
	return p, ok
}

func (c *Catalog) Len() int {
	return len(c.current.Load().byID)
}

func (c *Catalog) ServiceName() string {
	return "ProblemCatalog"
}

func (c *Catalog) Ok() (bool, string) {
	n := c.Len()
	if n == 0 {
		return false, "No problems loaded"
	}
	return true, fmt.Sprintf("%d problems loaded", n)
}

func (c *Catalog) PartName() string {
	return "problem_catalog"
}

func (c *Catalog) JSON() []byte {
	snap := c.current.Load()
	data := map[string]any{
		"problems":   len(snap.byID),
		"skipped":    snap.stats.Skipped,
		"duplicates": snap.stats.Duplicates,
		"source":     snap.source,
	}
	if !snap.loadedAt.IsZero() {
		data["loaded_at"] = snap.loadedAt.Format(time.RFC3339)
	}
	b, _ := json.MarshalIndent(data, "", "  ")
	return b
}

// readLine returns the next line without its newline. A line longer than
// limit is read to its end and discarded; only its first bytes are returned,
// with tooLong set. io.EOF is returned once the input is exhausted.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	read := false
	for {
		frag, ferr := br.ReadSlice('\n')
		if len(frag) > 0 {
			read = true
		}
		if !tooLong {
			line = append(line, frag...)
			if len(line) > limit+1 {
				tooLong = true
				line = line[:min(len(line), oversizedPrefix)]
			}
		}

		switch {
		case errors.Is(ferr, bufio.ErrBufferFull):
			continue
		case ferr != nil && !errors.Is(ferr, io.EOF):
			return nil, false, ferr
		case ferr != nil && !read:
			return nil, false, io.EOF
		}

		if !tooLong {
			line = bytes.TrimSuffix(line, []byte("\n"))
			if len(line) > limit {
				tooLong = true
				line = line[:min(len(line), oversizedPrefix)]
			}
		}
		return line, tooLong, nil
	}
}
