package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/xlingo-lab/pplstat/internal/aggregate"
	"github.com/xlingo-lab/pplstat/internal/dataset"
	"github.com/xlingo-lab/pplstat/internal/models"
)

// keyVersion changes whenever the cached row layout or the statistics change.
const keyVersion = "pplstat-summary-v2"

// entry is the on-disk form of a summary. Reasons holds the reason of every
// undefined statistic in aggregate.Undefined order.
type entry struct {
	Rows    []models.SummaryRow `json:"rows"`
	Reasons []string            `json:"reasons,omitempty"`
}

// Cache stores summary rows on disk, keyed by the content of their inputs.
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a cache in dir. An empty dir disables caching.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Enabled reports whether the cache has a directory to store entries in.
func (c *Cache) Enabled() bool {
	return c.dir != ""
}

// Key hashes everything a summary depends on:
//   - the input paths and the bytes of every file they expand to
//   - the record limit
//   - the aggregation options
func Key(paths []string, ds dataset.Options, agg aggregate.Options) (string, error) {
	h := sha256.New()
	if err := writeString(h, keyVersion); err != nil {
		return "", err
	}

	for _, p := range paths {
		files, err := inputFiles(p)
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", p, err)
		}
		for _, f := range files {
			if err := writeString(h, filepath.Base(f)); err != nil {
				return "", err
			}
			if err := hashFile(h, f); err != nil {
				return "", fmt.Errorf("hashing %s: %w", f, err)
			}
		}
		// separates inputs so moving a file between folders changes the key
		if err := writeString(h, filepath.Base(p)); err != nil {
			return "", err
		}
	}

	if err := writeInt(h, ds.Limit); err != nil {
		return "", err
	}
	aggJSON, err := json.Marshal(agg)
	if err != nil {
		return "", fmt.Errorf("marshaling options: %w", err)
	}
	if _, err := h.Write(aggJSON); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns the cached rows for key. Unreadable entries are misses.
func (c *Cache) Get(key string) ([]models.SummaryRow, bool) {
	if !c.Enabled() {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	undefined := aggregate.Undefined(e.Rows)
	if len(undefined) != len(e.Reasons) {
		return nil, false
	}
	for i, u := range undefined {
		u.Reason = e.Reasons[i]
	}
	return e.Rows, true
}

// Put stores rows under key.
func (c *Cache) Put(key string, rows []models.SummaryRow) error {
	if !c.Enabled() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	e := entry{Rows: rows}
	for _, u := range aggregate.Undefined(rows) {
		e.Reasons = append(e.Reasons, u.Reason)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling rows: %w", err)
	}

	if err := os.WriteFile(c.cachePath(key), data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Clear removes the cache directory. It refuses to touch a directory holding
// anything other than cache entries.
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, de := range entries {
		if de.IsDir() {
			return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
		}
		if filepath.Ext(de.Name()) != ".json" {
			return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// inputFiles expands a results folder to its scored-result files.
func inputFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return dataset.ResultFiles(path)
	}
	return []string{path}, nil
}

func writeString(w io.Writer, s string) error {
	// null byte delimiter prevents collisions between adjacent fields
	_, err := w.Write([]byte(s + "\x00"))
	return err
}

func writeInt(w io.Writer, i int) error {
	_, err := fmt.Fprintf(w, "%d\x00", i)
	return err
}

func hashFile(h io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	_, err = io.Copy(h, f)
	return err
}
