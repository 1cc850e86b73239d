// Package cache persists token counts across runs so regenerating the same
// book does not re-bill the token-counting service.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

// DefaultMaxEntries bounds the cache; oldest entries are evicted first.
const DefaultMaxEntries = 10000

type entry struct {
	Count int
	Seen  time.Time
}

// Cache is a zstd-compressed, gob-encoded token-count cache. It implements
// synth.TokenCache. Load and save failures degrade to an empty cache and a
// logged warning; the pipeline never depends on the cache working.
type Cache struct {
	path       string
	maxEntries int

	mu      sync.Mutex
	entries map[string]entry
	dirty   bool
}

// Open loads the cache at path, starting empty if the file is missing or
// unreadable. An empty path yields a purely in-memory cache.
func Open(path string, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache{
		path:       path,
		maxEntries: maxEntries,
		entries:    make(map[string]entry),
	}
	if path != "" {
		c.load()
	}
	return c
}

// Get implements synth.TokenCache.
func (c *Cache) Get(model, style, text string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key(model, style, text)]
	return e.Count, ok
}

// Put implements synth.TokenCache.
func (c *Cache) Put(model, style, text string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(model, style, text)] = entry{Count: count, Seen: time.Now()}
	c.dirty = true
	if len(c.entries) > c.maxEntries {
		c.evict()
	}
}

// Len returns the number of cached counts.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Save writes the cache to disk if anything changed since load.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path == "" || !c.dirty {
		return nil
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	if err := gob.NewEncoder(enc).Encode(c.entries); err != nil {
		enc.Close() //nolint:errcheck
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("compressing cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replacing cache: %w", err)
	}

	c.dirty = false
	log.Debug("saved token cache", "path", c.path, "entries", len(c.entries))
	return nil
}

func (c *Cache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("token cache unreadable, starting empty", "path", c.path, "error", err)
		}
		return
	}

	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		log.Warn("token cache corrupt, starting empty", "path", c.path, "error", err)
		return
	}
	defer dec.Close()

	var entries map[string]entry
	if err := gob.NewDecoder(dec).Decode(&entries); err != nil {
		log.Warn("token cache corrupt, starting empty", "path", c.path, "error", err)
		return
	}
	c.entries = entries
	log.Debug("loaded token cache", "path", c.path, "entries", len(entries))
}

// evict removes the oldest tenth of entries. Caller holds the lock.
func (c *Cache) evict() {
	type aged struct {
		key  string
		seen time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{k, e.Seen})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seen.Before(all[j].seen) })

	drop := len(all) / 10
	if drop < 1 {
		drop = 1
	}
	for _, a := range all[:drop] {
		delete(c.entries, a.key)
	}
}

func key(model, style, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(style))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
