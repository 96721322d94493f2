package extract

import (
	"log/slog"
	"os"
	"sync"
)

// SourceCache holds at most one downloaded full source per run. Clips from the
// same source at the same quality cap reuse the file instead of re-downloading
// it; a cap change or an extraction failure evicts it.
type SourceCache struct {
	logger *slog.Logger

	mu        sync.Mutex
	path      string
	maxHeight int
}

func NewSourceCache(logger *slog.Logger) *SourceCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SourceCache{logger: logger}
}

// Get returns the cached source path when one exists for the requested cap and
// the file is still on disk.
func (c *SourceCache) Get(maxHeight int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path == "" || c.maxHeight != maxHeight {
		return "", false
	}
	if _, err := os.Stat(c.path); err != nil {
		c.logger.Warn("cached source file vanished", "path", c.path)
		c.path = ""
		return "", false
	}
	return c.path, true
}

// Put replaces the cached source. A previously cached file at a different
// path is removed so only one full source occupies disk at a time.
func (c *SourceCache) Put(maxHeight int, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path != "" && c.path != path {
		if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("remove stale cached source", "path", c.path, "error", err)
		}
	}
	c.path = path
	c.maxHeight = maxHeight
}

// Invalidate evicts the cached source and deletes the file. A corrupt or
// truncated source must not poison later clips, so eviction happens as soon
// as an extraction from the cache fails.
func (c *SourceCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path == "" {
		return
	}
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("remove invalidated cached source", "path", c.path, "error", err)
	}
	c.path = ""
	c.maxHeight = 0
}

// Close releases the cache at the end of a run.
func (c *SourceCache) Close() {
	c.Invalidate()
}
