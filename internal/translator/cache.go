package translator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// CacheEntry is one cached translation.
type CacheEntry struct {
	Hash        string    `json:"hash"`
	Source      string    `json:"source"`
	Target      string    `json:"target"`
	Original    string    `json:"original"`
	Translation string    `json:"translation"`
	CreatedAt   time.Time `json:"created_at"`
}

// CacheFile is the on-disk layout of the cache.
type CacheFile struct {
	Version string       `json:"version"`
	Entries []CacheEntry `json:"entries"`
}

const cacheVersion = "1.0"

// Cache stores translations keyed by the source text and language pair, so
// an interrupted run can be resumed without translating finished chunks again.
type Cache struct {
	path    string
	entries map[string]CacheEntry
	mu      sync.RWMutex
}

// NewCache creates an empty cache backed by path. An empty path keeps the
// cache in memory only.
func NewCache(path string) *Cache {
	return &Cache{
		path:    path,
		entries: make(map[string]CacheEntry),
	}
}

// Key returns the SHA-256 hex digest identifying text in the given direction.
func Key(text, source, target string) string {
	hash := sha256.Sum256([]byte(source + "\x00" + target + "\x00" + text))
	return hex.EncodeToString(hash[:])
}

// Get returns the cached translation of text.
func (c *Cache) Get(text, source, target string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[Key(text, source, target)]
	if !ok {
		return "", false
	}
	return entry.Translation, true
}

// Set stores a translation.
func (c *Cache) Set(text, source, target, translation string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := Key(text, source, target)
	c.entries[hash] = CacheEntry{
		Hash:        hash,
		Source:      source,
		Target:      target,
		Original:    text,
		Translation: translation,
		CreatedAt:   time.Now(),
	}
}

// Load reads the cache file. A missing file leaves the cache empty.
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	var file CacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse cache file %s: %w", c.path, err)
	}

	c.entries = make(map[string]CacheEntry, len(file.Entries))
	for _, entry := range file.Entries {
		c.entries[entry.Hash] = entry
	}
	return nil
}

// Save writes the cache file.
func (c *Cache) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.path == "" {
		return nil
	}

	file := CacheFile{
		Version: cacheVersion,
		Entries: make([]CacheEntry, 0, len(c.entries)),
	}
	for _, entry := range c.entries {
		file.Entries = append(file.Entries, entry)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Size returns the number of entries.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Path returns the backing file path.
func (c *Cache) Path() string {
	return c.path
}
