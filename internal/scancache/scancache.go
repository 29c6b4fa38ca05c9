// Package scancache remembers where the target function was found in a given
// build of the game, so an unchanged binary does not have to be scanned again.
package scancache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v3"
)

const (
	FileName = "scan-cache.yaml"
	// MaxEntries bounds the file; the oldest entries are evicted first.
	MaxEntries = 8
)

// Entry records a scan result as offsets from the start of the code region.
type Entry struct {
	Function   uint64    `yaml:"function"`
	Marker     uint64    `yaml:"marker"`
	RegionSize uint64    `yaml:"region_size"`
	Module     string    `yaml:"module,omitempty"`
	Created    time.Time `yaml:"created"`
}

// Key identifies a code region by architecture and content.
func Key(goarch string, code []byte) string {
	return fmt.Sprintf("%s-%016x", goarch, xxh3.Hash(code))
}

// Cache is a small YAML-backed map from Key to Entry.
type Cache struct {
	path   string
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[string]Entry
}

// Open reads the cache in dir. A missing or unreadable file gives an empty
// cache.
func Open(dir string, logger zerolog.Logger) *Cache {
	c := &Cache{
		path:    filepath.Join(dir, FileName),
		logger:  logger.With().Str("component", "scancache").Logger(),
		entries: map[string]Entry{},
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn().Err(err).Msg("Cannot read scan cache")
		}
		return c
	}
	if err := yaml.Unmarshal(data, &c.entries); err != nil || c.entries == nil {
		c.logger.Warn().Err(err).Msg("Ignoring corrupt scan cache")
		c.entries = map[string]Entry{}
	}
	return c
}

// Get returns the entry for key if it fits a region of regionSize bytes.
func (c *Cache) Get(key string, regionSize uint64) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	if e.RegionSize != regionSize || e.Function >= regionSize || e.Marker >= regionSize || e.Function >= e.Marker {
		c.logger.Debug().Str("key", key).Msg("Discarding stale scan cache entry")
		delete(c.entries, key)
		return Entry{}, false
	}
	return e, true
}

// Put stores e under key and rewrites the file.
func (c *Cache) Put(key string, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.Created.IsZero() {
		e.Created = time.Now().UTC()
	}
	c.entries[key] = e
	c.evictLocked()

	data, err := yaml.Marshal(c.entries)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}

func (c *Cache) evictLocked() {
	for len(c.entries) > MaxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.Created.Before(oldest) {
				oldestKey, oldest = k, e.Created
			}
		}
		c.logger.Debug().Str("key", oldestKey).Msg("Evicting oldest scan cache entry")
		delete(c.entries, oldestKey)
	}
}

// Len returns the number of entries held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
