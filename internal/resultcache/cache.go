package resultcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"log/slog"

	"playtime/internal/hltb"
	"playtime/internal/logging"
)

// Entry is one cached lookup outcome. A nil Record marks a confirmed miss:
// the search ran and found nothing usable.
type Entry struct {
	Record    *hltb.GameRecord `json:"record"`
	WrittenAt time.Time        `json:"written_at"`
}

// Miss reports whether this entry is a confirmed miss.
func (e Entry) Miss() bool { return e.Record == nil }

// Cache provides thread-safe access to the result cache. An empty path
// makes the cache memory-only.
type Cache struct {
	path   string
	ttl    time.Duration
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[int64]Entry
}

// NewCache creates a result cache with the given freshness TTL, loading any
// existing blob from path.
func NewCache(path string, ttl time.Duration, logger *slog.Logger) *Cache {
	logger = logging.NewComponentLogger(logger, "resultcache")
	c := &Cache{
		path:    path,
		ttl:     ttl,
		logger:  logger,
		entries: make(map[int64]Entry),
	}
	if path == "" {
		return c
	}
	if err := c.load(); err != nil {
		logger.Warn("failed to load result cache, starting empty",
			logging.Error(err),
			logging.String("path", path))
	}
	return c
}

// Lookup returns the cached entry for storefrontID if present.
func (c *Cache) Lookup(storefrontID int64) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[storefrontID]
	return entry, ok
}

// Stale reports whether an entry should be refreshed. Misses are always
// stale so they get retried; hits go stale once older than the TTL.
func (c *Cache) Stale(entry Entry) bool {
	if entry.Miss() {
		return true
	}
	return time.Since(entry.WrittenAt) >= c.ttl
}

// Store replaces the whole entry for storefrontID. A nil record stores a
// confirmed miss.
func (c *Cache) Store(storefrontID int64, record *hltb.GameRecord) error {
	if storefrontID <= 0 {
		return fmt.Errorf("storefront id must be positive, got %d", storefrontID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[storefrontID] = Entry{Record: record, WrittenAt: time.Now()}

	if err := c.save(); err != nil {
		return fmt.Errorf("persist result cache: %w", err)
	}

	attrs := []logging.Attr{logging.Int64(logging.FieldStorefrontID, storefrontID)}
	if record != nil {
		attrs = append(attrs, logging.Int64(logging.FieldCatalogID, record.ID))
	} else {
		attrs = append(attrs, logging.String(logging.FieldOutcome, "miss"))
	}
	c.logger.Debug("cached lookup outcome", logging.Args(attrs...)...)
	return nil
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries and deletes the on-disk blob.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int64]Entry)
	if c.path == "" {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove result cache: %w", err)
	}
	return nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var blob map[string]Entry
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("parse result cache: %w", err)
	}

	entries := make(map[int64]Entry, len(blob))
	for key, entry := range blob {
		storefrontID, err := strconv.ParseInt(key, 10, 64)
		if err != nil || storefrontID <= 0 {
			continue
		}
		entries[storefrontID] = entry
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// save persists the blob atomically via temp file. Callers hold c.mu.
func (c *Cache) save() error {
	if c.path == "" {
		return nil
	}

	blob := make(map[string]Entry, len(c.entries))
	for storefrontID, entry := range c.entries {
		blob[strconv.FormatInt(storefrontID, 10)] = entry
	}

	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
