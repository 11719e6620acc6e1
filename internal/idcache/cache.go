package idcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"log/slog"

	"playtime/internal/config"
	"playtime/internal/logging"
)

// Cache provides thread-safe access to the ID mapping cache. A Cache with
// an empty path is non-functional: lookups miss and writes are no-ops.
type Cache struct {
	path   string
	policy string
	maxAge time.Duration
	logger *slog.Logger

	mu sync.RWMutex
	// Whole-set replacement only; entries are never merged across imports.
	mappings            map[int64]int64
	ownerUserID         int64
	writtenAt           time.Time
	importedThisSession bool
}

// persisted is the on-disk blob layout.
type persisted struct {
	Mappings map[string]int64 `json:"mappings"`
	Metadata struct {
		Timestamp   time.Time `json:"timestamp"`
		OwnerUserID int64     `json:"owner_user_id"`
	} `json:"metadata"`
}

// NewCache creates a cache instance, loading any existing blob from path.
func NewCache(path, policy string, maxAge time.Duration, logger *slog.Logger) *Cache {
	logger = logging.NewComponentLogger(logger, "idcache")
	c := &Cache{
		path:     path,
		policy:   policy,
		maxAge:   maxAge,
		logger:   logger,
		mappings: make(map[int64]int64),
	}
	if path == "" {
		return c
	}
	if err := c.load(); err != nil {
		logger.Warn("failed to load id cache, starting empty",
			logging.Error(err),
			logging.String("path", path))
	}
	return c
}

// Lookup returns the catalog ID mapped to storefrontID, provided the cache
// is valid for the acting user.
func (c *Cache) Lookup(ownerUserID, storefrontID int64) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.validLocked(ownerUserID) {
		return 0, false
	}
	catalogID, ok := c.mappings[storefrontID]
	return catalogID, ok
}

// Valid reports whether the cached mapping set can serve the acting user
// under the configured refresh cadence.
func (c *Cache) Valid(ownerUserID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.validLocked(ownerUserID)
}

func (c *Cache) validLocked(ownerUserID int64) bool {
	if len(c.mappings) == 0 {
		return false
	}
	if c.ownerUserID != ownerUserID {
		return false
	}
	switch c.policy {
	case config.RefreshPolicySession:
		return c.importedThisSession
	default:
		return time.Since(c.writtenAt) < c.maxAge
	}
}

// Reconcile replaces the entire mapping set with the bulk import result and
// stamps it with ownerUserID and the current time. A zero-mapping import is
// a no-op: the upstream cannot distinguish a private profile from an empty
// library, and absence of new data is not evidence the existing cache is
// invalid.
func (c *Cache) Reconcile(mappings map[int64]int64, ownerUserID int64) error {
	if len(mappings) == 0 {
		c.logger.Info("bulk import returned no mappings, keeping existing cache",
			logging.Int64("owner_user_id", ownerUserID))
		return nil
	}

	replacement := make(map[int64]int64, len(mappings))
	for storefrontID, catalogID := range mappings {
		if storefrontID <= 0 || catalogID <= 0 {
			continue
		}
		replacement[storefrontID] = catalogID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.mappings = replacement
	c.ownerUserID = ownerUserID
	c.writtenAt = time.Now()
	c.importedThisSession = true

	if err := c.save(); err != nil {
		return fmt.Errorf("persist id cache: %w", err)
	}

	c.logger.Info("reconciled id cache",
		logging.Int64("owner_user_id", ownerUserID),
		logging.Int("count", len(replacement)))
	return nil
}

// Owner reports the user the current mapping set belongs to, zero when the
// cache is empty. After a process restart this is the owner restored from
// the persisted blob.
func (c *Cache) Owner() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ownerUserID
}

// Len reports the number of cached mappings regardless of validity.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mappings)
}

// Clear removes all mappings and deletes the on-disk blob.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mappings = make(map[int64]int64)
	c.ownerUserID = 0
	c.writtenAt = time.Time{}
	c.importedThisSession = false
	if c.path == "" {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove id cache: %w", err)
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

	var blob persisted
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("parse id cache: %w", err)
	}

	mappings := make(map[int64]int64, len(blob.Mappings))
	for key, catalogID := range blob.Mappings {
		storefrontID, err := strconv.ParseInt(key, 10, 64)
		if err != nil || storefrontID <= 0 || catalogID <= 0 {
			continue
		}
		mappings[storefrontID] = catalogID
	}

	c.mu.Lock()
	c.mappings = mappings
	c.ownerUserID = blob.Metadata.OwnerUserID
	c.writtenAt = blob.Metadata.Timestamp
	c.importedThisSession = false
	c.mu.Unlock()
	return nil
}

// save persists the blob atomically via temp file. Callers hold c.mu.
func (c *Cache) save() error {
	if c.path == "" {
		return nil
	}

	var blob persisted
	blob.Mappings = make(map[string]int64, len(c.mappings))
	for storefrontID, catalogID := range c.mappings {
		blob.Mappings[strconv.FormatInt(storefrontID, 10)] = catalogID
	}
	blob.Metadata.Timestamp = c.writtenAt
	blob.Metadata.OwnerUserID = c.ownerUserID

	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal id cache: %w", err)
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
