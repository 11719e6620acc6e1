package overrides

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"log/slog"

	"playtime/internal/logging"
	"playtime/internal/services"
)

// Entry pins a storefront app ID to the exact catalog title to search for,
// bypassing automatic name resolution.
type Entry struct {
	StorefrontID int64  `json:"app_id"`
	Title        string `json:"title"`
}

// Table is the manual override table: a static, sorted mapping from
// storefront app ID to exact catalog title. Entries must arrive sorted
// ascending by app ID with no duplicates; that property is a load-time
// contract, so violations are configuration errors rather than runtime
// conditions.
type Table struct {
	entries []Entry
}

// Load reads the override table from the provided JSON file. A missing file
// yields an empty table; a malformed one is a configuration error.
func Load(path string, logger *slog.Logger) (*Table, error) {
	logger = logging.NewComponentLogger(logger, "overrides")

	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return &Table{}, nil
	}

	data, err := os.ReadFile(trimmed)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Table{}, nil
		}
		return nil, services.Wrap(services.ErrConfiguration, "overrides", "load", trimmed, err)
	}
	if len(data) == 0 {
		return &Table{}, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "overrides", "parse", trimmed, err)
	}

	for i, entry := range entries {
		if entry.StorefrontID <= 0 {
			return nil, services.Wrap(services.ErrConfiguration, "overrides", "validate",
				fmt.Sprintf("entry %d: app_id must be positive", i), nil)
		}
		if strings.TrimSpace(entry.Title) == "" {
			return nil, services.Wrap(services.ErrConfiguration, "overrides", "validate",
				fmt.Sprintf("entry %d (app %d): title must not be empty", i, entry.StorefrontID), nil)
		}
		if i > 0 && entry.StorefrontID <= entries[i-1].StorefrontID {
			return nil, services.Wrap(services.ErrConfiguration, "overrides", "validate",
				fmt.Sprintf("entry %d (app %d): keys must be strictly ascending", i, entry.StorefrontID), nil)
		}
	}

	logger.Info("loaded override table",
		logging.String("path", trimmed),
		logging.Int("count", len(entries)))
	return &Table{entries: entries}, nil
}

// Lookup returns the override title for the given storefront app ID.
func (t *Table) Lookup(storefrontID int64) (string, bool) {
	if t == nil || len(t.entries) == 0 {
		return "", false
	}
	idx := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].StorefrontID >= storefrontID
	})
	if idx < len(t.entries) && t.entries[idx].StorefrontID == storefrontID {
		return t.entries[idx].Title, true
	}
	return "", false
}

// Len reports the number of override entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
