package overrides

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"playtime/internal/services"
)

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overrides.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}
	return path
}

func TestLoadAndLookup(t *testing.T) {
	path := writeTable(t, `[
		{"app_id": 400, "title": "Portal"},
		{"app_id": 211420, "title": "Dark Souls: Prepare to Die Edition"},
		{"app_id": 1004640, "title": "Final Fantasy Tactics: The Ivalice Chronicles"}
	]`)

	table, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("Len = %d", table.Len())
	}

	title, ok := table.Lookup(1004640)
	if !ok || title != "Final Fantasy Tactics: The Ivalice Chronicles" {
		t.Fatalf("Lookup(1004640) = %q, %v", title, ok)
	}

	if _, ok := table.Lookup(999); ok {
		t.Fatal("expected miss for unknown app id")
	}
}

func TestLoadRejectsUnsortedKeys(t *testing.T) {
	path := writeTable(t, `[
		{"app_id": 500, "title": "B"},
		{"app_id": 400, "title": "A"}
	]`)

	_, err := Load(path, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoadRejectsDuplicateKeys(t *testing.T) {
	path := writeTable(t, `[
		{"app_id": 400, "title": "A"},
		{"app_id": 400, "title": "B"}
	]`)

	_, err := Load(path, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoadRejectsEmptyTitle(t *testing.T) {
	path := writeTable(t, `[{"app_id": 400, "title": "  "}]`)

	_, err := Load(path, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoadMissingFileYieldsEmptyTable(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "absent.json"), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("Len = %d, want 0", table.Len())
	}
	if _, ok := table.Lookup(1); ok {
		t.Fatal("expected miss on empty table")
	}
}
