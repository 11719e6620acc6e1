package resolve

import (
	"testing"

	"playtime/internal/hltb"
)

func searchResults(titles ...string) []hltb.SearchResult {
	results := make([]hltb.SearchResult, 0, len(titles))
	for i, title := range titles {
		results = append(results, hltb.SearchResult{
			Record: hltb.GameRecord{ID: int64(i + 1), Title: title},
		})
	}
	return results
}

func TestSelectBestMatchExactWinsImmediately(t *testing.T) {
	results := searchResults("Hades II", "hades", "Hades Demo")

	sel := selectBestMatch("Hades", results)
	if !sel.ok || !sel.exact {
		t.Fatalf("expected exact selection, got ok=%v exact=%v", sel.ok, sel.exact)
	}
	if sel.best.record.Title != "hades" {
		t.Fatalf("expected case-insensitive exact title, got %q", sel.best.record.Title)
	}
	if len(sel.contenders) != 0 {
		t.Fatalf("exact match should skip distance scoring, got %d contenders", len(sel.contenders))
	}
}

func TestSelectBestMatchMinimumDistance(t *testing.T) {
	results := searchResults("Celeste Classic", "Celeste 64", "Celestia")

	sel := selectBestMatch("Celeste", results)
	if !sel.ok || sel.exact {
		t.Fatalf("expected inexact selection, got ok=%v exact=%v", sel.ok, sel.exact)
	}
	if sel.best.record.Title != "Celestia" {
		t.Fatalf("expected closest title, got %q (distance %d)", sel.best.record.Title, sel.best.distance)
	}
}

func TestSelectBestMatchTieKeepsRelevanceOrder(t *testing.T) {
	// Both candidates sit at distance 2; the API ranked "Portal 2" first.
	results := searchResults("Portal 2", "Portal 3")

	sel := selectBestMatch("Portal", results)
	if !sel.ok {
		t.Fatal("expected a selection")
	}
	if sel.best.record.Title != "Portal 2" {
		t.Fatalf("tie should keep the earlier candidate, got %q", sel.best.record.Title)
	}
	if len(sel.contenders) != 2 {
		t.Fatalf("expected both candidates as contenders, got %d", len(sel.contenders))
	}
}

func TestSelectBestMatchRejectsDistantCandidates(t *testing.T) {
	results := searchResults("Completely Unrelated Title")

	if sel := selectBestMatch("Hollow Knight", results); sel.ok {
		t.Fatalf("expected no acceptable candidate, got %q", sel.best.record.Title)
	}
}

func TestDistanceThresholdScalesWithLength(t *testing.T) {
	cases := []struct {
		query, title string
		want         int
	}{
		{"abc", "def", 5},
		{"short", "also short", 5},
		{"The Legend of Zelda: Breath of the Wild", "zelda", 7},
	}
	for _, tc := range cases {
		if got := distanceThreshold(tc.query, tc.title); got != tc.want {
			t.Errorf("distanceThreshold(%q, %q) = %d, want %d", tc.query, tc.title, got, tc.want)
		}
	}
}
