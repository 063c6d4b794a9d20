package engine

import (
	"path/filepath"
	"testing"
	"time"
)

func TestAnalyticsRecordAndStats(t *testing.T) {
	a := NewSearchAnalytics("")
	defer a.Close()

	a.Record(AnalyticsRecord{Query: "golang", Provider: ProviderGoogle, ResultCount: 5, Success: true, FilteredCount: 2, DurationMs: 100})
	a.Record(AnalyticsRecord{Query: "golang", Provider: ProviderDDG, ResultCount: 3, Success: true, CacheHit: true, DurationMs: 300})
	a.Record(AnalyticsRecord{Query: "rust", Provider: ProviderGoogle, ResultCount: 0, Success: false, DurationMs: 50})

	stats := a.Stats()
	if stats.TotalSearches != 3 || stats.SuccessCount != 2 || stats.FailureCount != 1 {
		t.Errorf("counts wrong: %+v", stats)
	}
	if stats.CacheHits != 1 || stats.FilteredOut != 2 {
		t.Errorf("cache/filter aggregates wrong: hits=%d filtered=%d", stats.CacheHits, stats.FilteredOut)
	}
	if stats.AvgDurationMs != 150 {
		t.Errorf("avg duration = %d, want 150", stats.AvgDurationMs)
	}
	if stats.ByProvider[ProviderGoogle] != 2 || stats.ByProvider[ProviderDDG] != 1 {
		t.Errorf("by-provider wrong: %v", stats.ByProvider)
	}
	if len(stats.TopQueries) != 2 || stats.TopQueries[0].Query != "golang" || stats.TopQueries[0].Count != 2 {
		t.Errorf("top queries wrong: %+v", stats.TopQueries)
	}
	if len(stats.Recent) != 3 {
		t.Errorf("recent wrong: %d", len(stats.Recent))
	}
	if stats.Recent[0].Timestamp.IsZero() {
		t.Error("timestamps should be filled in on record")
	}
}

func TestAnalyticsClear(t *testing.T) {
	a := NewSearchAnalytics("")
	defer a.Close()

	a.Record(AnalyticsRecord{Query: "q", Provider: ProviderGoogle, Success: true})
	a.Clear()

	stats := a.Stats()
	if stats.TotalSearches != 0 || len(stats.TopQueries) != 0 {
		t.Errorf("clear left data behind: %+v", stats)
	}
}

func TestAnalyticsSQLitePersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "analytics.db")

	a := NewSearchAnalytics(dbPath)
	if a.db == nil {
		t.Fatal("sqlite should have opened")
	}
	a.Record(AnalyticsRecord{
		Query:       "persist me",
		Provider:    ProviderGoogle,
		ResultCount: 4,
		Success:     true,
		DurationMs:  120,
		Timestamp:   time.Now().UTC(),
	})

	var count int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM searches`).Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 persisted row, got %d", count)
	}

	if err := a.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
