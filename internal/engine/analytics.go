package engine

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// AnalyticsRecord is one observed search.
type AnalyticsRecord struct {
	Query         string    `json:"query"`
	Provider      string    `json:"provider"`
	ResultCount   int       `json:"result_count"`
	Success       bool      `json:"success"`
	CacheHit      bool      `json:"cache_hit"`
	FilteredCount int       `json:"filtered_count"`
	DurationMs    int64     `json:"duration_ms"`
	Timestamp     time.Time `json:"timestamp"`
}

// QueryCount pairs a query with how many times it was searched.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// AnalyticsStats is an aggregate snapshot of recorded searches.
type AnalyticsStats struct {
	TotalSearches int               `json:"total_searches"`
	SuccessCount  int               `json:"success_count"`
	FailureCount  int               `json:"failure_count"`
	CacheHits     int               `json:"cache_hits"`
	FilteredOut   int               `json:"filtered_out"`
	AvgDurationMs int64             `json:"avg_duration_ms"`
	ByProvider    map[string]int    `json:"by_provider"`
	TopQueries    []QueryCount      `json:"top_queries"`
	Recent        []AnalyticsRecord `json:"recent"`
}

// SearchAnalytics is a passive observer of search activity. Recording
// never fails a search: persistence errors are logged and swallowed.
type SearchAnalytics struct {
	mu          sync.Mutex
	records     []AnalyticsRecord
	queryCounts map[string]int
	db          *sql.DB
}

// NewSearchAnalytics creates the analytics store. dbPath can be empty
// to keep records in memory only; an unopenable database degrades to
// memory-only with a warning.
func NewSearchAnalytics(dbPath string) *SearchAnalytics {
	a := &SearchAnalytics{queryCounts: make(map[string]int)}
	if dbPath == "" {
		return a
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			slog.Warn("analytics: mkdir failed, persistence disabled", slog.Any("error", err))
			return a
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Warn("analytics: open db failed, persistence disabled", slog.Any("error", err))
		return a
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initAnalyticsSchema(db); err != nil {
		slog.Warn("analytics: init schema failed, persistence disabled", slog.Any("error", err))
		db.Close()
		return a
	}
	a.db = db
	slog.Info("analytics: sqlite persistence enabled", slog.String("path", dbPath))
	return a
}

func initAnalyticsSchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("set wal: %w", err)
	}
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS searches (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		query          TEXT NOT NULL,
		provider       TEXT NOT NULL,
		result_count   INTEGER NOT NULL,
		success        INTEGER NOT NULL,
		cache_hit      INTEGER NOT NULL,
		filtered_count INTEGER NOT NULL,
		duration_ms    INTEGER NOT NULL,
		created_at     TEXT NOT NULL
	)`)
	return err
}

// Record appends one search observation.
func (a *SearchAnalytics) Record(rec AnalyticsRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	a.mu.Lock()
	a.records = append(a.records, rec)
	a.queryCounts[rec.Query]++
	a.mu.Unlock()

	if a.db != nil {
		success := 0
		if rec.Success {
			success = 1
		}
		cacheHit := 0
		if rec.CacheHit {
			cacheHit = 1
		}
		_, err := a.db.Exec(
			`INSERT INTO searches (query, provider, result_count, success, cache_hit, filtered_count, duration_ms, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.Query, rec.Provider, rec.ResultCount, success, cacheHit,
			rec.FilteredCount, rec.DurationMs, rec.Timestamp.Format(time.RFC3339),
		)
		if err != nil {
			slog.Debug("analytics: insert failed", slog.Any("error", err))
		}
	}
}

// Stats aggregates the in-memory records.
func (a *SearchAnalytics) Stats() AnalyticsStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AnalyticsStats{
		TotalSearches: len(a.records),
		ByProvider:    make(map[string]int),
	}

	var totalMs int64
	for _, rec := range a.records {
		if rec.Success {
			stats.SuccessCount++
		} else {
			stats.FailureCount++
		}
		if rec.CacheHit {
			stats.CacheHits++
		}
		stats.FilteredOut += rec.FilteredCount
		stats.ByProvider[rec.Provider]++
		totalMs += rec.DurationMs
	}
	if len(a.records) > 0 {
		stats.AvgDurationMs = totalMs / int64(len(a.records))
	}

	for q, n := range a.queryCounts {
		stats.TopQueries = append(stats.TopQueries, QueryCount{Query: q, Count: n})
	}
	sort.Slice(stats.TopQueries, func(i, j int) bool {
		if stats.TopQueries[i].Count != stats.TopQueries[j].Count {
			return stats.TopQueries[i].Count > stats.TopQueries[j].Count
		}
		return stats.TopQueries[i].Query < stats.TopQueries[j].Query
	})
	if len(stats.TopQueries) > 10 {
		stats.TopQueries = stats.TopQueries[:10]
	}

	recent := a.records
	if len(recent) > 20 {
		recent = recent[len(recent)-20:]
	}
	stats.Recent = append([]AnalyticsRecord(nil), recent...)

	return stats
}

// Clear drops all in-memory records. Persisted rows are kept.
func (a *SearchAnalytics) Clear() {
	a.mu.Lock()
	a.records = nil
	a.queryCounts = make(map[string]int)
	a.mu.Unlock()
}

// Close releases the backing database, if any.
func (a *SearchAnalytics) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
