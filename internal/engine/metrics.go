package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	SearchRequests  atomic.Int64
	GoogleRequests  atomic.Int64
	BingRequests    atomic.Int64
	DDGRequests     atomic.Int64
	BraveRequests   atomic.Int64
	TavilyRequests  atomic.Int64
	ExaRequests     atomic.Int64
	SearxngRequests atomic.Int64
	BrowserRequests atomic.Int64
	FetchRequests   atomic.Int64
	FetchErrors     atomic.Int64
	LLMCalls        atomic.Int64
	LLMErrors       atomic.Int64
}

// GetMetrics returns a snapshot of all engine counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"search_requests":  metrics.SearchRequests.Load(),
		"google_requests":  metrics.GoogleRequests.Load(),
		"bing_requests":    metrics.BingRequests.Load(),
		"ddg_requests":     metrics.DDGRequests.Load(),
		"brave_requests":   metrics.BraveRequests.Load(),
		"tavily_requests":  metrics.TavilyRequests.Load(),
		"exa_requests":     metrics.ExaRequests.Load(),
		"searxng_requests": metrics.SearxngRequests.Load(),
		"browser_requests": metrics.BrowserRequests.Load(),
		"fetch_requests":   metrics.FetchRequests.Load(),
		"fetch_errors":     metrics.FetchErrors.Load(),
		"llm_calls":        metrics.LLMCalls.Load(),
		"llm_errors":       metrics.LLMErrors.Load(),
	}
}

var metricKeys = []string{
	"search_requests",
	"google_requests", "bing_requests", "ddg_requests",
	"brave_requests", "tavily_requests", "exa_requests",
	"searxng_requests", "browser_requests",
	"fetch_requests", "fetch_errors",
	"llm_calls", "llm_errors",
}

// FormatMetrics returns counters as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
