package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Manager owns the provider registry, fallback chain, cache, filter and
// analytics for one engine instance. All state lives here: constructing
// two managers gives two fully independent engines.
type Manager struct {
	cfg       Config
	providers map[string]Provider
	cache     *SearchCache
	analytics *SearchAnalytics
	filter    *ResultFilter
	loader    *ContentLoader

	// Fallback chain, tried in order when the primary returns nothing.
	// Either may be nil (unconfigured, or the startup probe failed).
	searxng Provider
	browser Provider

	browserClose func()
}

// NewManager wires up the engine from cfg. The headless-browser fallback
// is probed once here: if Chrome cannot start, the fallback stays off for
// the life of the manager rather than being retried per search.
func NewManager(cfg Config) (*Manager, error) {
	cfg = cfg.withDefaults()

	bc := cfg.BrowserClient
	if bc == nil {
		var err error
		bc, err = NewBrowserClient(cfg.Proxy.Addr())
		if err != nil {
			return nil, fmt.Errorf("manager: browser client: %w", err)
		}
	}
	apiClient := cfg.HTTPClient
	if apiClient == nil {
		apiClient = newFetchClient(cfg.Timeout, cfg.Proxy.Addr())
	}

	providers, err := buildRegistry(cfg, bc, apiClient)
	if err != nil {
		return nil, err
	}
	if _, ok := providers[cfg.DefaultProvider]; !ok {
		slog.Warn("default provider unavailable, using google",
			slog.String("provider", cfg.DefaultProvider))
		cfg.DefaultProvider = ProviderGoogle
	}

	fetchClient := newFetchClient(cfg.FetchTimeout, cfg.Proxy.Addr())

	m := &Manager{
		cfg:       cfg,
		providers: providers,
		cache:     NewSearchCache(cfg.CacheEnabled, cfg.RedisURL, cfg.CacheTTL, cfg.CacheMaxEntries),
		filter:    NewResultFilter(cfg.Filter),
		loader:    NewContentLoader(fetchClient, cfg.FetchTimeout, cfg.MaxContentChars),
	}
	if cfg.AnalyticsEnabled {
		m.analytics = NewSearchAnalytics(cfg.AnalyticsDB)
	}

	if !cfg.DisableFallbacks {
		if cfg.SearxngURL != "" {
			m.searxng = NewSearxngProvider(cfg.SearxngURL, apiClient)
		}
		if cfg.BrowserFallback {
			bp, err := NewBrowserProvider(cfg.Timeout)
			if err != nil {
				slog.Warn("browser fallback unavailable", slog.Any("error", err))
			} else {
				m.browser = bp
				m.browserClose = bp.Close
			}
		}
	}

	slog.Info("search manager ready",
		slog.String("default_provider", cfg.DefaultProvider),
		slog.Int("providers", len(providers)),
		slog.Bool("searxng", m.searxng != nil),
		slog.Bool("browser", m.browser != nil))
	return m, nil
}

// Close releases the headless browser and the analytics database.
func (m *Manager) Close() error {
	if m.browserClose != nil {
		m.browserClose()
	}
	if m.analytics != nil {
		return m.analytics.Close()
	}
	return nil
}

// resolveProvider maps an override (or the configured default) to a
// registered provider. Unknown or unconfigured names coerce to google.
func (m *Manager) resolveProvider(override string) (string, Provider) {
	name := strings.TrimSpace(strings.ToLower(override))
	if name == "" {
		name = m.cfg.DefaultProvider
	}
	p, ok := m.providers[name]
	if !ok {
		slog.Debug("unknown provider, using google", slog.String("provider", name))
		name = ProviderGoogle
		p = m.providers[name]
	}
	return name, p
}

// Search runs the full pipeline: resolve provider, cache lookup, invoke,
// fall back, filter and rank, enrich, build prompt and sources.
// It always returns a non-nil execution; failures are reported in
// exec.Success and exec.Error, never as a Go error.
func (m *Manager) Search(ctx context.Context, query string, maxResults int, providerOverride string) *SearchExecution {
	query = strings.TrimSpace(query)
	exec := &SearchExecution{Query: query}

	if !m.cfg.Enabled {
		exec.Error = "web search is disabled"
		return exec
	}
	if query == "" {
		exec.Error = "empty query"
		return exec
	}
	if maxResults <= 0 {
		maxResults = m.cfg.TotalResults
	}

	metrics.SearchRequests.Add(1)
	start := time.Now()

	// Direct-URL branch: a query carrying URLs means "read these pages",
	// not "search for this text".
	if m.cfg.VisitSpecificWebsite {
		if urls := ExtractURLs(query); len(urls) > 0 {
			m.searchDirect(ctx, exec, urls, maxResults)
			m.record(exec, start, false, 0)
			return exec
		}
	}

	name, provider := m.resolveProvider(providerOverride)
	exec.Provider = name

	if cached, ok := m.cache.Get(ctx, name, query, maxResults); ok {
		exec.Provider = name + " (cached)"
		exec.Results = cached
		exec.Success = len(cached) > 0
		exec.Prompt = BuildPrompt(cached)
		exec.Sources = BuildSources(cached)
		m.record(exec, start, true, 0)
		return exec
	}

	var results []SearchResult
	err := TrackOperation(ctx, "search/"+name, func(ctx context.Context) error {
		var serr error
		results, serr = provider.Search(ctx, query, maxResults)
		return serr
	})
	if err != nil {
		slog.Warn("provider search failed",
			slog.String("provider", name), slog.Any("error", err))
	}

	if len(results) == 0 {
		results = m.fallback(ctx, exec, query, maxResults)
	}
	if len(results) == 0 {
		if err != nil {
			exec.Error = err.Error()
		} else {
			exec.Error = "no results"
		}
		m.record(exec, start, false, 0)
		return exec
	}

	results = capResults(results, maxResults)
	preFilter := len(results)
	results = m.filter.FilterAndRank(query, results)
	if len(results) == 0 {
		exec.Error = "no results remained after filtering"
		m.record(exec, start, false, preFilter)
		return exec
	}

	if !m.cfg.SimpleMode {
		m.enrichResults(ctx, query, results)
	}

	exec.Results = results
	exec.Success = true
	if exec.Provider == name {
		// A fallback's results must not carry the primary's answer.
		exec.Answer = answerOf(provider)
	}
	exec.Prompt = BuildPrompt(results)
	exec.Sources = BuildSources(results)

	m.cache.Set(ctx, name, query, maxResults, results)
	m.record(exec, start, false, preFilter-len(results))
	return exec
}

// answerOf pulls the side-channel answer from providers that have one.
func answerOf(p Provider) string {
	if ap, ok := p.(AnswerProvider); ok {
		return ap.Answer()
	}
	return ""
}

// fallback tries SearXNG, then the headless browser. The first fallback
// producing results wins and its name replaces exec.Provider.
func (m *Manager) fallback(ctx context.Context, exec *SearchExecution, query string, maxResults int) []SearchResult {
	for _, fb := range []Provider{m.searxng, m.browser} {
		if fb == nil {
			continue
		}
		slog.Info("trying fallback provider",
			slog.String("provider", fb.Name()), slog.String("query", query))
		var results []SearchResult
		err := TrackOperation(ctx, "fallback/"+fb.Name(), func(ctx context.Context) error {
			var serr error
			results, serr = fb.Search(ctx, query, maxResults)
			return serr
		})
		if err != nil {
			slog.Warn("fallback failed",
				slog.String("provider", fb.Name()), slog.Any("error", err))
			continue
		}
		if len(results) > 0 {
			exec.Provider = fb.Name()
			return results
		}
	}
	return nil
}

// searchDirect loads the given URLs instead of searching. Success means
// at least one page came back readable.
func (m *Manager) searchDirect(ctx context.Context, exec *SearchExecution, urls []string, maxResults int) {
	exec.Provider = ProviderDirect
	if len(urls) > maxResults {
		urls = urls[:maxResults]
	}

	for _, u := range urls {
		title, content, err := m.loader.Load(ctx, u)
		if err != nil {
			slog.Warn("direct fetch failed", slog.String("url", u), slog.Any("error", err))
			continue
		}
		if title == "" {
			title = Hostname(u)
		}
		exec.Results = append(exec.Results, SearchResult{
			Title:   title,
			URL:     u,
			Snippet: TruncateRunes(content, snippetChars, "..."),
			Source:  ProviderDirect,
			Content: content,
		})
	}

	if len(exec.Results) == 0 {
		exec.Error = "could not load any of the requested URLs"
		return
	}
	exec.Success = true
	exec.Prompt = BuildPrompt(exec.Results)
	exec.Sources = BuildSources(exec.Results)
}

// record reports the finished execution to analytics. filtered is how
// many results the filter pipeline dropped on this execution.
func (m *Manager) record(exec *SearchExecution, start time.Time, cacheHit bool, filtered int) {
	if m.analytics == nil {
		return
	}
	m.analytics.Record(AnalyticsRecord{
		Query:         exec.Query,
		Provider:      exec.Provider,
		ResultCount:   exec.ResultCount(),
		Success:       exec.Success,
		CacheHit:      cacheHit,
		FilteredCount: filtered,
		DurationMs:    time.Since(start).Milliseconds(),
	})
}

// Stats merges analytics aggregates with cache counters.
func (m *Manager) Stats() AnalyticsStats {
	var stats AnalyticsStats
	if m.analytics != nil {
		stats = m.analytics.Stats()
	}
	return stats
}

// CacheStats exposes the cache hit/miss counters.
func (m *Manager) CacheStats() (hits, misses int64) {
	return m.cache.Stats()
}

// ReadURL fetches one page and returns its extracted text, honoring the
// caller's length cap.
func (m *Manager) ReadURL(ctx context.Context, rawURL string, maxLength int) (*URLReadOutput, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if maxLength <= 0 {
		maxLength = 10000
	}

	title, content, err := m.loader.Load(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}

	out := &URLReadOutput{URL: rawURL, Title: title, Content: content}
	if len(out.Content) > maxLength {
		out.Content = Truncate(out.Content, maxLength)
		out.Truncated = true
	}
	return out, nil
}

// FormatMetrics renders engine counters plus this manager's cache stats
// as plain text for the metrics endpoint.
func (m *Manager) FormatMetrics() string {
	var sb strings.Builder
	sb.WriteString(FormatMetrics())
	hits, misses := m.cache.Stats()
	fmt.Fprintf(&sb, "cache_hits %d\ncache_misses %d\n", hits, misses)
	return sb.String()
}
