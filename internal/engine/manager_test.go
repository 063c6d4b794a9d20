package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// stubProvider returns canned results and counts invocations.
type stubProvider struct {
	name    string
	results []SearchResult
	err     error
	calls   int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(_ context.Context, _ string, _ int) ([]SearchResult, error) {
	s.calls++
	return s.results, s.err
}

// answerStub is a stubProvider that also carries a synthesized answer.
type answerStub struct {
	stubProvider
	answer string
}

func (s *answerStub) Answer() string { return s.answer }

func stubResults(n int, urlPrefix string) []SearchResult {
	var out []SearchResult
	for i := 0; i < n; i++ {
		out = append(out, SearchResult{
			Title:   "Result number " + string(rune('A'+i)),
			URL:     urlPrefix + string(rune('a'+i)),
			Snippet: "a perfectly reasonable snippet for ranking",
			Source:  ProviderGoogle,
		})
	}
	return out
}

// newTestManager builds a manager around stub providers with no real
// network clients. SimpleMode keeps enrichment (and its fetches) off.
func newTestManager(cfg Config, primary Provider) *Manager {
	cfg.SimpleMode = true
	cfg = cfg.withDefaults()
	m := &Manager{
		cfg:       cfg,
		providers: make(map[string]Provider),
		cache:     NewSearchCache(cfg.CacheEnabled, "", cfg.CacheTTL, cfg.CacheMaxEntries),
		filter:    NewResultFilter(cfg.Filter),
		loader:    NewContentLoader(&http.Client{Timeout: time.Second}, time.Second, cfg.MaxContentChars),
	}
	if primary != nil {
		m.providers[primary.Name()] = primary
		if primary.Name() != ProviderGoogle {
			m.providers[ProviderGoogle] = primary
		}
	}
	return m
}

func TestSearchDisabled(t *testing.T) {
	primary := &stubProvider{name: ProviderGoogle, results: stubResults(3, "https://example.com/")}
	m := newTestManager(Config{Enabled: false}, primary)

	exec := m.Search(context.Background(), "anything", 5, "")
	if exec.Success {
		t.Fatal("disabled engine must not succeed")
	}
	if !strings.Contains(exec.Error, "disabled") {
		t.Errorf("error should mention the feature is disabled: %q", exec.Error)
	}
	if primary.calls != 0 {
		t.Errorf("disabled engine must make zero provider calls, got %d", primary.calls)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	m := newTestManager(Config{Enabled: true}, &stubProvider{name: ProviderGoogle})
	exec := m.Search(context.Background(), "   ", 5, "")
	if exec.Success || exec.Error == "" {
		t.Errorf("blank query must fail with an error, got %+v", exec)
	}
}

func TestSearchDirectURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Example Page</title></head><body><article><p>` +
			strings.Repeat("Useful page text for the summary. ", 20) + `</p></article></body></html>`))
	}))
	defer srv.Close()

	primary := &stubProvider{name: ProviderGoogle, results: stubResults(3, "https://example.com/")}
	m := newTestManager(Config{Enabled: true, VisitSpecificWebsite: true}, primary)
	m.loader = NewContentLoader(srv.Client(), time.Second, 6000)

	exec := m.Search(context.Background(), srv.URL+" please summarize", 5, "")
	if !exec.Success {
		t.Fatalf("direct fetch should succeed: %q", exec.Error)
	}
	if exec.Provider != ProviderDirect {
		t.Errorf("provider = %q, want %q", exec.Provider, ProviderDirect)
	}
	for _, r := range exec.Results {
		if r.URL != srv.URL {
			t.Errorf("result URL = %q, want %q", r.URL, srv.URL)
		}
	}
	if primary.calls != 0 {
		t.Errorf("direct branch must not invoke the search provider, got %d calls", primary.calls)
	}
	if exec.Prompt == "" || len(exec.Sources) != 1 {
		t.Errorf("direct branch must build prompt and sources: prompt=%d bytes, sources=%d", len(exec.Prompt), len(exec.Sources))
	}
}

func TestSearchDuplicateCollapse(t *testing.T) {
	dup := SearchResult{
		Title:   "Python tutorial for beginners",
		URL:     "https://example.com/python",
		Snippet: "learn python from scratch today",
		Source:  ProviderGoogle,
	}
	primary := &stubProvider{name: ProviderGoogle, results: []SearchResult{dup, dup, dup, dup, dup}}
	m := newTestManager(Config{Enabled: true}, primary)

	exec := m.Search(context.Background(), "python", 10, "")
	if !exec.Success {
		t.Fatalf("expected success: %q", exec.Error)
	}
	if exec.ResultCount() != 1 {
		t.Errorf("expected exactly 1 result after dedup, got %d", exec.ResultCount())
	}
}

func TestSearchFallbackChain(t *testing.T) {
	primary := &stubProvider{name: ProviderGoogle}
	searxng := &stubProvider{name: ProviderSearxng, results: stubResults(2, "https://searx.example/")}
	browser := &stubProvider{name: ProviderBrowser, results: stubResults(3, "https://browser.example/")}

	m := newTestManager(Config{Enabled: true}, primary)
	m.searxng = searxng
	m.browser = browser

	exec := m.Search(context.Background(), "obscure query terms", 5, "")
	if !exec.Success {
		t.Fatalf("expected fallback success: %q", exec.Error)
	}
	if exec.Provider != ProviderSearxng {
		t.Errorf("provider = %q, want %q", exec.Provider, ProviderSearxng)
	}
	if exec.ResultCount() != 2 {
		t.Errorf("expected the 2 searxng results, got %d", exec.ResultCount())
	}
	if browser.calls != 0 {
		t.Errorf("browser must not be tried when searxng delivers, got %d calls", browser.calls)
	}
}

func TestSearchFallbackExhausted(t *testing.T) {
	primary := &stubProvider{name: ProviderGoogle, err: errors.New("blocked")}
	m := newTestManager(Config{Enabled: true}, primary)

	exec := m.Search(context.Background(), "no hope", 5, "")
	if exec.Success {
		t.Fatal("expected failure with no fallbacks configured")
	}
	if exec.Error != "blocked" {
		t.Errorf("error = %q, want the provider error", exec.Error)
	}
}

func TestSearchProviderCoercion(t *testing.T) {
	primary := &stubProvider{name: ProviderGoogle, results: stubResults(2, "https://example.com/")}
	m := newTestManager(Config{Enabled: true}, primary)

	exec := m.Search(context.Background(), "coerce me", 5, "definitely_not_a_provider")
	if !exec.Success {
		t.Fatalf("expected success via google coercion: %q", exec.Error)
	}
	if exec.Provider != ProviderGoogle {
		t.Errorf("provider = %q, want %q", exec.Provider, ProviderGoogle)
	}
	if primary.calls != 1 {
		t.Errorf("google stub should have been called once, got %d", primary.calls)
	}
}

func TestSearchCacheHit(t *testing.T) {
	primary := &stubProvider{name: ProviderGoogle, results: stubResults(2, "https://example.com/")}
	m := newTestManager(Config{Enabled: true, CacheEnabled: true}, primary)

	first := m.Search(context.Background(), "cache this", 5, "")
	if !first.Success {
		t.Fatalf("first search failed: %q", first.Error)
	}

	second := m.Search(context.Background(), "cache this", 5, "")
	if !second.Success {
		t.Fatalf("second search failed: %q", second.Error)
	}
	if second.Provider != ProviderGoogle+" (cached)" {
		t.Errorf("provider = %q, want cached label", second.Provider)
	}
	if primary.calls != 1 {
		t.Errorf("cache hit must skip the provider, got %d calls", primary.calls)
	}
	if second.Prompt == "" || len(second.Sources) == 0 {
		t.Error("cached execution must still carry prompt and sources")
	}
}

func TestSearchFilteredToNothing(t *testing.T) {
	junk := SearchResult{Title: "ab", URL: "https://example.com/x", Snippet: "tiny", Source: ProviderGoogle}
	primary := &stubProvider{name: ProviderGoogle, results: []SearchResult{junk}}
	m := newTestManager(Config{Enabled: true}, primary)

	exec := m.Search(context.Background(), "quality matters", 5, "")
	if exec.Success {
		t.Fatal("expected failure when filtering empties the set")
	}
	if exec.Error != "no results remained after filtering" {
		t.Errorf("error = %q", exec.Error)
	}
}

func TestSearchAnswerSideChannel(t *testing.T) {
	tav := &answerStub{
		stubProvider: stubProvider{name: ProviderTavily, results: stubResults(2, "https://example.com/")},
		answer:       "The short answer.",
	}
	m := newTestManager(Config{Enabled: true, DefaultProvider: ProviderTavily}, tav)

	exec := m.Search(context.Background(), "question here", 5, "")
	if !exec.Success {
		t.Fatalf("expected success: %q", exec.Error)
	}
	if exec.Answer != "The short answer." {
		t.Errorf("answer = %q", exec.Answer)
	}
}

func TestSearchFallbackDropsPrimaryAnswer(t *testing.T) {
	// Tavily can hand back an answer with zero results; results served
	// by a fallback must not carry it.
	tav := &answerStub{
		stubProvider: stubProvider{name: ProviderTavily},
		answer:       "An answer with no results behind it.",
	}
	searxng := &stubProvider{name: ProviderSearxng, results: stubResults(2, "https://example.com/")}

	m := newTestManager(Config{Enabled: true, DefaultProvider: ProviderTavily}, tav)
	m.searxng = searxng

	exec := m.Search(context.Background(), "question here", 5, "")
	if !exec.Success {
		t.Fatalf("expected fallback success: %q", exec.Error)
	}
	if exec.Provider != ProviderSearxng {
		t.Fatalf("provider = %q, want %q", exec.Provider, ProviderSearxng)
	}
	if exec.Answer != "" {
		t.Errorf("fallback results must not carry the primary's answer, got %q", exec.Answer)
	}
}

func TestSearchMaxResultsTruncation(t *testing.T) {
	primary := &stubProvider{name: ProviderGoogle, results: stubResults(8, "https://example.com/")}
	m := newTestManager(Config{Enabled: true}, primary)

	exec := m.Search(context.Background(), "plenty of results", 3, "")
	if !exec.Success {
		t.Fatalf("expected success: %q", exec.Error)
	}
	if exec.ResultCount() > 3 {
		t.Errorf("expected at most 3 results, got %d", exec.ResultCount())
	}
}

func TestSearchAnalyticsRecorded(t *testing.T) {
	primary := &stubProvider{name: ProviderGoogle, results: stubResults(2, "https://example.com/")}
	m := newTestManager(Config{Enabled: true, CacheEnabled: true}, primary)
	m.analytics = NewSearchAnalytics("")

	m.Search(context.Background(), "first query", 5, "")
	m.Search(context.Background(), "first query", 5, "")
	m.Search(context.Background(), "second query", 5, "")

	stats := m.Stats()
	if stats.TotalSearches != 3 {
		t.Fatalf("expected 3 recorded searches, got %d", stats.TotalSearches)
	}
	if stats.SuccessCount != 3 {
		t.Errorf("expected 3 successes, got %d", stats.SuccessCount)
	}
	if stats.CacheHits != 1 {
		t.Errorf("expected 1 cache hit recorded, got %d", stats.CacheHits)
	}
	if len(stats.TopQueries) == 0 || stats.TopQueries[0].Query != "first query" || stats.TopQueries[0].Count != 2 {
		t.Errorf("top queries wrong: %+v", stats.TopQueries)
	}
}
