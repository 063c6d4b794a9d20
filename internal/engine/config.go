package engine

import (
	"net/http"
	"strconv"
	"time"
)

// ProxyConfig is an optional SOCKS5 proxy applied to all outbound calls.
type ProxyConfig struct {
	Host string
	Port int
}

// Addr returns host:port, or "" when no proxy is configured.
func (p ProxyConfig) Addr() string {
	if p.Host == "" || p.Port == 0 {
		return ""
	}
	return p.Host + ":" + strconv.Itoa(p.Port)
}

// Config holds all engine configuration, injected from main.
type Config struct {
	Enabled         bool
	DefaultProvider string // google, duckduckgo, bing, brave_api, tavily_api, exa_api
	TotalResults    int    // default maxResults per search

	SimpleMode           bool // reuse provider snippets, skip enrichment
	VisitSpecificWebsite bool // enable the direct-URL branch
	DisableFallbacks     bool // never try SearXNG or the headless browser

	Timeout      time.Duration // per-request timeout for API providers
	FetchTimeout time.Duration // per-page timeout for content loading
	Proxy        ProxyConfig

	GoogleDomain string // e.g. "google.com", "google.de"
	SearxngURL   string // "" disables the SearXNG fallback
	BingAPIKey   string
	BraveAPIKey  string
	TavilyAPIKey string
	ExaAPIKey    string

	CacheEnabled    bool
	CacheTTL        time.Duration
	CacheMaxEntries int
	RedisURL        string // "" disables the L2 cache tier

	AnalyticsEnabled bool
	AnalyticsDB      string // sqlite path; "" keeps analytics in memory only

	BrowserFallback bool // probe and use headless Chrome as last-resort fallback
	MaxContentChars int  // cap on extracted page text

	Filter FilterConfig

	// Injected clients. HTTPClient serves API providers and SearXNG;
	// BrowserClient serves the scraping providers. Either may be nil and
	// will be constructed by NewManager.
	HTTPClient    *http.Client
	BrowserClient *BrowserClient
}

// withDefaults fills zero-valued fields with working defaults.
func (c Config) withDefaults() Config {
	if c.DefaultProvider == "" {
		c.DefaultProvider = ProviderGoogle
	}
	if c.TotalResults <= 0 {
		c.TotalResults = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 15 * time.Minute
	}
	if c.CacheMaxEntries <= 0 {
		c.CacheMaxEntries = 1000
	}
	if c.GoogleDomain == "" {
		c.GoogleDomain = "google.com"
	}
	if c.MaxContentChars <= 0 {
		c.MaxContentChars = 6000
	}
	c.Filter = c.Filter.withDefaults()
	return c
}
