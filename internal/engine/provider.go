package engine

import (
	"context"
	"net/http"
)

// Canonical provider names.
const (
	ProviderGoogle  = "google"
	ProviderDDG     = "duckduckgo"
	ProviderBing    = "bing"
	ProviderBrave   = "brave_api"
	ProviderTavily  = "tavily_api"
	ProviderExa     = "exa_api"
	ProviderSearxng = "searxng"
	ProviderBrowser = "browser"
	ProviderDirect  = "direct-url"
)

// Provider turns a text query into ranked web-page references.
// Implementations must not fail hard on ordinary trouble (timeouts, HTTP
// errors, empty pages): they return an empty slice, optionally with an
// error for logs and tests, and let the manager fall back. The only
// permitted hard failure is construction with a broken configuration.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// AnswerProvider is implemented by providers that surface a synthesized
// answer string alongside their results (Tavily).
type AnswerProvider interface {
	Answer() string
}

// buildRegistry constructs the closed provider set for this configuration.
// API-key providers are registered only when their key is present, so an
// override naming an unconfigured provider coerces to google like any
// other unsupported name.
func buildRegistry(cfg Config, bc *BrowserClient, apiClient *http.Client) (map[string]Provider, error) {
	reg := make(map[string]Provider)

	reg[ProviderGoogle] = NewGoogleProvider(bc, cfg.GoogleDomain)
	reg[ProviderDDG] = NewDDGProvider(bc)
	reg[ProviderBing] = NewBingProvider(cfg.BingAPIKey, bc, apiClient)

	if cfg.BraveAPIKey != "" {
		p, err := NewBraveProvider(cfg.BraveAPIKey, apiClient)
		if err != nil {
			return nil, err
		}
		reg[ProviderBrave] = p
	}
	if cfg.TavilyAPIKey != "" {
		p, err := NewTavilyProvider(cfg.TavilyAPIKey, apiClient)
		if err != nil {
			return nil, err
		}
		reg[ProviderTavily] = p
	}
	if cfg.ExaAPIKey != "" {
		p, err := NewExaProvider(cfg.ExaAPIKey, apiClient)
		if err != nil {
			return nil, err
		}
		reg[ProviderExa] = p
	}

	return reg, nil
}
