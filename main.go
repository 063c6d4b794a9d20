// go-search — Web Search & Ranking MCP server.
//
// Exposes three MCP tools: web_search, url_read, search_stats.
// Runs as HTTP MCP server or stdio transport.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go-search/internal/engine"
	"github.com/anatolykoptev/go-search/internal/searchserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8890")
)

func main() {
	mgr, err := engine.NewManager(buildConfig())
	if err != nil {
		slog.Error("engine init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer mgr.Close()

	feature := engine.NewWebSearchFeature(mgr, buildLLM(), env.Int("MAX_QUERY_REWRITES", 2))

	slog.Info("starting go-search", slog.String("port", mcpPort))

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go-search",
		Version: version,
	}, nil)

	searchserver.RegisterTools(server, feature)
	slog.Info("tools registered", slog.Int("count", 3))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go-search",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      mgr.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func buildConfig() engine.Config {
	return engine.Config{
		Enabled:         env.Str("SEARCH_ENABLED", "true") == "true",
		DefaultProvider: env.Str("SEARCH_DEFAULT_PROVIDER", "google"),
		TotalResults:    env.Int("SEARCH_TOTAL_RESULTS", 5),

		SimpleMode:           env.Str("SEARCH_SIMPLE_MODE", "false") == "true",
		VisitSpecificWebsite: env.Str("SEARCH_VISIT_WEBSITE", "true") == "true",
		DisableFallbacks:     env.Str("SEARCH_DISABLE_FALLBACKS", "false") == "true",

		Timeout:      env.Duration("SEARCH_TIMEOUT", 15*time.Second),
		FetchTimeout: env.Duration("FETCH_TIMEOUT", 10*time.Second),
		Proxy: engine.ProxyConfig{
			Host: env.Str("PROXY_HOST", ""),
			Port: env.Int("PROXY_PORT", 0),
		},

		GoogleDomain: env.Str("GOOGLE_DOMAIN", "google.com"),
		SearxngURL:   env.Str("SEARXNG_URL", ""),
		BingAPIKey:   env.Str("BING_API_KEY", ""),
		BraveAPIKey:  env.Str("BRAVE_API_KEY", ""),
		TavilyAPIKey: env.Str("TAVILY_API_KEY", ""),
		ExaAPIKey:    env.Str("EXA_API_KEY", ""),

		CacheEnabled:    env.Str("CACHE_ENABLED", "true") == "true",
		CacheTTL:        env.Duration("CACHE_TTL", 15*time.Minute),
		CacheMaxEntries: env.Int("CACHE_MAX_ENTRIES", 1000),
		RedisURL:        env.Str("REDIS_URL", ""),

		AnalyticsEnabled: env.Str("ANALYTICS_ENABLED", "true") == "true",
		AnalyticsDB:      env.Str("ANALYTICS_DB", ""),

		BrowserFallback: env.Str("BROWSER_FALLBACK", "false") == "true",
		MaxContentChars: env.Int("MAX_CONTENT_CHARS", 6000),

		Filter: engine.FilterConfig{
			BlockedDomains: env.List("SEARCH_BLOCKED_DOMAINS", ""),
			AllowedDomains: env.List("SEARCH_ALLOWED_DOMAINS", ""),

			MinTitleLen:   env.Int("FILTER_MIN_TITLE_LEN", 0),
			MaxTitleLen:   env.Int("FILTER_MAX_TITLE_LEN", 0),
			MinContentLen: env.Int("FILTER_MIN_CONTENT_LEN", 0),
			MaxContentLen: env.Int("FILTER_MAX_CONTENT_LEN", 0),

			TitleWeight:   env.Float("FILTER_TITLE_WEIGHT", 0),
			ContentWeight: env.Float("FILTER_CONTENT_WEIGHT", 0),
			QueryWeight:   env.Float("FILTER_QUERY_WEIGHT", 0),

			DisableDedup:   env.Str("FILTER_DISABLE_DEDUP", "false") == "true",
			DisableRanking: env.Str("FILTER_DISABLE_RANKING", "false") == "true",
		},

		HTTPClient: &http.Client{
			Timeout: env.Duration("SEARCH_TIMEOUT", 15*time.Second),
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
}

// buildLLM returns nil when no API key is configured; the feature then
// skips query rewriting and answer synthesis.
func buildLLM() engine.LLMClient {
	apiKey := env.Str("LLM_API_KEY", "")
	if apiKey == "" {
		return nil
	}
	client := llm.NewClient(
		env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		apiKey,
		env.Str("LLM_MODEL", "gemini-2.5-flash"),
		llm.WithFallbackKeys(env.List("LLM_API_KEY_FALLBACKS", "")),
		llm.WithMaxTokens(env.Int("LLM_MAX_TOKENS", 2048)),
		llm.WithTemperature(env.Float("LLM_TEMPERATURE", 0.1)),
		llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	)
	return &llmAdapter{client: client}
}

type llmAdapter struct {
	client *llm.Client
}

func (a *llmAdapter) Complete(ctx context.Context, system, prompt string) (string, error) {
	return a.client.Complete(ctx, system, prompt)
}
