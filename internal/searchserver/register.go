package searchserver

import (
	"context"
	"fmt"

	"github.com/anatolykoptev/go-search/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers the search tools on the given MCP server:
// web_search, url_read, search_stats.
func RegisterTools(server *mcp.Server, feature *engine.WebSearchFeature) {
	registerWebSearch(server, feature)
	registerURLRead(server, feature.Manager())
	registerSearchStats(server, feature.Manager())
}

func registerWebSearch(server *mcp.Server, feature *engine.WebSearchFeature) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "web_search",
		Description: "Search the web and return ranked results with query-relevant page excerpts, an LLM-ready prompt block, and a citation list. A query containing URLs reads those pages directly instead of searching. Supports a provider override (google, duckduckgo, bing, brave_api, tavily_api, exa_api).",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input engine.WebSearchInput) (*mcp.CallToolResult, engine.SearchExecution, error) {
		if input.Query == "" {
			return nil, engine.SearchExecution{}, fmt.Errorf("query is required")
		}

		exec := feature.SearchWeb(ctx, input.Query, input.MaxResults, input.Provider)
		return nil, *exec, nil
	})
}

func registerURLRead(server *mcp.Server, mgr *engine.Manager) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "url_read",
		Description: "Fetch a single URL and return its readable text content (boilerplate stripped), truncated to max_length characters.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input engine.URLReadInput) (*mcp.CallToolResult, engine.URLReadOutput, error) {
		out, err := mgr.ReadURL(ctx, input.URL, input.MaxLength)
		if err != nil {
			return nil, engine.URLReadOutput{}, err
		}
		return nil, *out, nil
	})
}

func registerSearchStats(server *mcp.Server, mgr *engine.Manager) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_stats",
		Description: "Return aggregate search analytics (totals, success rate, per-provider counts, top queries) and cache hit/miss counters.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input engine.SearchStatsInput) (*mcp.CallToolResult, engine.SearchStatsOutput, error) {
		out := engine.SearchStatsOutput{Analytics: mgr.Stats()}
		out.CacheHits, out.CacheMisses = mgr.CacheStats()

		top := input.TopQueries
		if top <= 0 {
			top = 5
		}
		if len(out.Analytics.TopQueries) > top {
			out.Analytics.TopQueries = out.Analytics.TopQueries[:top]
		}
		return nil, out, nil
	})
}
