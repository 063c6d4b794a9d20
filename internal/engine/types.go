package engine

// --- Core search types ---

// SearchResult is a single web-page reference returned by a provider.
// Score is assigned by the result filter during ranking; zero means unranked.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Source  string  `json:"source"`
	Content string  `json:"content,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// SourceRef is one deduplicated citation entry, suitable for UI display.
type SourceRef struct {
	URL      string `json:"url"`
	Hostname string `json:"hostname"`
	Type     string `json:"type"`
}

// SearchExecution is the complete record of one Search call.
// Prompt holds the LLM-consumable block representation of Results;
// Sources is the matching citation list. Provider may carry a
// " (cached)" suffix or the name of the fallback that produced Results.
type SearchExecution struct {
	Query    string         `json:"query"`
	Provider string         `json:"provider"`
	Success  bool           `json:"success"`
	Results  []SearchResult `json:"results"`
	Prompt   string         `json:"prompt,omitempty"`
	Sources  []SourceRef    `json:"sources,omitempty"`
	Answer   string         `json:"answer,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ResultCount reports how many results survived the pipeline.
func (e *SearchExecution) ResultCount() int { return len(e.Results) }

// --- Tool input/output types (MCP surface) ---

type WebSearchInput struct {
	Query      string `json:"query" jsonschema:"Search query, or one or more URLs to read directly"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Max results to return (default: configured total_results)"`
	Provider   string `json:"provider,omitempty" jsonschema:"Provider override: google, duckduckgo, bing, brave_api, tavily_api, exa_api"`
}

type URLReadInput struct {
	URL       string `json:"url" jsonschema:"URL to fetch"`
	MaxLength int    `json:"max_length,omitempty" jsonschema:"Max characters (default: 10000)"`
}

type URLReadOutput struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

type SearchStatsInput struct {
	TopQueries int `json:"top_queries,omitempty" jsonschema:"How many top queries to include (default: 5)"`
}

type SearchStatsOutput struct {
	Analytics   AnalyticsStats `json:"analytics"`
	CacheHits   int64          `json:"cache_hits"`
	CacheMisses int64          `json:"cache_misses"`
}
