package engine

import (
	"fmt"
	"strings"
)

// BuildPrompt renders results as tagged blocks ready to splice into an
// LLM context window. Ids are 1-based and match the order of results.
func BuildPrompt(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, r := range results {
		body := r.Content
		if body == "" {
			body = r.Snippet
		}
		fmt.Fprintf(&sb, "<result source=%q id=\"%d\">\n", r.URL, i+1)
		if r.Title != "" {
			sb.WriteString(r.Title)
			sb.WriteString("\n")
		}
		sb.WriteString(strings.TrimSpace(body))
		sb.WriteString("\n</result>\n")
	}
	return sb.String()
}

// BuildSources produces the citation list for UI display, deduplicated
// by URL with first-occurrence order preserved.
func BuildSources(results []SearchResult) []SourceRef {
	seen := make(map[string]bool, len(results))
	var sources []SourceRef
	for _, r := range results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		sources = append(sources, SourceRef{
			URL:      r.URL,
			Hostname: Hostname(r.URL),
			Type:     "webpage",
		})
	}
	return sources
}

// --- LLM prompt templates — data only, no logic. ---

// keywordsPrompt converts a conversational request into search keywords.
// Args: original query.
const keywordsPrompt = `Rewrite the following request into a concise, search-engine-optimized query.
Output ONLY the rewritten query — no explanation, no punctuation at the end, no quotes.
Keep it under 10 words.

Request: %s`

// synthesizePrompt produces a grounded answer from result blocks.
// Args: result blocks, original query.
const synthesizePrompt = `You are a research assistant. Answer the query using ONLY the search results below.

Rules:
- Plain text, 2-4 sentences, no markdown
- Do NOT invent information not present in the results
- Answer in the SAME LANGUAGE as the query
- If the results do not answer the query, say so in one sentence

%s

Query: %s`

// stripFences removes a markdown code fence the model may wrap its
// output in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
