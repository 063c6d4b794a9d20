package engine

import (
	"net/url"
	"sort"
	"strings"
)

// spamPhrases: two or more case-insensitive matches drop the result.
var spamPhrases = []string{
	"click here", "buy now", "limited time", "free download",
	"win a prize", "congratulations", "urgent", "act now",
	"risk free", "guaranteed",
}

// FilterConfig tunes the result filter pipeline.
// QueryWeight is read from configuration but not yet used by the scoring
// formula; it is reserved.
type FilterConfig struct {
	MinTitleLen   int
	MaxTitleLen   int
	MinContentLen int
	MaxContentLen int

	// Dedup and ranking run unless explicitly disabled. The domain
	// stage turns on automatically once either list is configured.
	DisableDedup   bool
	DisableRanking bool
	DomainFilter   bool

	BlockedDomains []string // hostname substring matches drop the result
	AllowedDomains []string // when non-empty, hostname must match one

	TitleWeight   float64
	ContentWeight float64
	QueryWeight   float64
}

const snippetWeight = 0.7
const phraseBonus = 0.5

func (c FilterConfig) withDefaults() FilterConfig {
	if c.MinTitleLen <= 0 {
		c.MinTitleLen = 5
	}
	if c.MaxTitleLen <= 0 {
		c.MaxTitleLen = 200
	}
	if c.MinContentLen <= 0 {
		c.MinContentLen = 20
	}
	if c.MaxContentLen <= 0 {
		c.MaxContentLen = 10000
	}
	if c.TitleWeight == 0 {
		c.TitleWeight = 1.5
	}
	if c.ContentWeight == 0 {
		c.ContentWeight = 1.0
	}
	if len(c.BlockedDomains) > 0 || len(c.AllowedDomains) > 0 {
		c.DomainFilter = true
	}
	return c
}

// DefaultFilterConfig is the zero config with defaults applied: quality
// filtering, dedup, and ranking on; domain filtering off until lists
// are configured.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{}.withDefaults()
}

// ResultFilter runs the quality → dedup → domain → ranking pipeline.
// Stages run strictly in order; a result dropped at any stage never
// reappears.
type ResultFilter struct {
	cfg FilterConfig
}

func NewResultFilter(cfg FilterConfig) *ResultFilter {
	return &ResultFilter{cfg: cfg.withDefaults()}
}

// FilterAndRank applies all enabled stages and returns the survivors,
// ranked when ranking is enabled.
func (f *ResultFilter) FilterAndRank(query string, results []SearchResult) []SearchResult {
	out := f.qualityFilter(results)
	if !f.cfg.DisableDedup {
		out = dedupResults(out)
	}
	if f.cfg.DomainFilter {
		out = f.domainFilter(out)
	}
	if !f.cfg.DisableRanking {
		out = f.rank(query, out)
	}
	return out
}

// qualityFilter drops results with invalid URLs, out-of-bounds title or
// body lengths, and spam-phrase matches.
func (f *ResultFilter) qualityFilter(results []SearchResult) []SearchResult {
	var out []SearchResult
	for _, r := range results {
		if !validResultURL(r.URL) {
			continue
		}
		if len(r.Title) < f.cfg.MinTitleLen || len(r.Title) > f.cfg.MaxTitleLen {
			continue
		}
		body := r.Snippet
		if body == "" {
			body = r.Content
		}
		if len(body) < f.cfg.MinContentLen || len(body) > f.cfg.MaxContentLen {
			continue
		}
		if isSpam(r.Title + " " + body) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func validResultURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isSpam(text string) bool {
	lower := strings.ToLower(text)
	hits := 0
	for _, phrase := range spamPhrases {
		if strings.Contains(lower, phrase) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

// dedupResults keeps the first occurrence of each normalized
// title|snippet|url triple, preserving relative order. Exact-match
// dedup — similar results from different pages both survive.
func dedupResults(results []SearchResult) []SearchResult {
	seen := make(map[string]bool)
	var out []SearchResult
	for _, r := range results {
		key := normalizeForDedup(r.Title) + "|" + normalizeForDedup(r.Snippet) + "|" + normalizeForDedup(r.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func normalizeForDedup(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// domainFilter drops blocked hostnames and, when an allow-list is set,
// anything not on it.
func (f *ResultFilter) domainFilter(results []SearchResult) []SearchResult {
	var out []SearchResult
	for _, r := range results {
		host := strings.ToLower(Hostname(r.URL))
		if host == "" {
			continue
		}
		if matchesAny(host, f.cfg.BlockedDomains) {
			continue
		}
		if len(f.cfg.AllowedDomains) > 0 && !matchesAny(host, f.cfg.AllowedDomains) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesAny(host string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(host, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// rank scores every result against the query terms and sorts descending.
// Ties keep the original provider order. A query with no usable terms
// gives every result a flat 1.0 and leaves the order untouched.
func (f *ResultFilter) rank(query string, results []SearchResult) []SearchResult {
	terms := TokenizeQuery(query)
	if len(terms) == 0 {
		for i := range results {
			results[i].Score = 1.0
		}
		return results
	}

	for i := range results {
		results[i].Score = f.score(terms, &results[i])
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	return results
}

// score = Σ_term(titleWeight·titleCount + 0.7·snippetCount +
// contentWeight·contentCount) + 0.5 per adjacent-term bigram found
// verbatim in title+snippet, all divided by the term count.
func (f *ResultFilter) score(terms []string, r *SearchResult) float64 {
	total := 0.0
	for _, term := range terms {
		total += f.cfg.TitleWeight * countOccurrences(r.Title, term)
		total += snippetWeight * countOccurrences(r.Snippet, term)
		total += f.cfg.ContentWeight * countOccurrences(r.Content, term)
	}

	haystack := strings.ToLower(r.Title + " " + r.Snippet)
	for i := 0; i+1 < len(terms); i++ {
		if strings.Contains(haystack, terms[i]+" "+terms[i+1]) {
			total += phraseBonus
		}
	}

	return total / float64(len(terms))
}
