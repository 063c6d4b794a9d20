package engine

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
)

var (
	htmlTagRe = regexp.MustCompile(`<[^>]+>`)
	urlRe     = regexp.MustCompile(`https?://[^\s<>"']+`)
)

// CleanHTML strips HTML tags and trims whitespace.
func CleanHTML(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}

// Truncate returns the first n bytes of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for UTF-8 (Cyrillic, CJK, emoji).
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// ExtractURLs pulls http(s) URLs out of free text, preserving order.
// Trailing punctuation that is never part of a URL is stripped.
func ExtractURLs(text string) []string {
	matches := urlRe.FindAllString(text, -1)
	var out []string
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?)")
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// Hostname returns the host part of rawURL, or "" when unparseable.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// stopWords are query tokens that carry no ranking signal.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "of": true, "to": true, "in": true,
	"for": true, "on": true, "with": true, "at": true, "by": true,
	"from": true, "as": true, "it": true, "its": true, "this": true,
	"that": true, "these": true, "those": true, "what": true,
	"which": true, "who": true, "how": true, "when": true,
	"where": true, "why": true, "can": true, "will": true,
	"do": true, "does": true, "did": true, "not": true,
}

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// TokenizeQuery lowercases the query and returns its usable search terms:
// stop words and tokens of two characters or fewer are dropped.
func TokenizeQuery(query string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(query), -1)
	var terms []string
	for _, tok := range raw {
		if len(tok) <= 2 || stopWords[tok] {
			continue
		}
		terms = append(terms, tok)
	}
	return terms
}

// countOccurrences counts case-insensitive occurrences of term in text.
func countOccurrences(text, term string) float64 {
	if text == "" || term == "" {
		return 0
	}
	return float64(strings.Count(strings.ToLower(text), term))
}
