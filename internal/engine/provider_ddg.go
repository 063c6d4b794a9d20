package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var vqdPatterns = []*regexp.Regexp{
	regexp.MustCompile(`vqd='([^']+)'`),
	regexp.MustCompile(`vqd="([^"]+)"`),
	regexp.MustCompile(`vqd=([a-zA-Z0-9_-]+)`),
}

// ddgResult represents a single DuckDuckGo search result from d.js.
type ddgResult struct {
	T string `json:"t"` // title
	A string `json:"a"` // abstract/content (HTML)
	U string `json:"u"` // URL
	C string `json:"c"` // content URL (alternative)
}

// DDGProvider queries DuckDuckGo using the browser TLS fingerprint.
// Primary path is the HTML lite endpoint (html.duckduckgo.com/html);
// it falls back to the d.js JSON API when HTML parsing fails or comes
// back empty. Exactly one path produces the results of a call.
type DDGProvider struct {
	bc     *BrowserClient
	region string
}

func NewDDGProvider(bc *BrowserClient) *DDGProvider {
	return &DDGProvider{bc: bc, region: "wt-wt"}
}

func (p *DDGProvider) Name() string { return ProviderDDG }

func (p *DDGProvider) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	metrics.DDGRequests.Add(1)

	results, err := p.searchHTML(ctx, query)
	if err == nil && len(results) > 0 {
		slog.Debug("ddg results (html)", slog.Int("count", len(results)))
		return capResults(results, maxResults), nil
	}
	if err != nil {
		slog.Debug("ddg html failed, trying d.js", slog.Any("error", err))
	}

	vqd, err := p.getVQD(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ddg vqd: %w", err)
	}
	results, err = p.searchDJS(ctx, query, vqd)
	if err != nil {
		return nil, fmt.Errorf("ddg d.js: %w", err)
	}

	slog.Debug("ddg results (d.js)", slog.Int("count", len(results)))
	return capResults(results, maxResults), nil
}

// searchHTML queries DDG via the HTML lite endpoint and parses results.
func (p *DDGProvider) searchHTML(ctx context.Context, query string) ([]SearchResult, error) {
	formBody := fmt.Sprintf("q=%s&kl=%s&df=", url.QueryEscape(query), url.QueryEscape(p.region))

	headers := ChromeHeaders()
	headers["referer"] = "https://html.duckduckgo.com/"
	headers["content-type"] = "application/x-www-form-urlencoded"

	data, status, err := p.bc.Do("POST", "https://html.duckduckgo.com/html/", headers, strings.NewReader(formBody))
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("ddg html status %d", status)
	}

	return parseDDGHTML(data)
}

// parseDDGHTML extracts search results from the DDG HTML lite response.
func parseDDGHTML(data []byte) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	var results []SearchResult

	doc.Find(".result, .web-result").Each(func(i int, s *goquery.Selection) {
		link := s.Find("a.result__a, .result__title a, a.result-link").First()
		title := strings.TrimSpace(link.Text())
		href, exists := link.Attr("href")
		if !exists || title == "" {
			return
		}

		// DDG wraps URLs in redirects — extract the actual URL
		href = ddgUnwrapURL(href)
		if href == "" {
			return
		}

		snippet := s.Find(".result__snippet, .result__body").First()

		results = append(results, SearchResult{
			Title:   title,
			URL:     href,
			Snippet: strings.TrimSpace(snippet.Text()),
			Source:  ProviderDDG,
		})
	})

	return results, nil
}

// ddgUnwrapURL extracts the actual URL from DDG redirect wrappers.
// DDG HTML wraps links as: //duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com&rut=...
func ddgUnwrapURL(href string) string {
	if strings.Contains(href, "duckduckgo.com/l/") || strings.Contains(href, "uddg=") {
		if u, err := url.Parse(href); err == nil {
			if uddg := u.Query().Get("uddg"); uddg != "" {
				return uddg
			}
		}
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	return ""
}

// getVQD fetches the VQD token required for the d.js API.
func (p *DDGProvider) getVQD(ctx context.Context, query string) (string, error) {
	u := "https://duckduckgo.com/?q=" + url.QueryEscape(query)

	headers := ChromeHeaders()
	headers["referer"] = "https://duckduckgo.com/"

	data, status, err := p.bc.Do("GET", u, headers, nil)
	if err != nil {
		return "", err
	}
	if status != 200 {
		return "", fmt.Errorf("ddg homepage status %d", status)
	}

	if vqd := extractVQD(string(data)); vqd != "" {
		return vqd, nil
	}
	return "", fmt.Errorf("vqd token not found in response (%d bytes)", len(data))
}

// searchDJS queries DDG via the d.js JSON API (fallback path).
func (p *DDGProvider) searchDJS(ctx context.Context, query, vqd string) ([]SearchResult, error) {
	params := url.Values{
		"q":   {query},
		"vqd": {vqd},
		"kl":  {p.region},
		"df":  {""},
		"l":   {"us-en"},
		"o":   {"json"},
	}
	u := "https://links.duckduckgo.com/d.js?" + params.Encode()

	headers := ChromeHeaders()
	headers["referer"] = "https://duckduckgo.com/"
	headers["accept"] = "application/json, text/javascript, */*; q=0.01"

	data, status, err := p.bc.Do("GET", u, headers, nil)
	if err != nil {
		return nil, err
	}
	if status != 200 && status != 202 {
		return nil, fmt.Errorf("ddg d.js status %d", status)
	}

	return parseDDGResponse(data)
}

// parseDDGResponse extracts search results from a d.js response.
// The response may be JSONP or a raw JSON array.
func parseDDGResponse(data []byte) ([]SearchResult, error) {
	body := strings.TrimSpace(string(data))

	// Strip JSONP wrapper if present: DDGjsonp_xxx({results:[...]})
	if idx := strings.Index(body, "["); idx >= 0 {
		end := strings.LastIndex(body, "]")
		if end > idx {
			body = body[idx : end+1]
		}
	}

	var raw []ddgResult
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("ddg json parse: %w (first 200 bytes: %s)", err, Truncate(body, 200))
	}

	var results []SearchResult
	for _, r := range raw {
		resultURL := r.U
		if resultURL == "" {
			resultURL = r.C
		}
		if resultURL == "" || r.T == "" {
			continue
		}
		// Skip DDG internal/ad entries
		if strings.HasPrefix(resultURL, "https://duckduckgo.com/") {
			continue
		}
		results = append(results, SearchResult{
			Title:   CleanHTML(r.T),
			URL:     resultURL,
			Snippet: CleanHTML(r.A),
			Source:  ProviderDDG,
		})
	}

	return results, nil
}

// extractVQD extracts the VQD token from DDG response HTML.
func extractVQD(body string) string {
	for _, pat := range vqdPatterns {
		if m := pat.FindStringSubmatch(body); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

func capResults(results []SearchResult, maxResults int) []SearchResult {
	if maxResults > 0 && len(results) > maxResults {
		return results[:maxResults]
	}
	return results
}
