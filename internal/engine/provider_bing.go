package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const bingAPIEndpoint = "https://api.bing.microsoft.com/v7.0/search"

// BingProvider queries the Bing Web Search API when a key is configured
// and falls back to scraping the HTML results page otherwise (or when the
// API yields nothing).
type BingProvider struct {
	apiKey   string
	bc       *BrowserClient
	client   *http.Client
	endpoint string
}

func NewBingProvider(apiKey string, bc *BrowserClient, client *http.Client) *BingProvider {
	return &BingProvider{
		apiKey:   apiKey,
		bc:       bc,
		client:   client,
		endpoint: bingAPIEndpoint,
	}
}

func (p *BingProvider) Name() string { return ProviderBing }

func (p *BingProvider) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	metrics.BingRequests.Add(1)

	if p.apiKey != "" {
		results, err := p.searchAPI(ctx, query, maxResults)
		if err == nil && len(results) > 0 {
			return results, nil
		}
		if err != nil {
			slog.Debug("bing api failed, falling back to scrape", slog.Any("error", err))
		}
	}

	return p.searchHTML(ctx, query, maxResults)
}

// searchAPI calls the Bing Web Search API.
func (p *BingProvider) searchAPI(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprintf("%d", maxResults))
	params.Set("responseFilter", "Webpages")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("bing api status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		WebPages struct {
			Value []struct {
				Name    string `json:"name"`
				URL     string `json:"url"`
				Snippet string `json:"snippet"`
			} `json:"value"`
		} `json:"webPages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("bing api decode: %w", err)
	}

	var results []SearchResult
	for _, v := range parsed.WebPages.Value {
		if v.URL == "" || v.Name == "" {
			continue
		}
		results = append(results, SearchResult{
			Title:   v.Name,
			URL:     v.URL,
			Snippet: v.Snippet,
			Source:  ProviderBing,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}

// searchHTML scrapes www.bing.com/search. Wrapped in RetryDo because Bing
// rate-limits scrapers aggressively (429) and recovers quickly.
func (p *BingProvider) searchHTML(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	searchURL := fmt.Sprintf("https://www.bing.com/search?q=%s&count=%d&setlang=en",
		url.QueryEscape(query), maxResults)

	results, err := RetryDo(ctx, DefaultRetryConfig, func() ([]SearchResult, error) {
		headers := ChromeHeaders()
		headers["referer"] = "https://www.bing.com/"

		data, status, err := p.bc.Do("GET", searchURL, headers, nil)
		if err != nil {
			return nil, err
		}
		if IsRetryableStatus(status) {
			return nil, statusErr(status)
		}
		if status != 200 {
			return nil, fmt.Errorf("bing status %d", status)
		}
		return parseBingHTML(data)
	})
	if err != nil {
		return nil, err
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// parseBingHTML walks the result list (li.b_algo blocks) with x/net/html.
func parseBingHTML(data []byte) ([]SearchResult, error) {
	root, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("bing html parse: %w", err)
	}

	var results []SearchResult
	for _, block := range findAllNodes(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "li" && hasClass(n, "b_algo")
	}) {
		link := findNode(block, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "a" && nodeAttr(n, "href") != ""
		})
		if link == nil {
			continue
		}
		href := nodeAttr(link, "href")
		title := strings.TrimSpace(nodeText(link))
		if title == "" || !strings.HasPrefix(href, "http") {
			continue
		}

		var snippet string
		if caption := findNode(block, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "b_caption")
		}); caption != nil {
			if para := findNode(caption, func(n *html.Node) bool {
				return n.Type == html.ElementNode && n.Data == "p"
			}); para != nil {
				snippet = strings.TrimSpace(nodeText(para))
			}
		}

		results = append(results, SearchResult{
			Title:   title,
			URL:     href,
			Snippet: snippet,
			Source:  ProviderBing,
		})
	}
	return results, nil
}

// --- x/net/html tree helpers ---

func findAllNodes(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
			return // do not descend into matched blocks
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func findNode(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if match(n) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

func nodeAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(nodeAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
