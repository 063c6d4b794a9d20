package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// SearxngProvider queries a SearXNG instance's JSON API. It is the first
// link of the fallback chain, never a primary provider.
type SearxngProvider struct {
	baseURL string
	client  *http.Client
}

func NewSearxngProvider(baseURL string, client *http.Client) *SearxngProvider {
	return &SearxngProvider{baseURL: baseURL, client: client}
}

func (p *SearxngProvider) Name() string { return ProviderSearxng }

func (p *SearxngProvider) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	metrics.SearxngRequests.Add(1)

	u, err := url.Parse(p.baseURL + "/search")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	// Self-hosted instance, no need to masquerade as a browser.
	req.Header.Set("User-Agent", UserAgentBot)

	resp, err := RetryHTTP(ctx, DefaultRetryConfig, func() (*http.Response, error) {
		return p.client.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng status %d", resp.StatusCode)
	}

	var data struct {
		Results []struct {
			Title   string `json:"title"`
			Content string `json:"content"`
			URL     string `json:"url"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("searxng decode: %w", err)
	}

	var results []SearchResult
	for _, r := range data.Results {
		if r.URL == "" || r.Title == "" {
			continue
		}
		results = append(results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Source:  ProviderSearxng,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
