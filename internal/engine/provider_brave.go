package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// BraveProvider queries the Brave Search API. Pure JSON provider: any
// non-2xx status, timeout, or malformed payload yields an empty result.
type BraveProvider struct {
	apiKey   string
	client   *http.Client
	endpoint string
}

// NewBraveProvider fails when the API key is empty; a keyless Brave
// provider is a deployment error, not a runtime condition.
func NewBraveProvider(apiKey string, client *http.Client) (*BraveProvider, error) {
	if apiKey == "" {
		return nil, errors.New("brave: api key is required")
	}
	return &BraveProvider{apiKey: apiKey, client: client, endpoint: braveEndpoint}, nil
}

func (p *BraveProvider) Name() string { return ProviderBrave }

func (p *BraveProvider) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	metrics.BraveRequests.Add(1)

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprintf("%d", maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("brave status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("brave decode: %w", err)
	}

	var results []SearchResult
	for _, r := range parsed.Web.Results {
		if r.URL == "" || r.Title == "" {
			continue
		}
		results = append(results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: CleanHTML(r.Description),
			Source:  ProviderBrave,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
