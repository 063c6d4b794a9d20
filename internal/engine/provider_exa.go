package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const exaEndpoint = "https://api.exa.ai/search"

// ExaProvider queries the Exa neural search API.
type ExaProvider struct {
	apiKey   string
	client   *http.Client
	endpoint string
}

func NewExaProvider(apiKey string, client *http.Client) (*ExaProvider, error) {
	if apiKey == "" {
		return nil, errors.New("exa: api key is required")
	}
	return &ExaProvider{apiKey: apiKey, client: client, endpoint: exaEndpoint}, nil
}

func (p *ExaProvider) Name() string { return ProviderExa }

func (p *ExaProvider) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	metrics.ExaRequests.Add(1)

	payload, _ := json.Marshal(map[string]any{
		"query":      query,
		"numResults": maxResults,
		"type":       "auto",
		"contents": map[string]any{
			"text": true,
		},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exa request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("exa status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Results []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
			Text  string `json:"text"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("exa decode: %w", err)
	}

	var results []SearchResult
	for _, r := range parsed.Results {
		if r.URL == "" || r.Title == "" {
			continue
		}
		results = append(results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: TruncateRunes(r.Text, 300, "..."),
			Source:  ProviderExa,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
