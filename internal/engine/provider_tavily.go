package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilyProvider queries the Tavily search API. Besides results it
// surfaces Tavily's synthesized answer string through the AnswerProvider
// side channel; the manager copies it onto the execution.
type TavilyProvider struct {
	apiKey   string
	client   *http.Client
	endpoint string

	mu         sync.Mutex
	lastAnswer string
}

func NewTavilyProvider(apiKey string, client *http.Client) (*TavilyProvider, error) {
	if apiKey == "" {
		return nil, errors.New("tavily: api key is required")
	}
	return &TavilyProvider{apiKey: apiKey, client: client, endpoint: tavilyEndpoint}, nil
}

func (p *TavilyProvider) Name() string { return ProviderTavily }

// Answer returns the synthesized answer from the most recent call.
func (p *TavilyProvider) Answer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAnswer
}

func (p *TavilyProvider) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	metrics.TavilyRequests.Add(1)

	p.mu.Lock()
	p.lastAnswer = ""
	p.mu.Unlock()

	payload, _ := json.Marshal(map[string]any{
		"query":          query,
		"max_results":    maxResults,
		"include_answer": true,
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
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Answer  string `json:"answer"`
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("tavily decode: %w", err)
	}

	p.mu.Lock()
	p.lastAnswer = parsed.Answer
	p.mu.Unlock()

	var results []SearchResult
	for _, r := range parsed.Results {
		if r.URL == "" || r.Title == "" {
			continue
		}
		results = append(results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Source:  ProviderTavily,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
