package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	googlePageSize = 10
	googleMaxPages = 10 // safety cap regardless of maxResults
)

// GoogleProvider scrapes Google web search result pages.
// Pagination walks start=0,10,20… with a politeness delay between pages;
// URLs are deduplicated across pages because Google repeats entries.
type GoogleProvider struct {
	bc      *BrowserClient
	domain  string
	limiter *rate.Limiter
}

// NewGoogleProvider creates a Google scraper for the given google_domain
// (e.g. "google.com").
func NewGoogleProvider(bc *BrowserClient, domain string) *GoogleProvider {
	if domain == "" {
		domain = "google.com"
	}
	return &GoogleProvider{
		bc:      bc,
		domain:  domain,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (p *GoogleProvider) Name() string { return ProviderGoogle }

// Search fetches result pages until maxResults is reached, a page comes
// back empty, or the page cap is hit. Returns whatever was collected so
// far on any mid-pagination failure.
func (p *GoogleProvider) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	metrics.GoogleRequests.Add(1)

	seen := make(map[string]bool)
	var results []SearchResult

	for page := 0; page < googleMaxPages && len(results) < maxResults; page++ {
		if page > 0 {
			if err := p.limiter.Wait(ctx); err != nil {
				return results, nil
			}
			select {
			case <-time.After(googlePageDelay()):
			case <-ctx.Done():
				return results, nil
			}
		}

		pageResults, err := p.fetchPage(ctx, query, page)
		if err != nil {
			slog.Debug("google page fetch failed", slog.Int("page", page), slog.Any("error", err))
			return results, nil
		}
		if len(pageResults) == 0 {
			break
		}

		for _, r := range pageResults {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			results = append(results, r)
			if len(results) >= maxResults {
				break
			}
		}
	}

	return results, nil
}

// googlePageDelay is the politeness gap between result pages. The
// limiter's first token is free, so the 1s floor lives here; jitter
// keeps the gap inside 1-3s.
func googlePageDelay() time.Duration {
	return time.Second + time.Duration(rand.Int64N(int64(2*time.Second)))
}

func (p *GoogleProvider) fetchPage(ctx context.Context, query string, page int) ([]SearchResult, error) {
	searchURL := fmt.Sprintf("https://www.%s/search?q=%s&num=%d&hl=en&pws=0",
		p.domain, url.QueryEscape(query), googlePageSize)
	if page > 0 {
		searchURL += fmt.Sprintf("&start=%d", page*googlePageSize)
	}

	headers := ChromeHeaders()
	headers["referer"] = fmt.Sprintf("https://www.%s/", p.domain)

	data, status, err := p.bc.Do("GET", searchURL, headers, nil)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("google status %d", status)
	}

	return parseGooglePage(data)
}

// parseGooglePage extracts organic results from a Google SERP.
func parseGooglePage(data []byte) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	if isGoogleCaptcha(doc) {
		return nil, fmt.Errorf("google captcha page")
	}

	var results []SearchResult
	doc.Find("div.g, div.tF2Cxc").Each(func(i int, s *goquery.Selection) {
		link := s.Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		href = googleUnwrapURL(href)
		if href == "" || !strings.HasPrefix(href, "http") {
			return
		}

		title := strings.TrimSpace(s.Find("h3").First().Text())
		if title == "" {
			return
		}

		snippet := strings.TrimSpace(
			s.Find("div.VwiC3b, span.st, div[role='doc-subtitle'], .IsZvec").First().Text())

		results = append(results, SearchResult{
			Title:   title,
			URL:     href,
			Snippet: snippet,
			Source:  ProviderGoogle,
		})
	})

	return results, nil
}

// googleUnwrapURL extracts the target from Google redirect links
// (/url?q=https://example.com&sa=...).
func googleUnwrapURL(href string) string {
	if strings.HasPrefix(href, "/url?") {
		if u, err := url.Parse(href); err == nil {
			if q := u.Query().Get("q"); q != "" {
				return q
			}
		}
		return ""
	}
	return href
}

func isGoogleCaptcha(doc *goquery.Document) bool {
	if doc.Find("form#captcha-form, div.g-recaptcha, #recaptcha").Length() > 0 {
		return true
	}
	body := doc.Find("body").Text()
	return strings.Contains(body, "unusual traffic from your computer network")
}
