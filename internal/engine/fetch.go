package engine

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v5"
	readability "github.com/go-shiori/go-readability"
)

// ContentLoader fetches a single URL and extracts its readable text.
// Network and parse failures never escape as errors to the enrichment
// path: Fetch returns nil, Load returns ("", "", err) and the caller
// keeps the provider snippet.
type ContentLoader struct {
	client   *http.Client
	timeout  time.Duration
	maxChars int
}

func NewContentLoader(client *http.Client, timeout time.Duration, maxChars int) *ContentLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxChars <= 0 {
		maxChars = 6000
	}
	return &ContentLoader{client: client, timeout: timeout, maxChars: maxChars}
}

// Fetch returns the raw HTML of rawURL, or nil on any failure.
func (l *ContentLoader) Fetch(ctx context.Context, rawURL string) []byte {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	resp, err := l.fetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := readResponseBody(resp)
	if err != nil {
		return nil
	}
	return body
}

// Load fetches rawURL and extracts its main text content.
// Extraction order: go-readability, then goquery DOM stripping, then a
// regex-based tag strip as the last resort.
func (l *ContentLoader) Load(ctx context.Context, rawURL string) (title, content string, err error) {
	metrics.FetchRequests.Add(1)
	defer func() {
		if err != nil {
			metrics.FetchErrors.Add(1)
		}
	}()

	body := l.Fetch(ctx, rawURL)
	if body == nil {
		return "", "", fmt.Errorf("fetch %s failed", rawURL)
	}

	title, content = l.ExtractText(body, rawURL)
	if content == "" {
		return "", "", fmt.Errorf("no text content in %s", rawURL)
	}
	return title, content, nil
}

// ExtractText turns raw HTML into readable plain text, one non-empty
// line per source line, capped at maxChars.
func (l *ContentLoader) ExtractText(body []byte, rawURL string) (title, content string) {
	parsedURL, _ := url.Parse(rawURL)

	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		text := article.TextContent
		if md, mdErr := htmltomarkdown.ConvertString(article.Content); mdErr == nil && strings.TrimSpace(md) != "" {
			text = md
		}
		return article.Title, l.clampText(text)
	}

	if title, content, err := extractWithGoquery(body); err == nil && content != "" {
		return title, l.clampText(content)
	}

	title, content = extractWithRegex(string(body))
	return title, l.clampText(content)
}

func (l *ContentLoader) clampText(text string) string {
	lines := strings.Split(text, "\n")
	var clean []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			clean = append(clean, line)
		}
	}
	out := strings.Join(clean, "\n")
	if len(out) > l.maxChars {
		out = out[:l.maxChars] + "..."
	}
	return out
}

// extractWithGoquery strips navigation chrome and pulls the main content
// block when readability fails.
func extractWithGoquery(body []byte) (title, content string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", "", err
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		if og, ok := doc.Find("meta[property='og:title']").First().Attr("content"); ok {
			title = strings.TrimSpace(og)
		}
	}

	removeSelectors := []string{
		"script", "style", "noscript", "iframe", "svg",
		"header", "footer", "nav", "aside",
		".advertisement", ".ad", ".sidebar", ".comments",
		"[role=navigation]", "[role=banner]", "[role=contentinfo]",
	}
	doc.Find(strings.Join(removeSelectors, ", ")).Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	sel := doc.Find("article, main, .content, .post-content, .article-content, #content").First()
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}

	content = collapseWhitespace(sel.Text())
	return title, content, nil
}

var (
	titleTagRe  = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	ogTitleRe   = regexp.MustCompile(`(?i)<meta[^>]*property=["']og:title["'][^>]*content=["']([^"']+)["']`)
	dropBlockRe = regexp.MustCompile(`(?is)<(script|style|noscript|header|footer|nav|aside|iframe)[^>]*>.*?</(script|style|noscript|header|footer|nav|aside|iframe)>`)
	spaceRe     = regexp.MustCompile(`[ \t]+`)
)

// extractWithRegex is the last-resort HTML stripper.
func extractWithRegex(html string) (title, content string) {
	if m := titleTagRe.FindStringSubmatch(html); len(m) > 1 {
		title = strings.TrimSpace(m[1])
	}
	if title == "" {
		if m := ogTitleRe.FindStringSubmatch(html); len(m) > 1 {
			title = strings.TrimSpace(m[1])
		}
	}

	html = dropBlockRe.ReplaceAllString(html, "")
	content = collapseWhitespace(htmlTagRe.ReplaceAllString(html, ""))
	return title, content
}

func collapseWhitespace(text string) string {
	text = spaceRe.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	var clean []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			clean = append(clean, line)
		}
	}
	return strings.Join(clean, "\n")
}

// fetchWithRetry performs an HTTP GET with retry on transient statuses,
// using exponential backoff.
func (l *ContentLoader) fetchWithRetry(ctx context.Context, fetchURL string) (*http.Response, error) {
	operation := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		req.Header.Set("User-Agent", RandomUserAgent())
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept-Encoding", "gzip, deflate")

		resp, err := l.client.Do(req)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		if IsRetryableStatus(resp.StatusCode) {
			resp.Body.Close()
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}

		return resp, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 10 * time.Second

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3), backoff.WithMaxElapsedTime(30*time.Second))
}

// readResponseBody reads the response body, handling gzip decompression.
func readResponseBody(resp *http.Response) ([]byte, error) {
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(gz)
	}
	return io.ReadAll(resp.Body)
}
