package engine

import (
	"context"
	"log/slog"
	"strings"
)

const (
	excerptChars = 1200 // target excerpt window size
	snippetChars = 240  // shortened snippet taken from the excerpt head
)

// enrichResults replaces each result's snippet and content with the most
// query-relevant excerpt of the fetched page. Results whose page cannot
// be fetched keep their provider snippet. Fetches run sequentially; the
// set is small and already filtered.
func (m *Manager) enrichResults(ctx context.Context, query string, results []SearchResult) {
	terms := TokenizeQuery(query)
	for i := range results {
		_, text, err := m.loader.Load(ctx, results[i].URL)
		if err != nil {
			slog.Debug("enrichment fetch failed", slog.String("url", results[i].URL), slog.Any("error", err))
			continue
		}
		excerpt := bestExcerpt(text, terms)
		if excerpt == "" {
			continue
		}
		results[i].Content = excerpt
		results[i].Snippet = TruncateRunes(excerpt, snippetChars, "...")
	}
}

// bestExcerpt picks the contiguous block of text with the highest
// query-term hit count. The text is windowed line-wise into overlapping
// blocks of roughly excerptChars; ties keep the earliest block, and a
// text with no term hits yields its head.
func bestExcerpt(text string, terms []string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if len(text) <= excerptChars {
		return text
	}

	blocks := windowBlocks(text, excerptChars)
	if len(terms) == 0 {
		return blocks[0]
	}

	best := blocks[0]
	bestScore := 0.0
	for _, block := range blocks {
		lower := strings.ToLower(block)
		score := 0.0
		for _, term := range terms {
			score += float64(strings.Count(lower, term))
		}
		if score > bestScore {
			best = block
			bestScore = score
		}
	}
	return best
}

// windowBlocks splits text into line-aligned blocks of about size chars,
// overlapping by half a block so a relevant passage is never cut at a
// boundary.
func windowBlocks(text string, size int) []string {
	lines := strings.Split(text, "\n")

	var blocks []string
	var cur []string
	curLen := 0
	for i := 0; i < len(lines); i++ {
		cur = append(cur, lines[i])
		curLen += len(lines[i]) + 1
		if curLen >= size {
			blocks = append(blocks, strings.Join(cur, "\n"))
			// rewind half the block for overlap
			half := curLen / 2
			for len(cur) > 1 && half > 0 {
				half -= len(cur[0]) + 1
				cur = cur[1:]
			}
			curLen = 0
			for _, l := range cur {
				curLen += len(l) + 1
			}
		}
	}
	if curLen > 0 {
		blocks = append(blocks, strings.Join(cur, "\n"))
	}
	if len(blocks) == 0 {
		blocks = []string{text}
	}
	return blocks
}
