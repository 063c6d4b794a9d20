package engine

import (
	"strings"
	"testing"
)

func makeResult(title, u, snippet string) SearchResult {
	return SearchResult{Title: title, URL: u, Snippet: snippet, Source: ProviderGoogle}
}

func TestQualityFilter(t *testing.T) {
	f := NewResultFilter(DefaultFilterConfig())

	t.Run("drops invalid URLs", func(t *testing.T) {
		in := []SearchResult{
			makeResult("A good result title", "not-a-url", "a perfectly reasonable snippet"),
			makeResult("A good result title", "ftp://example.com/x", "a perfectly reasonable snippet"),
			makeResult("A good result title", "https://example.com/x", "a perfectly reasonable snippet"),
		}
		out := f.qualityFilter(in)
		if len(out) != 1 {
			t.Fatalf("expected 1 survivor, got %d", len(out))
		}
		if out[0].URL != "https://example.com/x" {
			t.Errorf("wrong survivor: %s", out[0].URL)
		}
	})

	t.Run("enforces title bounds", func(t *testing.T) {
		in := []SearchResult{
			makeResult("ab", "https://example.com/1", "a perfectly reasonable snippet"),
			makeResult(strings.Repeat("x", 250), "https://example.com/2", "a perfectly reasonable snippet"),
			makeResult("Just right", "https://example.com/3", "a perfectly reasonable snippet"),
		}
		out := f.qualityFilter(in)
		if len(out) != 1 || out[0].URL != "https://example.com/3" {
			t.Fatalf("expected only the well-sized title to survive, got %v", out)
		}
	})

	t.Run("falls back to content when snippet empty", func(t *testing.T) {
		r := SearchResult{
			Title:   "A good result title",
			URL:     "https://example.com/x",
			Content: "long enough extracted page content here",
		}
		out := f.qualityFilter([]SearchResult{r})
		if len(out) != 1 {
			t.Fatalf("expected content to satisfy the body bound, got %d survivors", len(out))
		}
	})

	t.Run("drops spam on two phrase hits", func(t *testing.T) {
		spam := makeResult("Click here to win a prize", "https://spam.example/x", "congratulations, you qualify today")
		ok := makeResult("Click here for the docs", "https://example.com/docs", "installation guide for the library")
		out := f.qualityFilter([]SearchResult{spam, ok})
		if len(out) != 1 || out[0].URL != "https://example.com/docs" {
			t.Fatalf("expected single-phrase result to survive, got %v", out)
		}
	})
}

func TestDedupResults(t *testing.T) {
	a := makeResult("Python Tutorial", "https://example.com/py", "learn python step by step")
	b := makeResult("Python   Tutorial", "https://example.com/py", "learn  python step by step") // whitespace noise
	c := makeResult("Python Tutorial", "https://other.example/py", "learn python step by step")

	out := dedupResults([]SearchResult{a, b, c})
	if len(out) != 2 {
		t.Fatalf("expected 2 unique results, got %d", len(out))
	}
	if out[0].URL != a.URL {
		t.Errorf("first occurrence should win, got %s", out[0].URL)
	}
}

func TestDomainFilter(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.DomainFilter = true
	cfg.BlockedDomains = []string{"pinterest"}
	f := NewResultFilter(cfg)

	in := []SearchResult{
		makeResult("Pinned board result", "https://www.pinterest.com/pin/1", "a perfectly reasonable snippet"),
		makeResult("A real documentation page", "https://docs.example.com/guide", "a perfectly reasonable snippet"),
	}
	out := f.FilterAndRank("guide", in)
	if len(out) != 1 || Hostname(out[0].URL) != "docs.example.com" {
		t.Fatalf("expected blocked domain to be dropped, got %v", out)
	}

	cfg.AllowedDomains = []string{"wikipedia.org"}
	f = NewResultFilter(cfg)
	out = f.FilterAndRank("guide", in)
	if len(out) != 0 {
		t.Fatalf("allow-list should drop everything off-list, got %v", out)
	}
}

func TestRanking(t *testing.T) {
	f := NewResultFilter(DefaultFilterConfig())

	t.Run("title matches outrank snippet matches", func(t *testing.T) {
		snippetHit := makeResult("Some unrelated heading", "https://example.com/a", "the rust borrow checker explained")
		titleHit := makeResult("Rust borrow checker guide", "https://example.com/b", "a perfectly reasonable snippet")
		out := f.FilterAndRank("rust borrow checker", []SearchResult{snippetHit, titleHit})
		if len(out) != 2 {
			t.Fatalf("expected both to survive, got %d", len(out))
		}
		if out[0].URL != titleHit.URL {
			t.Errorf("title hit should rank first, got %s (%.2f vs %.2f)", out[0].URL, out[0].Score, out[1].Score)
		}
	})

	t.Run("adjacent phrase earns bonus", func(t *testing.T) {
		phrase := makeResult("error handling in practice", "https://example.com/a", "a perfectly reasonable snippet")
		scattered := makeResult("handling of every error type", "https://example.com/b", "a perfectly reasonable snippet")
		out := f.FilterAndRank("error handling", []SearchResult{scattered, phrase})
		if out[0].URL != phrase.URL {
			t.Errorf("phrase match should rank first, got %s", out[0].URL)
		}
	})

	t.Run("stopword-only query gives flat scores in original order", func(t *testing.T) {
		a := makeResult("First result title", "https://example.com/a", "a perfectly reasonable snippet")
		b := makeResult("Second result title", "https://example.com/b", "a perfectly reasonable snippet")
		out := f.FilterAndRank("the of and", []SearchResult{a, b})
		if len(out) != 2 {
			t.Fatalf("expected 2 results, got %d", len(out))
		}
		for i, r := range out {
			if r.Score != 1.0 {
				t.Errorf("result %d: expected flat score 1.0, got %.2f", i, r.Score)
			}
		}
		if out[0].URL != a.URL || out[1].URL != b.URL {
			t.Errorf("order should be untouched: %s, %s", out[0].URL, out[1].URL)
		}
	})

	t.Run("ties keep provider order", func(t *testing.T) {
		a := makeResult("kubernetes operators intro", "https://example.com/a", "about kubernetes operators")
		b := makeResult("kubernetes operators intro", "https://example.com/b", "about kubernetes operators")
		out := f.FilterAndRank("kubernetes operators", []SearchResult{a, b})
		if out[0].URL != a.URL {
			t.Errorf("stable sort should keep a first, got %s", out[0].URL)
		}
	})
}

func TestFilterZeroConfigDefaults(t *testing.T) {
	// A zero FilterConfig still dedups and ranks; opting out takes an
	// explicit disable flag.
	var in []SearchResult
	for i := 0; i < 5; i++ {
		in = append(in, makeResult("Go modules reference page", "https://example.com/mod", "how module versions are resolved"))
	}

	f := NewResultFilter(FilterConfig{})
	out := f.FilterAndRank("module versions", in)
	if len(out) != 1 {
		t.Fatalf("expected zero config to dedup, got %d results", len(out))
	}
	if out[0].Score == 0 {
		t.Error("expected zero config to rank and assign a score")
	}

	f = NewResultFilter(FilterConfig{DisableDedup: true})
	if out := f.FilterAndRank("module versions", in); len(out) != 5 {
		t.Fatalf("DisableDedup should keep duplicates, got %d", len(out))
	}
}

func TestDomainFilterAutoEnable(t *testing.T) {
	// Configuring a block list is enough to turn the domain stage on.
	f := NewResultFilter(FilterConfig{BlockedDomains: []string{"pinterest"}})
	in := []SearchResult{
		makeResult("Pinned board result", "https://www.pinterest.com/pin/1", "a perfectly reasonable snippet"),
		makeResult("A real documentation page", "https://docs.example.com/guide", "a perfectly reasonable snippet"),
	}
	out := f.FilterAndRank("guide", in)
	if len(out) != 1 || Hostname(out[0].URL) != "docs.example.com" {
		t.Fatalf("expected block list alone to activate domain filtering, got %v", out)
	}
}

func TestFilterAndRankDuplicates(t *testing.T) {
	// Five identical results collapse to one.
	var in []SearchResult
	for i := 0; i < 5; i++ {
		in = append(in, makeResult("Python tutorial for beginners", "https://example.com/python", "learn python from scratch"))
	}
	f := NewResultFilter(DefaultFilterConfig())
	out := f.FilterAndRank("python", in)
	if len(out) != 1 {
		t.Fatalf("expected exactly 1 result after dedup, got %d", len(out))
	}
}
