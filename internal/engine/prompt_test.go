package engine

import (
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	results := []SearchResult{
		{Title: "First Page", URL: "https://example.com/1", Snippet: "snippet one", Content: "full content one"},
		{Title: "Second Page", URL: "https://example.com/2", Snippet: "snippet two"},
	}

	prompt := BuildPrompt(results)

	if !strings.Contains(prompt, `<result source="https://example.com/1" id="1">`) {
		t.Errorf("missing first block header:\n%s", prompt)
	}
	if !strings.Contains(prompt, `<result source="https://example.com/2" id="2">`) {
		t.Errorf("missing second block header:\n%s", prompt)
	}
	if !strings.Contains(prompt, "full content one") {
		t.Error("content should be preferred over snippet")
	}
	if !strings.Contains(prompt, "snippet two") {
		t.Error("snippet should be the fallback body")
	}
	if strings.Count(prompt, "</result>") != 2 {
		t.Errorf("expected 2 closing tags, got %d", strings.Count(prompt, "</result>"))
	}

	if BuildPrompt(nil) != "" {
		t.Error("empty input must give empty prompt")
	}
}

func TestBuildSources(t *testing.T) {
	results := []SearchResult{
		{Title: "A", URL: "https://example.com/page"},
		{Title: "B", URL: "https://example.com/page"}, // duplicate URL
		{Title: "C", URL: "https://other.example/x"},
		{Title: "D", URL: ""},
	}

	sources := BuildSources(results)
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	if sources[0].URL != "https://example.com/page" || sources[0].Hostname != "example.com" {
		t.Errorf("first source mismatch: %+v", sources[0])
	}
	if sources[1].Hostname != "other.example" {
		t.Errorf("second source mismatch: %+v", sources[1])
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\nplain\n```", "plain"},
		{"no fences", "no fences"},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
