package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// LLMClient is the minimal completion surface the feature needs. It is
// satisfied by an adapter in main; tests inject a stub.
type LLMClient interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// WebSearchFeature is the user-facing façade over the manager. With an
// LLM attached it can rephrase a failing query and synthesize a final
// answer; without one it degrades to a plain manager call.
type WebSearchFeature struct {
	manager     *Manager
	llm         LLMClient
	maxRewrites int
}

// NewWebSearchFeature wraps mgr. llm may be nil; maxRewrites <= 0
// disables the rewrite loop even with an LLM present.
func NewWebSearchFeature(mgr *Manager, llm LLMClient, maxRewrites int) *WebSearchFeature {
	return &WebSearchFeature{manager: mgr, llm: llm, maxRewrites: maxRewrites}
}

// Manager exposes the wrapped manager for callers that need the raw
// pipeline (tool handlers, tests).
func (f *WebSearchFeature) Manager() *Manager { return f.manager }

// SearchWeb searches with the query as given, then retries with
// LLM-generated rephrasings if the first attempt comes back empty.
// The returned execution keeps the query that actually succeeded.
func (f *WebSearchFeature) SearchWeb(ctx context.Context, query string, maxResults int, providerOverride string) *SearchExecution {
	exec := f.manager.Search(ctx, query, maxResults, providerOverride)
	if exec.Success || f.llm == nil || f.maxRewrites <= 0 {
		f.synthesize(ctx, exec)
		return exec
	}

	tried := map[string]bool{strings.TrimSpace(query): true}
	for i := 0; i < f.maxRewrites; i++ {
		rewritten := f.rewriteQuery(ctx, query)
		if rewritten == "" || tried[rewritten] {
			break
		}
		tried[rewritten] = true

		slog.Info("retrying with rewritten query",
			slog.String("original", query), slog.String("rewritten", rewritten))
		retry := f.manager.Search(ctx, rewritten, maxResults, providerOverride)
		if retry.Success {
			f.synthesize(ctx, retry)
			return retry
		}
		exec = retry
	}

	return exec
}

// rewriteQuery asks the LLM for a search-optimized phrasing. Returns ""
// on any trouble so callers can just stop the loop.
func (f *WebSearchFeature) rewriteQuery(ctx context.Context, query string) string {
	metrics.LLMCalls.Add(1)
	raw, err := f.llm.Complete(ctx, "", fmt.Sprintf(keywordsPrompt, query))
	if err != nil {
		metrics.LLMErrors.Add(1)
		slog.Warn("query rewrite failed", slog.Any("error", err))
		return ""
	}
	rewritten := strings.Trim(stripFences(raw), `"`)
	if rewritten == "" || len(rewritten) > 200 {
		return ""
	}
	return rewritten
}

// synthesize fills exec.Answer from the result blocks when no provider
// answer is already present. Failures leave the execution untouched.
func (f *WebSearchFeature) synthesize(ctx context.Context, exec *SearchExecution) {
	if f.llm == nil || !exec.Success || exec.Answer != "" || exec.Prompt == "" {
		return
	}

	metrics.LLMCalls.Add(1)
	raw, err := f.llm.Complete(ctx, "", fmt.Sprintf(synthesizePrompt, exec.Prompt, exec.Query))
	if err != nil {
		metrics.LLMErrors.Add(1)
		slog.Warn("answer synthesis failed", slog.Any("error", err))
		return
	}
	exec.Answer = stripFences(raw)
}
