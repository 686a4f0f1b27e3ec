package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/deepresearch/internal/crawl"
	"github.com/hyperifyio/deepresearch/internal/dispatch"
	"github.com/hyperifyio/deepresearch/internal/search"
	"github.com/hyperifyio/deepresearch/internal/summarize"
)

// stubAdapter is a minimal backend.Adapter test double.
type stubAdapter struct {
	name              string
	crawlsFullContent bool
	responses         []search.BackendResponse
	call              int
}

func (s *stubAdapter) Search(ctx context.Context, q search.Query) search.BackendResponse {
	idx := s.call
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.call++
	return s.responses[idx]
}
func (s *stubAdapter) Name() string            { return s.name }
func (s *stubAdapter) Close() error            { return nil }
func (s *stubAdapter) CrawlsFullContent() bool { return s.crawlsFullContent }

// panicBrowser fails the test if the Crawl Enricher is ever invoked; used to
// prove SearchAndCrawl skips the Crawl Enricher stage (spec §4.3).
type panicBrowser struct{ t *testing.T }

func (p *panicBrowser) Fetch(ctx context.Context, url string) ([]byte, error) {
	p.t.Fatalf("crawl enricher must not run when the adapter already crawls full content: %s", url)
	return nil, nil
}

// stubLLMClient returns a fixed structured-output response for every call.
type stubLLMClient struct {
	response string
	delay    time.Duration
	calls    int32
}

func (c *stubLLMClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return openai.ChatCompletionResponse{}, ctx.Err()
		}
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: c.response}}},
	}, nil
}

func TestPipeline_SearchAndCrawlSkipsCrawlEnricher(t *testing.T) {
	adapter := &stubAdapter{
		name:              "search-and-crawl",
		crawlsFullContent: true,
		responses: []search.BackendResponse{{
			Query: "q",
			Results: []search.Result{
				{URL: "https://example.com/a", Title: "A", Snippet: "snippet", RawContent: "full crawled content"},
			},
		}},
	}
	dispatcher := &dispatch.Dispatcher{Adapter: adapter, Delay: time.Millisecond}
	enricher := crawl.New(&panicBrowser{t: t})
	llmClient := &stubLLMClient{response: `{"summary":"ok summary","key_excerpts":"ex"}`}
	summarizer := summarize.New(llmClient, nil)

	p := New(adapter, dispatcher, enricher, summarizer)
	out, err := p.Run(context.Background(), []search.Query{{Text: "q"}})
	if err != nil {
		t.Fatalf("pipeline run: %v", err)
	}
	if p.State() != StateDone {
		t.Fatalf("expected final state Done, got %s", p.State())
	}
	if !strings.Contains(out, "ok summary") {
		t.Fatalf("expected summarized output to appear in assembled text: %q", out)
	}
}

func TestPipeline_BackendFailureDoesNotAbortPipeline(t *testing.T) {
	adapter := &stubAdapter{
		name: "search-only",
		responses: []search.BackendResponse{
			{Query: "q1", Error: "backend down"},
			{Query: "q2", Results: []search.Result{{URL: "https://example.com/b", Title: "B", Snippet: "snippet b"}}},
		},
	}
	dispatcher := &dispatch.Dispatcher{Adapter: adapter, Delay: time.Millisecond}
	llmClient := &stubLLMClient{response: `{"summary":"summary b","key_excerpts":""}`}
	summarizer := summarize.New(llmClient, nil)

	p := New(adapter, dispatcher, nil, summarizer)
	out, err := p.Run(context.Background(), []search.Query{{Text: "q1"}, {Text: "q2"}})
	if err != nil {
		t.Fatalf("pipeline run: %v", err)
	}
	if !strings.Contains(out, "summary b") {
		t.Fatalf("expected the surviving query's result to be assembled: %q", out)
	}
}

func TestPipeline_CancellationDuringSummarizationLeavesPartialOutput(t *testing.T) {
	adapter := &stubAdapter{
		name: "search-only",
		responses: []search.BackendResponse{{
			Query: "q",
			Results: []search.Result{
				{URL: "https://example.com/slow", Title: "Slow", Snippet: "slow snippet", RawContent: "slow content"},
			},
		}},
	}
	dispatcher := &dispatch.Dispatcher{Adapter: adapter, Delay: time.Millisecond}
	llmClient := &stubLLMClient{response: `{"summary":"slow summary","key_excerpts":""}`, delay: 500 * time.Millisecond}
	summarizer := summarize.New(llmClient, nil)

	p := New(adapter, dispatcher, nil, summarizer)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out, err := p.Run(ctx, []search.Query{{Text: "q"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if out == "" {
		t.Fatal("expected partial output even on cancellation, got empty string")
	}
	if p.State() != StateDone {
		t.Fatalf("expected state to still reach Done despite cancellation, got %s", p.State())
	}
	// The URL's summarization job had already started before the deadline
	// hit mid-call, so it still counts as processed (Property 7's
	// fallback-to-snippet), and must still be assembled and counted.
	if got := strings.Count(out, "--- SOURCE "); got != 1 {
		t.Fatalf("expected the in-flight URL's fallback content to still be assembled as 1 source block, got %d\noutput:\n%s", got, out)
	}
	if !strings.Contains(out, `"processed_count":1`) {
		t.Fatalf("expected processed_count=1 in the embedded search log, got:\n%s", out)
	}
	if !strings.Contains(out, "slow snippet") {
		t.Fatalf("expected the fallback snippet content in the assembled block, got:\n%s", out)
	}
}

// TestPipeline_SummarizeSkipsURLsWhenContextAlreadyCancelled proves that a
// URL whose summarization job never started because the context was already
// done is left unprocessed (spec §4.9 Property 9): distinct from the
// fallback-after-starting case above, this never reaches the Summarizer at
// all, so it must never be assembled into output or counted in
// processed_count.
func TestPipeline_SummarizeSkipsURLsWhenContextAlreadyCancelled(t *testing.T) {
	resultSet := NewUniqueResultSet()
	for i := 0; i < 6; i++ {
		resultSet.Add("q", search.Result{
			URL:     fmt.Sprintf("https://example.com/%d", i),
			Title:   fmt.Sprintf("T%d", i),
			Snippet: fmt.Sprintf("snippet %d", i),
		})
	}

	llmClient := &stubLLMClient{response: `{"summary":"should never be produced","key_excerpts":""}`}
	summarizer := summarize.New(llmClient, nil)
	p := &Pipeline{Summarizer: summarizer, SummarizeModel: "m", SummarizeMaxRetries: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already done before summarize ever looks at it

	p.summarize(ctx, resultSet)

	for _, u := range resultSet.URLs() {
		ur, ok := resultSet.Get(u)
		if !ok {
			t.Fatalf("missing result for %s", u)
		}
		if ur.Processed {
			t.Fatalf("expected %s to remain unprocessed with an already-cancelled context", u)
		}
		if ur.Content != ur.Snippet {
			t.Fatalf("expected %s content to remain the pre-filled snippet, got %q", u, ur.Content)
		}
	}
	if n := atomic.LoadInt32(&llmClient.calls); n != 0 {
		t.Fatalf("expected zero summarizer calls when the context was already cancelled, got %d", n)
	}
}

// TestPipeline_AssembleExcludesUnprocessedSources is the direct regression
// test for S7 (scenario: 6 unique URLs, 3 complete summarization, 3 don't):
// assemble must emit exactly the completed subset and report that count as
// processed_count, never conflating it with the total UniqueResultSet size.
func TestPipeline_AssembleExcludesUnprocessedSources(t *testing.T) {
	resultSet := NewUniqueResultSet()
	urls := make([]string, 6)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/%d", i)
		resultSet.Add("q", search.Result{
			URL:     urls[i],
			Title:   fmt.Sprintf("T%d", i),
			Snippet: fmt.Sprintf("snippet %d", i),
		})
	}
	for i, u := range urls {
		ur, _ := resultSet.Get(u)
		if i < 3 {
			ur.Content = fmt.Sprintf("real summary %d", i)
			ur.Processed = true
		}
		// The remaining 3 keep Processed=false and their Add-time snippet
		// content, simulating summarization that was cancelled before it
		// ever started.
	}

	p := &Pipeline{Adapter: &stubAdapter{name: "search-only"}}
	out := p.assemble(resultSet, nil, nil, []search.Query{{Text: "q"}}, NewRunID())

	if got := strings.Count(out, "--- SOURCE "); got != 3 {
		t.Fatalf("expected exactly 3 assembled source blocks, got %d\noutput:\n%s", got, out)
	}
	if !strings.Contains(out, `"processed_count":3`) {
		t.Fatalf("expected processed_count=3 in the embedded search log, got:\n%s", out)
	}
	for i := 3; i < 6; i++ {
		if strings.Contains(out, urls[i]) {
			t.Fatalf("unprocessed URL %s must not appear in assembled output", urls[i])
		}
	}
}

