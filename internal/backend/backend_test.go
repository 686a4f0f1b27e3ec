package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperifyio/deepresearch/internal/cache"
	"github.com/hyperifyio/deepresearch/internal/search"
)

func TestSearchOnly_ParsesResultsAndAppliesNewsDefaults(t *testing.T) {
	var captured searchOnlyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(tavilyEnvelopeWire{
			Query: captured.Query,
			Results: []struct {
				Title         string  `json:"title"`
				URL           string  `json:"url"`
				Content       string  `json:"content"`
				RawContent    string  `json:"raw_content"`
				Score         float64 `json:"score"`
				ImgSrc        string  `json:"img_src"`
				PublishedDate string  `json:"published_date"`
			}{
				{Title: "A", URL: "https://example.com/a", Content: "snippet a"},
				{Title: "B", URL: "", Content: "missing url, dropped"},
			},
		})
	}))
	defer srv.Close()

	s := NewSearchOnly(srv.URL, "")
	s.HTTPClient = srv.Client()

	resp := s.Search(context.Background(), search.Query{Text: "q", Topic: search.TopicNews, MaxResults: 5})
	if resp.Failed() {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result (missing-url dropped), got %d", len(resp.Results))
	}
	if captured.TimeRange != "month" {
		t.Fatalf("expected default time_range=month for news topic, got %q", captured.TimeRange)
	}
	if len(captured.Categories) != 1 || captured.Categories[0] != "news" {
		t.Fatalf("expected categories=[news], got %v", captured.Categories)
	}
}

func TestSearchAndCrawl_ReturnsRawContentAndReportsCrawlSkip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchAndCrawlRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Limit != 5 {
			t.Errorf("expected limit=5, got %d", req.Limit)
		}
		_ = json.NewEncoder(w).Encode(tavilyEnvelopeWire{
			Query: req.Query,
			Results: []struct {
				Title         string  `json:"title"`
				URL           string  `json:"url"`
				Content       string  `json:"content"`
				RawContent    string  `json:"raw_content"`
				Score         float64 `json:"score"`
				ImgSrc        string  `json:"img_src"`
				PublishedDate string  `json:"published_date"`
			}{
				{Title: "A", URL: "https://example.com/a", Content: "snippet", RawContent: "full page markdown"},
			},
		})
	}))
	defer srv.Close()

	s := NewSearchAndCrawl(srv.URL)
	s.HTTPClient = srv.Client()

	if !s.CrawlsFullContent() {
		t.Fatal("SearchAndCrawl must report CrawlsFullContent=true")
	}
	resp := s.Search(context.Background(), search.Query{Text: "q", MaxResults: 5})
	if resp.Failed() {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	if resp.Results[0].RawContent != "full page markdown" {
		t.Fatalf("expected raw_content populated, got %q", resp.Results[0].RawContent)
	}
}

func TestSearchOnly_HTTPCacheServesSecondIdenticalQueryWithoutANetworkCall(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode(tavilyEnvelopeWire{
			Query: "q",
			Results: []struct {
				Title         string  `json:"title"`
				URL           string  `json:"url"`
				Content       string  `json:"content"`
				RawContent    string  `json:"raw_content"`
				Score         float64 `json:"score"`
				ImgSrc        string  `json:"img_src"`
				PublishedDate string  `json:"published_date"`
			}{{Title: "A", URL: "https://example.com/a", Content: "snippet a"}},
		})
	}))
	defer srv.Close()

	s := NewSearchOnly(srv.URL, "")
	s.HTTPClient = srv.Client()
	s.HTTPCache = &cache.HTTPCache{Dir: t.TempDir()}

	q := search.Query{Text: "q", MaxResults: 5}
	first := s.Search(context.Background(), q)
	if first.Failed() {
		t.Fatalf("unexpected error on first call: %s", first.Error)
	}
	second := s.Search(context.Background(), q)
	if second.Failed() {
		t.Fatalf("unexpected error on second call: %s", second.Error)
	}
	if hits != 1 {
		t.Fatalf("expected the identical second request to be served from cache (1 backend hit), got %d", hits)
	}
	if len(second.Results) != 1 || second.Results[0].URL != "https://example.com/a" {
		t.Fatalf("expected cached response body to parse into the same results, got %+v", second.Results)
	}
}

func TestSearchOnly_NetworkFailureNeverPanicsOrErrors(t *testing.T) {
	s := NewSearchOnly("http://127.0.0.1:0", "")
	resp := s.Search(context.Background(), search.Query{Text: "q", MaxResults: 5})
	if !resp.Failed() {
		t.Fatal("expected envelope Error to be populated on connection failure")
	}
}
