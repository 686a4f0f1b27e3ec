package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/deepresearch/internal/cache"
	"github.com/hyperifyio/deepresearch/internal/circuit"
	"github.com/hyperifyio/deepresearch/internal/search"
)

// SearchAndCrawl calls an endpoint that both searches and crawls, returning
// full raw_content per result (spec §4.1). When this adapter is selected,
// the Crawl Enricher must not run (CrawlsFullContent reports true).
type SearchAndCrawl struct {
	BaseURL    string
	HTTPClient *http.Client
	// HTTPCache is the optional on-disk response cache (spec §2/§3). Nil
	// disables caching.
	HTTPCache *cache.HTTPCache
	breaker   *circuit.Breaker
}

// NewSearchAndCrawl builds a SearchAndCrawl adapter. Its 300s read timeout
// is longer than SearchOnly's 180s because this backend fetches full pages
// itself.
func NewSearchAndCrawl(baseURL string) *SearchAndCrawl {
	return &SearchAndCrawl{
		BaseURL:    baseURL,
		HTTPClient: NewHTTPClient(300 * time.Second),
		breaker:    circuit.New(circuit.BackendConfig("search-and-crawl")),
	}
}

func (s *SearchAndCrawl) Name() string           { return "search-and-crawl" }
func (s *SearchAndCrawl) CrawlsFullContent() bool { return true }
func (s *SearchAndCrawl) Close() error            { return nil }

type searchAndCrawlRequest struct {
	Query             string `json:"query"`
	Limit             int    `json:"limit"`
	IncludeRawContent bool   `json:"include_raw_content"`
	Topic             string `json:"topic"`
	Timeout           int    `json:"timeout,omitempty"`
}

// Search issues one SearchAndCrawl request. Errors never propagate as Go
// errors; they land in the returned envelope's Error field.
func (s *SearchAndCrawl) Search(ctx context.Context, q search.Query) search.BackendResponse {
	body := searchAndCrawlRequest{
		Query:             q.Text,
		Limit:             q.MaxResults,
		IncludeRawContent: true,
		Topic:             string(q.Topic),
		Timeout:           q.RequestTimeout,
	}

	result, err := s.breaker.Execute(func() (any, error) {
		return s.doSearch(ctx, body)
	})
	if err != nil {
		log.Warn().Err(err).Str("backend", s.Name()).Str("query", q.Text).Msg("search backend call failed")
		return search.BackendResponse{Query: q.Text, Error: err.Error()}
	}
	return result.(search.BackendResponse)
}

func (s *SearchAndCrawl) doSearch(ctx context.Context, body searchAndCrawlRequest) (search.BackendResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return search.BackendResponse{Query: body.Query, Error: err.Error()}, nil
	}

	raw, status, err := postJSON(ctx, s.HTTPClient, s.HTTPCache, s.BaseURL+"/search", payload, nil)
	if err != nil {
		return search.BackendResponse{Query: body.Query, Error: err.Error()}, nil
	}
	if status >= 400 {
		return search.BackendResponse{Query: body.Query, Error: fmt.Sprintf("search-and-crawl backend returned status %d", status)}, nil
	}

	var wire tavilyEnvelopeWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return search.BackendResponse{Query: body.Query, Error: err.Error()}, nil
	}

	out := search.BackendResponse{
		Query:             body.Query,
		Answer:            wire.Answer,
		Images:            wire.Images,
		FollowUpQuestions: wire.FollowUpQuestions,
		ResponseTimeSec:   wire.ResponseTime,
	}
	for _, r := range wire.Results {
		if r.URL == "" {
			continue
		}
		out.Results = append(out.Results, search.Result{
			URL:           r.URL,
			Title:         r.Title,
			Snippet:       r.Content,
			RawContent:    r.RawContent,
			Score:         r.Score,
			ImageSrc:      r.ImgSrc,
			PublishedDate: r.PublishedDate,
		})
	}
	return out, nil
}
