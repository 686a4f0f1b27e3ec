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

// SearchOnly calls a remote endpoint that returns results, optional
// summaries, and optional img_src, but never raw_content (spec §4.1).
type SearchOnly struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	// HTTPCache is the optional on-disk response cache (spec §2/§3). Nil
	// disables caching.
	HTTPCache *cache.HTTPCache
	breaker   *circuit.Breaker
}

// NewSearchOnly builds a SearchOnly adapter with its own HTTP client and
// circuit breaker, both owned for the lifetime of the pipeline run.
func NewSearchOnly(baseURL, apiKey string) *SearchOnly {
	return &SearchOnly{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: NewHTTPClient(180 * time.Second),
		breaker:    circuit.New(circuit.BackendConfig("search-only")),
	}
}

func (s *SearchOnly) Name() string             { return "search-only" }
func (s *SearchOnly) CrawlsFullContent() bool   { return false }
func (s *SearchOnly) Close() error              { return nil }

type searchOnlyRequest struct {
	Query             string   `json:"query"`
	MaxResults        int      `json:"max_results"`
	IncludeRawContent bool     `json:"include_raw_content"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeImages     bool     `json:"include_images"`
	SearchDepth       string   `json:"search_depth,omitempty"`
	Language          string   `json:"language,omitempty"`
	Categories        []string `json:"categories"`
	TimeRange         string   `json:"time_range,omitempty"`
	DateFrom          string   `json:"date_from,omitempty"`
	DateTo            string   `json:"date_to,omitempty"`
	Days              int      `json:"days,omitempty"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	ExcludeDomains    []string `json:"exclude_domains,omitempty"`
	Engines           []string `json:"engines,omitempty"`
	SafeSearch        string   `json:"safesearch,omitempty"`
	LLMAnswerModel    string   `json:"llm_answer_model,omitempty"`
	Timeout           int      `json:"timeout,omitempty"`
	APIKey            string   `json:"api_key,omitempty"`
}

type tavilyEnvelopeWire struct {
	Query             string   `json:"query"`
	Answer            string   `json:"answer"`
	Images            []string `json:"images"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	ResponseTime      float64  `json:"response_time"`
	Results           []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		RawContent    string  `json:"raw_content"`
		Score         float64 `json:"score"`
		ImgSrc        string  `json:"img_src"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

// Search issues one SearchOnly request. Errors never propagate as Go errors;
// they land in the returned envelope's Error field.
func (s *SearchOnly) Search(ctx context.Context, q search.Query) search.BackendResponse {
	safesearch := q.SafeSearch
	if safesearch == "" {
		safesearch = "strict"
	}
	depth := q.SearchDepth
	if depth == "" {
		depth = search.SearchDepthBasic
	}
	reqBody := searchOnlyRequest{
		Query:             q.Text,
		MaxResults:        q.MaxResults,
		IncludeRawContent: false,
		IncludeAnswer:     q.IncludeAnswer,
		IncludeImages:     q.IncludeImages,
		SearchDepth:       string(depth),
		Language:          q.Language,
		Categories:        categoriesFor(q.Topic),
		TimeRange:         string(defaultTimeRange(q)),
		DateFrom:          q.DateFrom,
		DateTo:            q.DateTo,
		Days:              q.Days,
		IncludeDomains:    q.IncludeDomains,
		ExcludeDomains:    q.ExcludeDomains,
		Engines:           q.Engines,
		SafeSearch:        safesearch,
		LLMAnswerModel:    q.LLMAnswerModel,
		Timeout:           q.RequestTimeout,
		APIKey:            q.APIKey,
	}

	result, err := s.breaker.Execute(func() (any, error) {
		return s.doSearch(ctx, reqBody)
	})
	if err != nil {
		log.Warn().Err(err).Str("backend", s.Name()).Str("query", q.Text).Msg("search backend call failed")
		return search.BackendResponse{Query: q.Text, Error: err.Error()}
	}
	return result.(search.BackendResponse)
}

func (s *SearchOnly) doSearch(ctx context.Context, body searchOnlyRequest) (search.BackendResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return search.BackendResponse{Query: body.Query, Error: err.Error()}, nil
	}
	headers := map[string]string{}
	if s.APIKey != "" {
		headers["Authorization"] = "Bearer " + s.APIKey
	}

	raw, status, err := postJSON(ctx, s.HTTPClient, s.HTTPCache, s.BaseURL+"/search", payload, headers)
	if err != nil {
		return search.BackendResponse{Query: body.Query, Error: err.Error()}, nil
	}
	if status >= 400 {
		return search.BackendResponse{Query: body.Query, Error: fmt.Sprintf("search-only backend returned status %d", status)}, nil
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
			Score:         r.Score,
			ImageSrc:      r.ImgSrc,
			PublishedDate: r.PublishedDate,
		})
	}
	return out, nil
}
