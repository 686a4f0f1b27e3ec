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

// Reference calls the canonical hosted search API as a fallback when neither
// SearchOnly nor SearchAndCrawl is configured; basic parameters only (spec
// §4.1).
type Reference struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	// HTTPCache is the optional on-disk response cache (spec §2/§3). Nil
	// disables caching.
	HTTPCache *cache.HTTPCache
	breaker   *circuit.Breaker
}

// NewReference builds the fallback Reference adapter.
func NewReference(baseURL, apiKey string) *Reference {
	return &Reference{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: NewHTTPClient(180 * time.Second),
		breaker:    circuit.New(circuit.BackendConfig("reference")),
	}
}

func (r *Reference) Name() string           { return "reference" }
func (r *Reference) CrawlsFullContent() bool { return false }
func (r *Reference) Close() error            { return nil }

type referenceRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	Topic      string `json:"topic"`
	APIKey     string `json:"api_key,omitempty"`
}

// Search issues one Reference request.
func (r *Reference) Search(ctx context.Context, q search.Query) search.BackendResponse {
	body := referenceRequest{Query: q.Text, MaxResults: q.MaxResults, Topic: string(q.Topic), APIKey: r.APIKey}

	result, err := r.breaker.Execute(func() (any, error) {
		return r.doSearch(ctx, body)
	})
	if err != nil {
		log.Warn().Err(err).Str("backend", r.Name()).Str("query", q.Text).Msg("search backend call failed")
		return search.BackendResponse{Query: q.Text, Error: err.Error()}
	}
	return result.(search.BackendResponse)
}

func (r *Reference) doSearch(ctx context.Context, body referenceRequest) (search.BackendResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return search.BackendResponse{Query: body.Query, Error: err.Error()}, nil
	}

	raw, status, err := postJSON(ctx, r.HTTPClient, r.HTTPCache, r.BaseURL+"/search", payload, nil)
	if err != nil {
		return search.BackendResponse{Query: body.Query, Error: err.Error()}, nil
	}
	if status >= 400 {
		return search.BackendResponse{Query: body.Query, Error: fmt.Sprintf("reference backend returned status %d", status)}, nil
	}

	var wire tavilyEnvelopeWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return search.BackendResponse{Query: body.Query, Error: err.Error()}, nil
	}

	out := search.BackendResponse{Query: body.Query, Answer: wire.Answer, Images: wire.Images, ResponseTimeSec: wire.ResponseTime}
	for _, res := range wire.Results {
		if res.URL == "" {
			continue
		}
		out.Results = append(out.Results, search.Result{URL: res.URL, Title: res.Title, Snippet: res.Content, Score: res.Score})
	}
	return out, nil
}
