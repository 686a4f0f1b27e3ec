package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/deepresearch/internal/assemble"
	"github.com/hyperifyio/deepresearch/internal/backend"
	"github.com/hyperifyio/deepresearch/internal/crawl"
	"github.com/hyperifyio/deepresearch/internal/dispatch"
	"github.com/hyperifyio/deepresearch/internal/metrics"
	"github.com/hyperifyio/deepresearch/internal/search"
	"github.com/hyperifyio/deepresearch/internal/summarize"
)

// ErrBackendUnavailable wraps a per-query backend failure; it is captured
// into the response envelope and never aborts the pipeline (spec §7).
var ErrBackendUnavailable = errors.New("pipeline: backend unavailable")

// RunID identifies one pipeline execution for SearchLog and log
// correlation, grounded on the pack-wide google/uuid usage.
type RunID = uuid.UUID

// NewRunID mints a fresh run identifier.
func NewRunID() RunID { return uuid.New() }

// Pipeline wires the Search Backend Adapter, Dispatcher, Normalizer, Crawl
// Enricher, Summarizer, and Assembler into the state machine described in
// spec §4.9.
type Pipeline struct {
	Adapter    backend.Adapter
	Dispatcher *dispatch.Dispatcher
	Enricher   *crawl.Enricher
	Summarizer *summarize.Summarizer

	SummarizeModel           string
	SummarizeMaxContentChars int
	SummarizeMaxRetries      int

	// state is the current externally-observable machine position; only
	// Done is ever visible outside Run (spec §4.9).
	state State
}

// New wires a Pipeline from its collaborators.
func New(adapter backend.Adapter, dispatcher *dispatch.Dispatcher, enricher *crawl.Enricher, summarizer *summarize.Summarizer) *Pipeline {
	return &Pipeline{
		Adapter:                  adapter,
		Dispatcher:               dispatcher,
		Enricher:                 enricher,
		Summarizer:               summarizer,
		SummarizeModel:           "gpt-4o-mini",
		SummarizeMaxContentChars: 20000,
		SummarizeMaxRetries:      2,
	}
}

// State reports the pipeline's current state machine position.
func (p *Pipeline) State() State { return p.state }

// Run drives the full Planned -> Dispatching -> Normalizing -> Crawling? ->
// Summarizing -> Assembling -> Done state machine for one set of queries,
// returning the assembled output string. Cancellation at any point yields
// whatever partial output has been built so far rather than an empty
// string or a panic (spec §7, property: cancellation-during-summarization
// leaves only completed blocks).
func (p *Pipeline) Run(ctx context.Context, queries []search.Query) (string, error) {
	runID := NewRunID()
	p.state = StatePlanned

	p.state = StateDispatching
	responses := p.Dispatcher.Dispatch(ctx, queries)
	for _, r := range responses {
		metrics.DispatchQueriesTotal.WithLabelValues(outcomeLabel(r)).Inc()
		if r.Failed() {
			log.Warn().Err(fmt.Errorf("%w: %s", ErrBackendUnavailable, r.Error)).Str("query", r.Query).Msg("backend query failed")
		}
	}

	p.state = StateNormalizing
	resultSet, images := Normalize(responses)

	if p.Enricher != nil && !p.Adapter.CrawlsFullContent() {
		p.state = StateCrawling
		p.crawl(ctx, resultSet, &images)
	}

	p.state = StateSummarizing
	p.summarize(ctx, resultSet)

	p.state = StateAssembling
	output := p.assemble(resultSet, images, responses, queries, runID)

	p.state = StateDone
	if err := ctx.Err(); err != nil {
		return output, err
	}
	return output, nil
}

func outcomeLabel(r search.BackendResponse) string {
	if r.Failed() {
		return "error"
	}
	return "success"
}

// crawl enriches every unique URL the adapter didn't already fetch full
// content for, attaching markdown content and harvested images in place.
func (p *Pipeline) crawl(ctx context.Context, resultSet *UniqueResultSet, images *[]ImageRef) {
	urls := resultSet.URLs()
	results := p.Enricher.Enrich(ctx, urls)
	for url, res := range results {
		ur, ok := resultSet.Get(url)
		if !ok {
			continue
		}
		if res.Err != nil {
			continue // crawl failure is non-fatal: the snippet stands in (spec §7)
		}
		ur.RawContent = res.Markdown
		ur.Content = res.Markdown
		for _, img := range res.Images {
			*images = append(*images, ImageRef{ImageURL: img, SourcePageURL: url, SourceTitle: ur.Title, FromCrawl: true})
		}
	}
}

// summarize fans out one Summarizer call per unique URL, aligning results
// positionally by URL (never by slice index, since completion order is
// unspecified) and tolerating cancellation mid-flight: URLs that don't
// finish keep whatever content they already had (spec §7, §4.9).
func (p *Pipeline) summarize(ctx context.Context, resultSet *UniqueResultSet) {
	if p.Summarizer == nil {
		return
	}
	urls := resultSet.URLs()

	g, gctx := errgroup.WithContext(ctx)
	for _, url := range urls {
		url := url
		g.Go(func() error {
			ur, ok := resultSet.Get(url)
			if !ok {
				return nil
			}
			in := summarize.Input{
				URL:             ur.URL,
				Title:           ur.Title,
				Content:         ur.RawContent,
				Snippet:         ur.Snippet,
				MaxContentChars: p.SummarizeMaxContentChars,
				Model:           p.SummarizeModel,
				MaxRetries:      p.SummarizeMaxRetries,
			}
			metrics.SummarizeAttemptsTotal.WithLabelValues("started").Inc()

			if gctx.Err() != nil {
				return nil // cancellation: leave ur.Content as whatever it already is
			}
			out, usedFallback := p.Summarizer.Summarize(gctx, in)
			ur.Content = out.SummaryText
			ur.Processed = true
			if usedFallback {
				metrics.SummarizeAttemptsTotal.WithLabelValues("fallback").Inc()
			} else {
				metrics.SummarizeAttemptsTotal.WithLabelValues("success").Inc()
			}
			return nil // one URL's failure never aborts the fan-out
		})
	}
	_ = g.Wait()
}

func (p *Pipeline) assemble(resultSet *UniqueResultSet, images []ImageRef, responses []search.BackendResponse, queries []search.Query, runID RunID) string {
	urls := resultSet.URLs()
	sources := make([]assemble.SourceBlock, 0, len(urls))
	for _, u := range urls {
		ur, ok := resultSet.Get(u)
		if !ok || !ur.Processed || ur.Content == "" {
			continue
		}
		sources = append(sources, assemble.SourceBlock{Title: ur.Title, URL: ur.URL, Content: ur.Content})
	}

	assembleImages := make([]assemble.Image, 0, len(images))
	for _, img := range images {
		assembleImages = append(assembleImages, assemble.Image{
			ImageURL: img.ImageURL, SourceTitle: img.SourceTitle, SourcePageURL: img.SourcePageURL, FromCrawl: img.FromCrawl,
		})
	}

	queryTexts := make([]string, 0, len(queries))
	for _, q := range queries {
		queryTexts = append(queryTexts, q.Text)
	}

	logData := assemble.LogData{
		Timestamp:    time.Now().UTC(),
		Queries:      queryTexts,
		Parameters:   map[string]any{"run_id": runID.String(), "backend": p.Adapter.Name()},
		RawResponses: responses,
	}

	return assemble.Assemble(sources, assembleImages, logData)
}
