// Package crawl implements the Crawl Enricher (spec §4.3): a parallel,
// per-URL-timeout-bounded pass that turns backend-snippet-only URLs into
// markdown with harvested images. Activated only when the selected search
// backend does not already return full page content.
package crawl

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/deepresearch/internal/metrics"
)

// DefaultTimeout is the per-URL crawl budget (spec §4.3, §6).
const DefaultTimeout = 15 * time.Second

// WordCountThreshold below which the DOM-walk extraction is considered too
// thin and the readability fallback is tried instead (spec §4.3: "word-count
// threshold (10)").
const WordCountThreshold = 10

// defaultExcludedTags mirrors spec §4.3's excluded-tag set.
var defaultExcludedTags = map[string]struct{}{
	"header": {}, "footer": {}, "iframe": {}, "nav": {},
}

// Result is one URL's crawl outcome. A non-nil Err means the URL falls back
// to whatever snippet it already had — crawl failure is never fatal.
type Result struct {
	Markdown string
	Images   []string
	Err      error
}

// Enricher drives the parallel crawl fan-out over a Browser.
type Enricher struct {
	Browser      Browser
	Timeout      time.Duration
	ExcludedTags map[string]struct{}
}

// New builds an Enricher with spec-default timeout and excluded tags.
func New(browser Browser) *Enricher {
	return &Enricher{Browser: browser, Timeout: DefaultTimeout, ExcludedTags: defaultExcludedTags}
}

// Enrich fetches every URL in parallel, each under its own independent
// timeout, and returns a result keyed by URL. Cancellation of ctx propagates
// to every in-flight task; a per-task timeout never extends beyond Timeout
// regardless of other URLs' latencies (spec property 4).
func (e *Enricher) Enrich(ctx context.Context, urls []string) map[string]Result {
	out := make(map[string]Result, len(urls))
	if len(urls) == 0 {
		return out
	}

	type pair struct {
		url string
		res Result
	}
	results := make(chan pair, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			metrics.ActiveCrawls.Inc()
			defer metrics.ActiveCrawls.Dec()

			start := time.Now()
			res := e.crawlOne(gctx, u)
			metrics.CrawlDuration.Observe(time.Since(start).Seconds())
			switch {
			case res.Err == nil:
				metrics.CrawlAttemptsTotal.WithLabelValues("success").Inc()
			case gctx.Err() != nil || errors.Is(res.Err, context.DeadlineExceeded):
				metrics.CrawlAttemptsTotal.WithLabelValues("timeout").Inc()
			default:
				metrics.CrawlAttemptsTotal.WithLabelValues("error").Inc()
			}
			results <- pair{url: u, res: res}
			return nil // a single URL's failure never aborts the group
		})
	}
	_ = g.Wait()
	close(results)

	for p := range results {
		out[p.url] = p.res
	}
	return out
}

func (e *Enricher) crawlOne(ctx context.Context, url string) Result {
	taskCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	log.Debug().Str("url", url).Msg("crawl start")

	body, err := e.Browser.Fetch(taskCtx, url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("crawl failed")
		return Result{Err: err}
	}

	doc := projectMarkdown(body, e.ExcludedTags)
	if wordCount(doc.Text) < WordCountThreshold {
		if alt, err := readabilityFallback(url, body); err == nil && wordCount(alt.Text) > wordCount(doc.Text) {
			doc = alt
		}
	}
	if doc.Text == "" {
		log.Warn().Str("url", url).Msg("crawl produced empty markdown")
		return Result{Err: errEmptyMarkdown}
	}

	images := harvestImages(body, doc.Text)
	log.Debug().Str("url", url).Int("chars", len(doc.Text)).Msg("crawl success")
	return Result{Markdown: doc.Text, Images: images}
}
