// Package backend implements the three pluggable search backend adapters
// (SearchOnly, SearchAndCrawl, Reference) behind one Adapter interface and a
// shared Tavily-compatible response envelope.
package backend

import (
	"context"

	"github.com/hyperifyio/deepresearch/internal/search"
)

// Adapter is the polymorphic search-backend capability (spec §4.1).
// Implementations never return an error from Search: network failures, HTTP
// errors, and timeouts are caught and mapped into search.BackendResponse.Error.
type Adapter interface {
	Search(ctx context.Context, q search.Query) search.BackendResponse
	// Name identifies the adapter for logging and metrics.
	Name() string
	// Close releases the adapter's HTTP client / circuit breaker resources.
	Close() error
	// CrawlsFullContent reports whether this adapter already returns full
	// page content in Result.RawContent, meaning the Crawl Enricher must be
	// skipped (spec §4.3).
	CrawlsFullContent() bool
}

// categoriesFor maps a topic to the category list SearchOnly sends (spec
// §4.1: news|finance -> ["news"], else ["general"]).
func categoriesFor(t search.Topic) []string {
	if t == search.TopicNews || t == search.TopicFinance {
		return []string{"news"}
	}
	return []string{"general"}
}

// defaultTimeRange supplies the SearchOnly default: when topic is news or
// finance and no explicit time range was set, use "month".
func defaultTimeRange(q search.Query) search.TimeRange {
	if q.TimeRange != "" {
		return q.TimeRange
	}
	if q.Topic == search.TopicNews || q.Topic == search.TopicFinance {
		return search.TimeRangeMonth
	}
	return ""
}
