// Package pipeline implements the Deep Research Search Pipeline's state
// machine (spec §4.9): the orchestrator that wires Search Backend, Dispatcher,
// Normalizer, Crawl Enricher, Summarizer, and Assembler together, plus the
// data types shared across that wiring (UniqueResultSet, ImageRef, SearchLog).
package pipeline

import (
	"time"

	"github.com/hyperifyio/deepresearch/internal/search"
)

// State names the pipeline's externally-invisible state machine positions.
// Only Done is ever observable outside the pipeline (spec §4.9).
type State string

const (
	StatePlanned     State = "Planned"
	StateDispatching State = "Dispatching"
	StateNormalizing State = "Normalizing"
	StateCrawling    State = "Crawling"
	StateSummarizing State = "Summarizing"
	StateAssembling  State = "Assembling"
	StateDone        State = "Done"
)

// UniqueResult is a normalized Result keyed by its (already-canonicalized)
// URL, carrying the query that first surfaced it and whatever content the
// crawl/summarize stages have attached so far.
type UniqueResult struct {
	URL           string
	OriginQuery   string
	Title         string
	Snippet       string
	RawContent    string // filled by SearchAndCrawl or the Crawl Enricher
	Content       string // final per-source content: summary, else snippet (spec §4.4)
	Score         float64
	PublishedDate string
	// Processed reports whether the Summarizer actually ran for this URL —
	// set once Summarize returns, whether it produced a real summary or
	// fell back to the snippet (spec §4.4 Property 7). A URL whose
	// summarization job was cancelled before it started stays false even
	// though Content was pre-filled with the snippet at Add time, so
	// assemble can tell "genuinely processed" apart from "never reached"
	// (spec §4.9 Property 9).
	Processed bool
}

// UniqueResultSet deduplicates Results by URL, first occurrence wins,
// preserving insertion order for stable output (spec §3).
type UniqueResultSet struct {
	order []string
	items map[string]*UniqueResult
}

// NewUniqueResultSet returns an empty set.
func NewUniqueResultSet() *UniqueResultSet {
	return &UniqueResultSet{items: make(map[string]*UniqueResult)}
}

// Add inserts r if its URL has not been seen before. Returns false (and does
// nothing) if the URL already exists — later occurrences are discarded, but
// the caller may still harvest their images before discarding.
func (s *UniqueResultSet) Add(originQuery string, r search.Result) bool {
	if r.URL == "" {
		return false
	}
	if _, exists := s.items[r.URL]; exists {
		return false
	}
	s.order = append(s.order, r.URL)
	s.items[r.URL] = &UniqueResult{
		URL:           r.URL,
		OriginQuery:   originQuery,
		Title:         r.Title,
		Snippet:       r.Snippet,
		RawContent:    r.RawContent,
		Content:       r.Snippet,
		Score:         r.Score,
		PublishedDate: r.PublishedDate,
	}
	return true
}

// Contains reports whether url is already present.
func (s *UniqueResultSet) Contains(url string) bool {
	_, ok := s.items[url]
	return ok
}

// Get returns the UniqueResult for url, if present.
func (s *UniqueResultSet) Get(url string) (*UniqueResult, bool) {
	r, ok := s.items[url]
	return r, ok
}

// URLs returns the keys in first-insertion order.
func (s *UniqueResultSet) URLs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of unique results.
func (s *UniqueResultSet) Len() int { return len(s.order) }

// ImageRef is a harvested image reference (spec §3). Origin distinguishes
// backend-declared images from crawl-extracted ones so the Assembler can
// apply Open Question (c)'s backend-first cap ordering.
type ImageRef struct {
	ImageURL      string
	SourcePageURL string
	SourceTitle   string
	FromCrawl     bool
}

// SearchLog is the machine-readable trailer embedded at the tail of the
// assembled output (spec §4.5 item 4).
type SearchLog struct {
	Timestamp      time.Time                 `json:"timestamp"`
	Queries        []string                  `json:"queries"`
	Parameters     map[string]any            `json:"parameters"`
	RawResponses   []search.BackendResponse  `json:"raw_responses"`
	ProcessedCount int                       `json:"processed_count"`
}
