package crawl

import "errors"

// ErrCrawlFailure is the non-fatal crawl-failure sentinel (spec §7):
// timeout, navigation failure, or empty markdown. The caller always falls
// back to the backend-provided snippet for the affected URL.
var ErrCrawlFailure = errors.New("crawl enrichment failed for url")

var errEmptyMarkdown = errors.New("crawl produced empty markdown")
