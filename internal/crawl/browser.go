package crawl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Browser is the headless-browser-shaped fetch capability the Crawl
// Enricher drives. No example repo in the retrieval pack vendors a real
// CDP/browser-automation client, and the spec's Non-goals explicitly
// exclude "browser automation semantics beyond page fetch and markdown
// projection" — so Browser is satisfied here by a plain HTTP fetch. A real
// CDP-backed implementation (e.g. chromedp) is a documented extension
// point, not built.
type Browser interface {
	// Fetch retrieves the raw HTML for url, honoring ctx cancellation/timeout.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPBrowser is the default Browser: a single shared HTTP client, reused
// across every crawl task in a run (spec §9: "browser context is per-crawl-
// enricher and closed when enrichment ends").
type HTTPBrowser struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPBrowser builds an HTTPBrowser with sane defaults.
func NewHTTPBrowser() *HTTPBrowser {
	return &HTTPBrowser{
		Client: &http.Client{
			Timeout: 20 * time.Second,
		},
		UserAgent: "deepresearch-crawler/1.0",
	}
}

const maxBodyBytes = 5 << 20 // 5MB, mirrors the pack's size-limited reads

func (b *HTTPBrowser) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("crawl fetch: status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		body = body[:maxBodyBytes]
	}
	return body, nil
}
