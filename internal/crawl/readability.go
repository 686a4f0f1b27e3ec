package crawl

import (
	"bytes"
	"io"
	"net/url"

	"github.com/go-shiori/go-readability"
)

// readabilityFallback re-extracts content via Mozilla Readability when the
// plain DOM walk yields too little text (below the configured word-count
// threshold). Grounded on Tsuchiya2-catchup-feed-backend's ReadabilityFetcher.
func readabilityFallback(pageURL string, body []byte) (document, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = nil
	}
	article, err := readability.FromReader(io.NopCloser(bytes.NewReader(body)), parsed)
	if err != nil {
		return document{}, err
	}
	text := article.TextContent
	if text == "" {
		text = article.Content
	}
	return document{Title: article.Title, Text: normalizeWhitespace(text)}, nil
}
