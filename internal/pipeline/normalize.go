package pipeline

import (
	"net/url"
	"strings"

	"github.com/hyperifyio/deepresearch/internal/search"
)

// Normalize builds a UniqueResultSet and an image inventory from a list of
// per-query BackendResponses, in the order the Dispatcher returned them
// (which is query-dispatch order, spec property 2). URL canonicalization
// (lowercase host, stripped fragment, stripped tracking params) is adapted
// from the teacher's aggregate.MergeAndNormalize.
func Normalize(responses []search.BackendResponse) (*UniqueResultSet, []ImageRef) {
	set := NewUniqueResultSet()
	var images []ImageRef

	for _, resp := range responses {
		for _, img := range resp.Images {
			if img == "" {
				continue
			}
			images = append(images, ImageRef{ImageURL: img, SourcePageURL: "", SourceTitle: resp.Query, FromCrawl: false})
		}
		for _, r := range resp.Results {
			if r.URL == "" {
				continue
			}
			canon, err := canonicalizeURL(r.URL)
			if err != nil {
				continue
			}
			r.URL = canon

			added := set.Add(resp.Query, r)
			if r.ImageSrc != "" {
				// Backend-declared images are harvested unconditionally, even
				// when the URL itself was a duplicate (spec §3: "later
				// occurrences are discarded but may contribute images").
				images = append(images, ImageRef{ImageURL: r.ImageSrc, SourcePageURL: canon, SourceTitle: r.Title, FromCrawl: false})
			}
			_ = added
		}
	}
	return set, images
}

func canonicalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	q := u.Query()
	for _, p := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id", "gclid", "fbclid"} {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
