package crawl

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxCrawlImagesPerPage is the spec §4.3 cap on crawl-extracted images.
const maxCrawlImagesPerPage = 5

// markdownImageRe matches markdown image syntax: ![alt](url).
var markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)`)

// harvestImages extracts up to maxCrawlImagesPerPage image URLs from the raw
// HTML (via <img src>, using goquery, grounded on
// Tsuchiya2-catchup-feed-backend's goquery usage) plus any markdown-image
// syntax already present in the projected text.
func harvestImages(body []byte, text string) []string {
	var out []string
	seen := map[string]struct{}{}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			src, ok := sel.Attr("src")
			if ok {
				src = strings.TrimSpace(src)
				if src != "" {
					if _, dup := seen[src]; !dup {
						seen[src] = struct{}{}
						out = append(out, src)
					}
				}
			}
			return len(out) < maxCrawlImagesPerPage
		})
	}

	if len(out) < maxCrawlImagesPerPage {
		for _, m := range markdownImageRe.FindAllStringSubmatch(text, -1) {
			if len(out) >= maxCrawlImagesPerPage {
				break
			}
			url := m[1]
			if _, dup := seen[url]; dup {
				continue
			}
			seen[url] = struct{}{}
			out = append(out, url)
		}
	}

	if len(out) > maxCrawlImagesPerPage {
		out = out[:maxCrawlImagesPerPage]
	}
	return out
}
