// Package assemble implements the Assembler (spec §4.5): the single
// deterministic text writer that turns the summarized UniqueResultSet and
// harvested images into the pipeline's sole output string, with an embedded
// machine-readable SearchLog trailer.
package assemble

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hyperifyio/deepresearch/internal/search"
)

// maxImages is the post-concatenation cap on the image inventory (spec §4.5
// item 3, Open Question c).
const maxImages = 20

// SourceBlock is one per-URL entry in the assembled output.
type SourceBlock struct {
	Title   string
	URL     string
	Content string // final per-URL content: summary, else backend snippet
}

// Image is one harvested image reference, as handed to the Assembler.
type Image struct {
	ImageURL      string
	SourceTitle   string
	SourcePageURL string
	FromCrawl     bool // false = backend-declared, true = crawl-extracted
}

// LogData is the machine-readable trailer payload (spec §4.5 item 4, §3
// SearchLog). Defined locally (rather than imported from internal/pipeline)
// to keep Assemble a leaf package with no dependency back on the orchestrator.
type LogData struct {
	Timestamp      time.Time                `json:"timestamp"`
	Queries        []string                 `json:"queries"`
	Parameters     map[string]any           `json:"parameters"`
	RawResponses   []search.BackendResponse `json:"raw_responses"`
	ProcessedCount int                      `json:"processed_count"`
}

func separatorLine() string {
	return strings.Repeat("-", 80)
}

// Assemble produces the single UTF-8 output string (spec §6).
func Assemble(sources []SourceBlock, images []Image, log LogData) string {
	var b strings.Builder

	if len(sources) == 0 {
		b.WriteString("No sources produced usable content for this query. Try rephrasing or broadening the search terms.\n\n")
	} else {
		for i, src := range sources {
			fmt.Fprintf(&b, "--- SOURCE %d: %s ---\n", i+1, src.Title)
			fmt.Fprintf(&b, "URL: %s\n\n", src.URL)
			b.WriteString("SUMMARY:\n")
			b.WriteString(src.Content)
			b.WriteString("\n\n")
			b.WriteString(separatorLine())
			b.WriteString("\n\n")
		}
	}

	if len(images) > 0 {
		capped := capImages(images)
		b.WriteString("AVAILABLE IMAGES FROM SEARCH RESULTS\n")
		b.WriteString("(embed any that are relevant using markdown image syntax)\n\n")
		for _, img := range capped {
			fmt.Fprintf(&b, "- %s (from %q, page: %s)\n", img.ImageURL, img.SourceTitle, img.SourcePageURL)
		}
		b.WriteString("\n")
	}

	log.ProcessedCount = len(sources)
	payload, _ := json.Marshal(log)
	b.WriteString("<!-- SEARCH_LOG_JSON ")
	b.Write(payload)
	b.WriteString(" -->\n")

	return b.String()
}

// capImages applies the 20-image post-concatenation cap, backend images
// first, then crawl-extracted images in insertion order (Open Question c).
func capImages(images []Image) []Image {
	var backendImgs, crawlImgs []Image
	for _, img := range images {
		if img.FromCrawl {
			crawlImgs = append(crawlImgs, img)
		} else {
			backendImgs = append(backendImgs, img)
		}
	}
	ordered := append(backendImgs, crawlImgs...)
	if len(ordered) > maxImages {
		ordered = ordered[:maxImages]
	}
	return ordered
}
