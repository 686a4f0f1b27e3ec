package assemble

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func extractLogJSON(t *testing.T, output string) LogData {
	t.Helper()
	const marker = "<!-- SEARCH_LOG_JSON "
	idx := strings.Index(output, marker)
	if idx == -1 {
		t.Fatalf("output missing SEARCH_LOG_JSON trailer")
	}
	body := output[idx+len(marker):]
	end := strings.LastIndex(body, " -->")
	if end == -1 {
		t.Fatalf("malformed SEARCH_LOG_JSON trailer")
	}
	var log LogData
	if err := json.Unmarshal([]byte(body[:end]), &log); err != nil {
		t.Fatalf("SEARCH_LOG_JSON does not parse: %v", err)
	}
	return log
}

func TestAssemble_SourceBlocksAndLogRoundTrip(t *testing.T) {
	sources := []SourceBlock{
		{Title: "A", URL: "https://a", Content: "summary a"},
		{Title: "B", URL: "https://b", Content: "summary b"},
	}
	out := Assemble(sources, nil, LogData{Timestamp: time.Unix(0, 0).UTC(), Queries: []string{"q1"}})

	if !strings.Contains(out, "--- SOURCE 1: A ---") || !strings.Contains(out, "--- SOURCE 2: B ---") {
		t.Fatalf("expected numbered source blocks, got:\n%s", out)
	}
	log := extractLogJSON(t, out)
	if log.ProcessedCount != 2 {
		t.Fatalf("expected processed_count=2, got %d", log.ProcessedCount)
	}
	if len(log.Queries) != 1 || log.Queries[0] != "q1" {
		t.Fatalf("expected queries round-trip, got %v", log.Queries)
	}
}

func TestAssemble_EmptySourcesEmitsDiagnostic(t *testing.T) {
	out := Assemble(nil, nil, LogData{})
	if !strings.Contains(out, "No sources produced usable content") {
		t.Fatalf("expected diagnostic line, got:\n%s", out)
	}
	log := extractLogJSON(t, out)
	if log.ProcessedCount != 0 {
		t.Fatalf("expected processed_count=0, got %d", log.ProcessedCount)
	}
}

// S6-style cap check: backend declares 2 images, crawl contributes 25 more;
// the assembled inventory caps at 20 total, backend images ordered first.
func TestAssemble_ImageCapBackendFirst(t *testing.T) {
	var images []Image
	images = append(images, Image{ImageURL: "b1", FromCrawl: false}, Image{ImageURL: "b2", FromCrawl: false})
	for i := 0; i < 25; i++ {
		images = append(images, Image{ImageURL: "c", FromCrawl: true})
	}
	out := Assemble([]SourceBlock{{Title: "A", URL: "u", Content: "c"}}, images, LogData{})
	if strings.Count(out, "- b1 ") != 1 || strings.Count(out, "- b2 ") != 1 {
		t.Fatalf("expected both backend images present, got:\n%s", out)
	}
	// 20 total cap: 2 backend + 18 crawl.
	if strings.Count(out, "- c ") != 18 {
		t.Fatalf("expected exactly 18 crawl images after cap, got %d", strings.Count(out, "- c "))
	}
}
