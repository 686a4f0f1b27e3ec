// Command debugpipeline runs only the Search Backend Adapter, Dispatcher,
// and Result Normalizer stages against a configured backend and prints the
// resulting UniqueResultSet, so operators can diagnose backend
// configuration without invoking crawl, summarize, or the LLM at all.
// Mirrors the teacher's cmd/debugsearch.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hyperifyio/deepresearch/internal/backend"
	"github.com/hyperifyio/deepresearch/internal/config"
	"github.com/hyperifyio/deepresearch/internal/dispatch"
	"github.com/hyperifyio/deepresearch/internal/pipeline"
	"github.com/hyperifyio/deepresearch/internal/search"
)

func main() {
	baseURL := os.Getenv("BACKEND_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	apiKey := os.Getenv("BACKEND_KEY")

	kind := config.BackendSearchOnly
	if os.Getenv("SEARCH_AND_CRAWL") != "" {
		kind = config.BackendSearchAndCrawl
	}

	q := "What is love?"
	if len(os.Args) > 1 {
		q = strings.Join(os.Args[1:], " ")
	}

	var adapter backend.Adapter
	switch kind {
	case config.BackendSearchAndCrawl:
		adapter = backend.NewSearchAndCrawl(baseURL)
	default:
		adapter = backend.NewSearchOnly(baseURL, apiKey)
	}
	defer adapter.Close()

	dispatcher := dispatch.New(adapter, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	responses := dispatcher.Dispatch(ctx, []search.Query{{Text: q, Topic: search.TopicGeneral, MaxResults: 5}})
	resultSet, images := pipeline.Normalize(responses)

	for _, r := range responses {
		if r.Failed() {
			fmt.Printf("query %q failed: %s\n", r.Query, r.Error)
		}
	}

	i := 0
	for _, url := range resultSet.URLs() {
		ur, ok := resultSet.Get(url)
		if !ok {
			continue
		}
		i++
		fmt.Printf("%d. %s — %s\n", i, ur.Title, ur.URL)
	}
	fmt.Printf("unique results: %d, harvested images: %d\n", i, len(images))
}
