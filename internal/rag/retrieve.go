package rag

import (
	"context"
	"fmt"
	"strings"
)

// Retriever performs vector similarity search over chunked report
// documents. Never implemented against a real vector database in this
// repo (spec Non-goals: no persistent vector index) — callers inject a
// concrete implementation (e.g. backed by pgvector, sqlite-vec, or an
// in-memory index for tests).
type Retriever interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	SearchChunks(ctx context.Context, embedding []float32, title, season string, topK int) ([]Chunk, error)
}

// MetricsSource supplies the tabular metrics context Node 1 blends with
// retrieved report chunks, mirroring the Python original's
// get_metrics_data.
type MetricsSource interface {
	MetricsData(ctx context.Context, title, season string, week int) ([]MetricRow, error)
}

// MetricRow is one row of the metrics table consumed by Node 1 and Node 3.
type MetricRow struct {
	MetricName    string
	SegmentCombo  string
	ValueCurrent  float64
	ValuePrevious float64
	ValueDelta    float64
	IsOutlier     bool
	OutlierType   string
}

const defaultTopK = 10

// Retrieve is Node 1: it fetches metrics, performs chunk-based vector
// search when EnableRAG is set, and asks the LLM for a structured
// analysis. Grounded on node1_rag_analysis.py's rag_analysis_node.
type Retrieve struct {
	Retriever Retriever
	Metrics   MetricsSource
	Analyzer  *Analyzer
	TopK      int
}

// NewRetrieve wires a Retrieve node with the given collaborators. TopK
// defaults to 10 (the Python original's config.TOP_K_RESULTS * 2, made an
// explicit constant here since no config wiring for RAG tuning exists in
// this repo's scope).
func NewRetrieve(retriever Retriever, metrics MetricsSource, analyzer *Analyzer) *Retrieve {
	return &Retrieve{Retriever: retriever, Metrics: metrics, Analyzer: analyzer, TopK: defaultTopK}
}

// Run executes Node 1, returning the populated fields rather than mutating
// in place, so callers can compose nodes without aliasing surprises.
func (n *Retrieve) Run(ctx context.Context, st State) (State, error) {
	topK := n.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	var metricsRows []MetricRow
	if n.Metrics != nil {
		rows, err := n.Metrics.MetricsData(ctx, st.Title, st.Season, st.Week)
		if err != nil {
			return st, fmt.Errorf("rag retrieve: metrics data: %w", err)
		}
		metricsRows = rows
	}
	metricsContext := formatMetricsContext(metricsRows)

	var ragContext string
	var references []Reference

	if st.EnableRAG && n.Retriever != nil {
		embedding, err := n.Retriever.Embed(ctx, st.Question)
		if err != nil {
			return st, fmt.Errorf("rag retrieve: embed question: %w", err)
		}
		chunks, err := n.Retriever.SearchChunks(ctx, embedding, st.Title, st.Season, topK)
		if err != nil {
			return st, fmt.Errorf("rag retrieve: search chunks: %w", err)
		}
		ragContext, references = buildContextFromChunks(chunks)
	}

	st.RAGContext = ragContext
	st.References = references

	analysis, keyMetrics, keySegments, err := n.Analyzer.Analyze(ctx, st.Question, metricsContext, ragContext, st.EnableRAG)
	if err != nil {
		return st, fmt.Errorf("rag retrieve: analyze: %w", err)
	}
	st.Analysis = analysis
	st.KeyMetrics = keyMetrics
	st.KeySegments = keySegments
	return st, nil
}

// buildContextFromChunks concatenates chunk content into the same labeled
// block format the Python original emits, and de-duplicates references by
// (source, title, season, week), accumulating a chunks-used count per
// unique document.
func buildContextFromChunks(chunks []Chunk) (string, []Reference) {
	var sb strings.Builder
	seen := map[string]int{} // doc key -> index in references
	var references []Reference

	for _, c := range chunks {
		if strings.TrimSpace(c.Content) != "" {
			fmt.Fprintf(&sb, "\n\n--- [%s] %s %s Week %d (chunk %d/%d, similarity: %.2f) ---\n%s",
				c.Source, c.Title, c.Season, c.Week, c.ChunkIndex, c.TotalChunks, c.Similarity, c.Content)
		}
		key := fmt.Sprintf("%s_%s_%s_%d", c.Source, c.Title, c.Season, c.Week)
		if idx, ok := seen[key]; ok {
			references[idx].ChunksUsed++
			continue
		}
		seen[key] = len(references)
		references = append(references, Reference{
			Source:     c.Source,
			Title:      c.Title,
			Season:     c.Season,
			Week:       c.Week,
			Similarity: c.Similarity,
			ChunksUsed: 1,
		})
	}
	return sb.String(), references
}

// formatMetricsContext renders the metrics table as the markdown pipe-table
// the Python original's format_metrics_context builds, capped at the first
// 20 rows.
func formatMetricsContext(metrics []MetricRow) string {
	if len(metrics) == 0 {
		return "No metrics data available."
	}
	var sb strings.Builder
	sb.WriteString("| Metric | Segment | Current | Previous | Delta | Outlier |\n")
	sb.WriteString("|--------|---------|---------|----------|-------|---------|\n")
	limit := len(metrics)
	if limit > 20 {
		limit = 20
	}
	for _, m := range metrics[:limit] {
		segment := m.SegmentCombo
		if segment == "" {
			segment = "Overall"
		}
		outlier := ""
		if m.IsOutlier {
			outlier = "yes"
		}
		fmt.Fprintf(&sb, "| %s | %s | %.1fM | %.1fM | %+.1fM | %s |\n",
			m.MetricName, segment, m.ValueCurrent/1e6, m.ValuePrevious/1e6, m.ValueDelta/1e6, outlier)
	}
	return sb.String()
}
