package rag

import (
	"context"
	"encoding/json"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// stubChatClient returns canned JSON/text responses keyed by call order,
// looping on the last entry once exhausted.
type stubChatClient struct {
	responses []string
	calls     int
}

func (s *stubChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s.responses[idx]}}},
	}, nil
}

type stubRetriever struct {
	chunks []Chunk
}

func (s *stubRetriever) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func (s *stubRetriever) SearchChunks(ctx context.Context, embedding []float32, title, season string, topK int) ([]Chunk, error) {
	return s.chunks, nil
}

type stubMetrics struct{ rows []MetricRow }

func (s *stubMetrics) MetricsData(ctx context.Context, title, season string, week int) ([]MetricRow, error) {
	return s.rows, nil
}

type stubExecutor struct{ rows []map[string]any }

func (s *stubExecutor) ExecuteSQL(ctx context.Context, query string) ([]map[string]any, error) {
	return s.rows, nil
}

func TestWorkflow_FullRunWithReferencesPopulatesCitations(t *testing.T) {
	qa, _ := json.Marshal(questionAnalysis{KeyMetrics: []string{"dau"}, KeySegments: []string{"mode_main"}})
	chart, _ := json.Marshal(chartDecisionResponse{
		ChartType: "bar", ChartTitle: "Top segments", XAxis: "segment_combo", YAxis: "contribution_value", FilterSQL: "is_outlier = true",
	})
	client := &stubChatClient{responses: []string{string(qa), "free text analysis", string(chart), "final explanation text"}}

	analyzer := NewAnalyzer(client, nil, "gpt-4o-mini")
	retriever := &stubRetriever{chunks: []Chunk{
		{Source: "report_deep_research", Title: "bo6_wz2", Season: "Season 3", Week: 2, Content: "insight A", Similarity: 0.9, ChunkIndex: 1, TotalChunks: 3},
	}}
	metrics := &stubMetrics{rows: []MetricRow{{MetricName: "dau", SegmentCombo: "mode_main=br", ValueCurrent: 2_000_000, ValuePrevious: 1_800_000, ValueDelta: 200_000, IsOutlier: true}}}
	executor := &stubExecutor{rows: []map[string]any{{"segment_combo": "mode_main=br", "contribution_value": 0.42, "value_current": 2_000_000.0, "value_delta": 200_000.0, "is_outlier": true}}}

	wf := New(retriever, metrics, executor, analyzer)

	st, err := wf.Run(context.Background(), State{Question: "why did DAU spike?", Title: "bo6_wz2", Season: "Season 3", Week: 2, EnableRAG: true})
	if err != nil {
		t.Fatalf("workflow run: %v", err)
	}
	if st.FinalExplanation != "final explanation text" {
		t.Fatalf("unexpected final explanation: %q", st.FinalExplanation)
	}
	if len(st.Citations) != 1 {
		t.Fatalf("expected 1 citation, got %d: %v", len(st.Citations), st.Citations)
	}
	if st.ChartType != "bar" || st.SQLQuery == "" {
		t.Fatalf("expected chart decision and SQL query to be populated: %+v", st)
	}
}

func TestWorkflow_RAGDisabledYieldsNoReferencesAndNoCitations(t *testing.T) {
	qa, _ := json.Marshal(questionAnalysis{})
	chart, _ := json.Marshal(chartDecisionResponse{ChartType: "bar", ChartTitle: "t", XAxis: "x", YAxis: "y"})
	client := &stubChatClient{responses: []string{string(qa), "analysis text", string(chart), "explanation text"}}

	analyzer := NewAnalyzer(client, nil, "gpt-4o-mini")
	wf := New(&stubRetriever{}, &stubMetrics{}, &stubExecutor{}, analyzer)

	st, err := wf.Run(context.Background(), State{Question: "q", Title: "t", Season: "s", Week: 1, EnableRAG: false})
	if err != nil {
		t.Fatalf("workflow run: %v", err)
	}
	if len(st.Citations) != 0 {
		t.Fatalf("expected no citations when RAG disabled, got %v", st.Citations)
	}
	if len(st.References) != 0 {
		t.Fatalf("expected no references when RAG disabled, got %v", st.References)
	}
}

func TestFormatReferences_EmptyRendersExplicitNoReferencesLine(t *testing.T) {
	got := formatReferences(nil)
	if got != "_No references._" {
		t.Fatalf("expected explicit no-references line, got %q", got)
	}
}

func TestFormatReferences_NonEmptyListsEachEntry(t *testing.T) {
	refs := []Reference{{Source: "report_origin", Title: "bo6_wz2", Season: "Season 3", Week: 2}}
	got := formatReferences(refs)
	if got == "_No references._" {
		t.Fatal("expected populated references to not render the empty-state line")
	}
}

func TestBuildContextFromChunks_DedupesAndCountsChunksUsed(t *testing.T) {
	chunks := []Chunk{
		{Source: "report_origin", Title: "bo6_wz2", Season: "Season 3", Week: 2, Content: "a", ChunkIndex: 1, TotalChunks: 2},
		{Source: "report_origin", Title: "bo6_wz2", Season: "Season 3", Week: 2, Content: "b", ChunkIndex: 2, TotalChunks: 2},
	}
	_, refs := buildContextFromChunks(chunks)
	if len(refs) != 1 {
		t.Fatalf("expected 1 deduped reference, got %d", len(refs))
	}
	if refs[0].ChunksUsed != 2 {
		t.Fatalf("expected chunks_used=2, got %d", refs[0].ChunksUsed)
	}
}
