// Package rag implements the four-node retrieval-augmented analysis
// workflow (spec §4.7): Retrieve, ChartDecision, Visualize, Explain, run as
// a linear DAG over a single mutable State record. Grounded on
// original_source/backend/rag-service/{state.py,nodes/*.py} and adapted into
// the teacher's ChatClient/cache/prompt-building idiom from internal/synth.
package rag

// State flows through the workflow one node at a time; each node reads the
// fields its predecessors populated and writes its own. Mirrors the Python
// original's WorkflowState TypedDict field-for-field.
type State struct {
	// Input
	Question  string
	Title     string
	Season    string
	Week      int
	EnableRAG bool

	// Retrieve output
	Analysis     string
	KeyMetrics   []string
	KeySegments  []string
	References   []Reference
	RAGContext   string

	// ChartDecision output
	ChartType    string
	ChartTitle   string
	XAxis        string
	YAxis        string
	ChartFilter  string

	// Visualize output
	SQLQuery      string
	SQLResult     []map[string]any
	EChartsOption map[string]any

	// Explain output
	FinalExplanation string
	Citations        []string
}

// Reference is a retrieved document reference, mirroring the Python
// original's rag_references dict entries.
type Reference struct {
	Source     string
	Title      string
	Season     string
	Week       int
	Similarity float64
	ChunksUsed int
	Summary    string
}

// Chunk is a single retrieved passage from the vector index, mirroring the
// Python original's vector_search_chunks row shape.
type Chunk struct {
	Source      string
	Title       string
	Season      string
	Week        int
	Content     string
	Similarity  float64
	ChunkIndex  int
	TotalChunks int
}
