package rag

import (
	"context"
	"fmt"
)

// Workflow runs the four nodes in sequence over a single State, the Go
// equivalent of the Python original's LangGraph linear graph
// (retrieve -> chart_decision -> visualize -> explain).
type Workflow struct {
	Retrieve      *Retrieve
	ChartDecision *ChartDecision
	Visualize     *Visualize
	Explain       *Explain
}

// New wires a complete Workflow sharing one Analyzer across the
// LLM-calling nodes (Retrieve, ChartDecision, Explain).
func New(retriever Retriever, metrics MetricsSource, executor SQLExecutor, analyzer *Analyzer) *Workflow {
	return &Workflow{
		Retrieve:      NewRetrieve(retriever, metrics, analyzer),
		ChartDecision: NewChartDecision(analyzer),
		Visualize:     NewVisualize(executor),
		Explain:       NewExplain(analyzer),
	}
}

// Run executes the four nodes in order, threading the State through each.
// Any node's error stops the workflow immediately (unlike the top-level
// search pipeline, which tolerates partial per-query failure, the RAG
// chain's nodes each depend on the previous node's output to make sense).
func (w *Workflow) Run(ctx context.Context, initial State) (State, error) {
	st := initial

	st, err := w.Retrieve.Run(ctx, st)
	if err != nil {
		return st, fmt.Errorf("rag workflow: node1 retrieve: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return st, err
	}

	st, err = w.ChartDecision.Run(ctx, st)
	if err != nil {
		return st, fmt.Errorf("rag workflow: node2 chart decision: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return st, err
	}

	st, err = w.Visualize.Run(ctx, st)
	if err != nil {
		return st, fmt.Errorf("rag workflow: node3 visualize: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return st, err
	}

	st, err = w.Explain.Run(ctx, st)
	if err != nil {
		return st, fmt.Errorf("rag workflow: node4 explain: %w", err)
	}
	return st, nil
}
