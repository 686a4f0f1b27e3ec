package rag

import (
	"context"
	"encoding/json"
	"fmt"
)

// ChartDecision is Node 2: it asks the model to pick a chart type and axis
// mapping given Node 1's analysis. Grounded on node2_chart_decision.py.
type ChartDecision struct {
	Analyzer *Analyzer
}

// NewChartDecision wires a ChartDecision node sharing the Retrieve node's
// Analyzer (same model, same cache).
func NewChartDecision(analyzer *Analyzer) *ChartDecision {
	return &ChartDecision{Analyzer: analyzer}
}

type chartDecisionResponse struct {
	ChartType  string `json:"chart_type"`
	ChartTitle string `json:"chart_title"`
	XAxis      string `json:"x_axis"`
	YAxis      string `json:"y_axis"`
	FilterSQL  string `json:"filter_sql"`
	Reasoning  string `json:"reasoning"`
}

func (n *ChartDecision) Run(ctx context.Context, st State) (State, error) {
	system := `You are a data visualization expert. Based on the user's question and analysis, decide the best chart type and configuration.

Available chart types:
- bar: For comparing categories (segments, modes)
- line: For trends over time
- pie: For showing proportions
- scatter: For correlations

Respond in JSON format:
{
    "chart_type": "bar|line|pie|scatter",
    "chart_title": "Title for the chart",
    "x_axis": "field name for x-axis",
    "y_axis": "field name for y-axis (usually value_current or contribution_value)",
    "filter_sql": "SQL WHERE clause for filtering data (e.g., 'is_outlier = true')",
    "reasoning": "Brief explanation of why this chart"
}`
	user := fmt.Sprintf("Question: %s\n\nAnalysis: %s\n\nKey metrics: %v\nKey segments: %v\n\nContext: %s %s Week %d\n\nWhat chart should we show?",
		st.Question, st.Analysis, st.KeyMetrics, st.KeySegments, st.Title, st.Season, st.Week)

	raw, err := n.Analyzer.complete(ctx, system, user, 0.3)
	if err != nil {
		return st, fmt.Errorf("rag chart decision: %w", err)
	}

	decision := chartDecisionResponse{
		ChartType:  "bar",
		ChartTitle: fmt.Sprintf("Top Contributors - %s Week %d", st.Season, st.Week),
		XAxis:      "segment_combo",
		YAxis:      "contribution_value",
		FilterSQL:  "is_outlier = true",
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &decision); err != nil {
		// Malformed JSON falls back to the teacher default chart, matching
		// node2_chart_decision.py's except json.JSONDecodeError branch.
		decision.ChartType = "bar"
	}

	st.ChartType = decision.ChartType
	st.ChartTitle = decision.ChartTitle
	st.XAxis = decision.XAxis
	st.YAxis = decision.YAxis
	st.ChartFilter = decision.FilterSQL
	return st, nil
}
