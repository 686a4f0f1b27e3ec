package rag

import (
	"context"
	"fmt"
	"strings"
)

// Explain is Node 4: it combines the analysis, chart data, and references
// into the final stakeholder-facing explanation. Grounded on
// node4_explanation.py.
//
// Open Question (b) resolution: an empty reference list always renders the
// explicit line "_No references._" in the prompt's Report References
// section, rather than silently switching to the RAG-disabled prompt
// branch — so a caller who sets EnableRAG=true but whose retriever found
// nothing still gets a RAG-flavored prompt that honestly states it has no
// citations, instead of being indistinguishable from RAG-disabled.
type Explain struct {
	Analyzer *Analyzer
}

func NewExplain(analyzer *Analyzer) *Explain {
	return &Explain{Analyzer: analyzer}
}

func (n *Explain) Run(ctx context.Context, st State) (State, error) {
	chartSummary := formatChartSummary(st.SQLResult, st.YAxis)
	referencesBlock := formatReferences(st.References)

	system, user := buildExplanationPrompt(st, chartSummary, referencesBlock)

	text, err := n.Analyzer.complete(ctx, system, user, 0.5)
	if err != nil {
		return st, fmt.Errorf("rag explain: %w", err)
	}

	st.FinalExplanation = text
	st.Citations = formatCitations(st.EnableRAG, st.References)
	return st, nil
}

func buildExplanationPrompt(st State, chartSummary, referencesBlock string) (system, user string) {
	if st.EnableRAG {
		system = `You are a game analytics expert presenting insights to stakeholders.

Create a clear, comprehensive explanation that:
1. Directly answers the user's question
2. Explains the chart visualization
3. Cites specific data points from metrics AND reports
4. Provides actionable insights

Structure your response with:
- ## Summary (2-3 sentences)
- ## Key Findings (bullet points with data)
- ## Chart Interpretation (what the visualization shows)
- ## Recommendations (if applicable)

Keep it concise but informative. Use actual numbers from the data and cite report insights.`

		user = fmt.Sprintf(`Question: %s

Context: %s %s Week %d

## Analysis
%s

## Chart: %s (%s)
%s

## Report References
%s

Please provide a comprehensive explanation using both metrics data and report insights.`,
			st.Question, st.Title, st.Season, st.Week, st.Analysis, st.ChartTitle, st.ChartType, chartSummary, referencesBlock)
		return system, user
	}

	system = `You are a game analytics expert presenting insights to stakeholders.

Create a clear, data-driven explanation that:
1. Directly answers the user's question
2. Explains the chart visualization
3. Cites specific data points from metrics ONLY
4. Provides actionable insights

Structure your response with:
- ## Summary (2-3 sentences)
- ## Key Findings (bullet points with data)
- ## Chart Interpretation (what the visualization shows)
- ## Recommendations (if applicable)

Keep it concise but informative. Use actual numbers from the data. Do NOT reference any external reports or documents.`

	user = fmt.Sprintf(`Question: %s

Context: %s %s Week %d

## Analysis
%s

## Chart: %s (%s)
%s

Please provide a data-driven explanation using ONLY the metrics data shown above. Do NOT mention or cite any reports or external documents.`,
		st.Question, st.Title, st.Season, st.Week, st.Analysis, st.ChartTitle, st.ChartType, chartSummary)
	return system, user
}

func formatChartSummary(rows []map[string]any, yAxis string) string {
	if len(rows) == 0 {
		return "No data available for chart."
	}
	var sb strings.Builder
	limit := len(rows)
	if limit > 5 {
		limit = 5
	}
	for i, row := range rows[:limit] {
		segment, _ := row["segment_combo"].(string)
		if segment == "" {
			segment = "Overall"
		} else {
			segment = strings.ReplaceAll(segment, "_", " ")
			segment = strings.ReplaceAll(segment, "=", ": ")
		}

		contribution := "-"
		if v, ok := toFloat(row["contribution_value"]); ok && v != 0 {
			contribution = fmt.Sprintf("%.1f%%", v*100)
		}
		value := "-"
		if v, ok := toFloat(row["value_current"]); ok && v != 0 {
			value = fmt.Sprintf("%.1fM", v/1e6)
		}
		delta := "-"
		if v, ok := toFloat(row["value_delta"]); ok && v != 0 {
			delta = fmt.Sprintf("%+.1fM", v/1e6)
		}
		outlier := ""
		if b, ok := row["is_outlier"].(bool); ok && b {
			outlier = " (outlier)"
		}
		fmt.Fprintf(&sb, "%d. %s: %s contribution, %s current (%s)%s\n", i+1, segment, contribution, value, delta, outlier)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// formatReferences renders the Report References prompt section. An empty
// list always yields the explicit "_No references._" line (Open Question
// (b)), never an empty string that could be mistaken for an omitted
// section.
func formatReferences(references []Reference) string {
	if len(references) == 0 {
		return "_No references._"
	}
	var sb strings.Builder
	for i, ref := range references {
		fmt.Fprintf(&sb, "[%d] %s\n    %s %s Week %d\n", i+1, ref.Source, ref.Title, ref.Season, ref.Week)
		if ref.Summary != "" {
			summary := ref.Summary
			if len(summary) > 100 {
				summary = summary[:100]
			}
			fmt.Fprintf(&sb, "    Summary: %s...\n", summary)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// formatCitations builds the flat citation-string list returned alongside
// the explanation; empty (not nil-vs-empty ambiguous) whenever RAG is
// disabled or nothing was retrieved, matching node4_explanation.py's
// reference_list behavior.
func formatCitations(enableRAG bool, references []Reference) []string {
	if !enableRAG || len(references) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(references))
	for _, ref := range references {
		out = append(out, fmt.Sprintf("%s - %s %s Week %d", ref.Source, ref.Title, ref.Season, ref.Week))
	}
	return out
}
