package rag

import (
	"context"
	"fmt"
	"strings"
)

// SQLExecutor runs the generated query against the metrics store. Never
// implemented against a real database in this repo (spec Non-goals): the
// NL2SQL surface is exercised through this injected seam so a concrete
// store can be wired without touching the workflow.
type SQLExecutor interface {
	ExecuteSQL(ctx context.Context, query string) ([]map[string]any, error)
}

// Visualize is Node 3: it generates a SQL query from the chart decision,
// executes it, and produces an ECharts option document. Grounded on
// node3_sql_generation.py (the Python code's Python-visualization-code
// generation is dropped: this is a Go service with no matplotlib
// equivalent, so only the query + chart config are built).
type Visualize struct {
	Executor SQLExecutor
}

func NewVisualize(executor SQLExecutor) *Visualize {
	return &Visualize{Executor: executor}
}

func (n *Visualize) Run(ctx context.Context, st State) (State, error) {
	query := generateSQL(st.Title, st.Season, st.Week, st.XAxis, st.YAxis, st.ChartFilter)

	var rows []map[string]any
	if n.Executor != nil {
		result, err := n.Executor.ExecuteSQL(ctx, query)
		if err != nil {
			// Non-fatal: the Python original logs and continues with an
			// empty result set rather than failing the workflow.
			rows = nil
		} else {
			rows = result
		}
	}

	st.SQLQuery = query
	st.SQLResult = rows
	st.EChartsOption = generateEChartsOption(rows, st.ChartType, st.ChartTitle, st.XAxis, st.YAxis)
	return st, nil
}

func generateSQL(title, season string, week int, xAxis, yAxis, chartFilter string) string {
	conditions := []string{
		fmt.Sprintf("title = '%s'", title),
		fmt.Sprintf("season = '%s'", season),
		fmt.Sprintf("week_number = %d", week),
	}
	if chartFilter != "" {
		conditions = append(conditions, chartFilter)
	}
	if xAxis == "segment_combo" {
		conditions = append(conditions, "segment_combo IS NOT NULL")
	}
	where := strings.Join(conditions, " AND ")

	return fmt.Sprintf(`SELECT
    %s,
    metric_name,
    %s,
    value_current,
    value_previous,
    value_delta,
    is_outlier,
    outlier_type
FROM metrics_data
WHERE %s
ORDER BY %s DESC NULLS LAST
LIMIT 10`, xAxis, yAxis, where, yAxis)
}

// generateEChartsOption builds the same shape of ECharts configuration
// document the Python original's generate_echarts produces, as a plain
// map[string]any ready for JSON serialization by the caller.
func generateEChartsOption(data []map[string]any, chartType, chartTitle, xAxis, yAxis string) map[string]any {
	if len(data) == 0 {
		return map[string]any{
			"title": map[string]any{"text": chartTitle},
			"xAxis": map[string]any{"type": "category", "data": []any{}},
			"yAxis": map[string]any{"type": "value"},
			"series": []any{map[string]any{"type": chartType, "data": []any{}}},
		}
	}

	xData := make([]any, 0, len(data))
	yData := make([]any, 0, len(data))
	for _, row := range data {
		xVal := row[xAxis]
		if s, ok := xVal.(string); ok {
			s = strings.ReplaceAll(s, "_", " ")
			s = strings.ReplaceAll(s, "=", ": ")
			xVal = s
		}
		if xVal == nil || xVal == "" {
			xVal = "Unknown"
		}
		xData = append(xData, xVal)

		yVal := row[yAxis]
		if yVal == nil {
			yVal = 0.0
		}
		if yAxis == "contribution_value" {
			if f, ok := toFloat(yVal); ok {
				yVal = float64(int(f*100*10+0.5)) / 10
			}
		}
		yData = append(yData, yVal)
	}

	option := map[string]any{
		"title": map[string]any{"text": chartTitle, "left": "center"},
		"tooltip": map[string]any{"trigger": tooltipTrigger(chartType)},
		"grid": map[string]any{"left": "3%", "right": "4%", "bottom": "15%", "containLabel": true},
	}

	switch chartType {
	case "pie":
		pieData := make([]any, 0, len(xData))
		for i := range xData {
			pieData = append(pieData, map[string]any{"value": yData[i], "name": xData[i]})
		}
		option["series"] = []any{map[string]any{
			"type": "pie", "radius": []string{"40%", "70%"}, "data": pieData,
		}}
	case "line":
		option["xAxis"] = map[string]any{"type": "category", "data": xData}
		option["yAxis"] = map[string]any{"type": "value"}
		option["series"] = []any{map[string]any{"type": "line", "data": yData, "smooth": true}}
	default: // "bar" and any unrecognized type render as bar, matching the Python default branch
		option["xAxis"] = map[string]any{"type": "category", "data": xData, "axisLabel": map[string]any{"rotate": 45, "interval": 0}}
		option["yAxis"] = map[string]any{"type": "value"}
		option["series"] = []any{map[string]any{"type": "bar", "data": yData}}
	}
	return option
}

func tooltipTrigger(chartType string) string {
	if chartType == "bar" || chartType == "line" {
		return "axis"
	}
	return "item"
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
