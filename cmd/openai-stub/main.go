// Command openai-stub is a standalone OpenAI-compatible HTTP server for
// manual local testing against internal/summarize and internal/rag without
// a live LLM API key. It is operator tooling, started by hand and pointed
// at with -llm-base/LLM_BASE_URL; nothing in this repo execs or imports it.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		sys := ""
		if len(req.Messages) > 0 {
			sys = strings.TrimSpace(req.Messages[0].Content)
		}
		var content string
		switch {
		case strings.Contains(sys, "Summarize the page content below"):
			// internal/summarize.Summarizer.callModel
			summary := map[string]any{
				"summary":      "Stub summary of the page content.",
				"key_excerpts": "Stub key excerpt one.\nStub key excerpt two.",
			}
			b, _ := json.Marshal(summary)
			content = string(b)
		case strings.Contains(sys, "Identify the key metrics and key segments"):
			// internal/rag.Analyzer.analyzeQuestion
			qa := map[string]any{
				"key_metrics":  []string{"dau", "retention_d7"},
				"key_segments": []string{"platform:mobile"},
			}
			b, _ := json.Marshal(qa)
			content = string(b)
		case strings.Contains(sys, "You are a data visualization expert"):
			// internal/rag.ChartDecision.Run
			decision := map[string]any{
				"chart_type":  "bar",
				"chart_title": "Stub chart",
				"x_axis":      "segment_combo",
				"y_axis":      "contribution_value",
				"filter_sql":  "is_outlier = true",
				"reasoning":   "Stub reasoning.",
			}
			b, _ := json.Marshal(decision)
			content = string(b)
		case strings.Contains(sys, "You are a game analytics expert"):
			// internal/rag.Analyzer.Analyze and internal/rag.Explain.Run both
			// expect free-text prose, not JSON.
			content = "## Summary\nStub analysis referencing the provided metrics.\n\n## Key Findings\n- Stub finding one\n- Stub finding two\n"
		default:
			http.Error(w, "unexpected system prompt", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})

	log.Printf("openai-stub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
