package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/deepresearch/internal/cache"
	"github.com/hyperifyio/deepresearch/internal/circuit"
	"github.com/hyperifyio/deepresearch/internal/llm"
)

// Analyzer is the LLM collaborator shared by Node 1 (question analysis),
// Node 2 (chart decision) and Node 4 (explanation); all call the same model in the teacher's
// ChatClient idiom (internal/synth.Synthesizer), cached and
// circuit-breaker-wrapped like internal/summarize.
type Analyzer struct {
	Client llm.Client
	Cache  *cache.LLMCache
	Model  string

	breaker *circuit.Breaker
}

// NewAnalyzer wires an Analyzer bound to model for both the analysis and
// chart-decision calls.
func NewAnalyzer(client llm.Client, llmCache *cache.LLMCache, model string) *Analyzer {
	return &Analyzer{
		Client:  client,
		Cache:   llmCache,
		Model:   model,
		breaker: circuit.New(circuit.SummarizerConfig("rag-analyzer")),
	}
}

type questionAnalysis struct {
	KeyMetrics  []string `json:"key_metrics"`
	KeySegments []string `json:"key_segments"`
}

// Analyze mirrors node1_rag_analysis.py: it asks the model for the key
// metrics/segments (structured) and for a free-text analysis, then returns
// both. Grounded on analyze_question + generate_analysis.
func (a *Analyzer) Analyze(ctx context.Context, question, metricsContext, ragContext string, enableRAG bool) (analysis string, keyMetrics, keySegments []string, err error) {
	qa, err := a.analyzeQuestion(ctx, question, metricsContext, ragContext, enableRAG)
	if err != nil {
		return "", nil, nil, err
	}

	reportContext := ragContext
	if !enableRAG {
		reportContext = "(RAG disabled)"
	}
	system := "You are a game analytics expert. Analyze the user's question using the provided data and reports.\n\n" +
		"Provide a clear, structured analysis that:\n" +
		"1. Directly answers the question\n" +
		"2. Cites specific data points from the metrics\n" +
		"3. References report insights (if RAG is enabled)\n" +
		"4. Identifies key drivers and patterns\n\n" +
		"Keep the response concise but comprehensive."
	user := fmt.Sprintf("Question: %s\n\n## Metrics Data\n%s\n\n## Report Context\n%s\n\nPlease analyze and answer the question.",
		question, metricsContext, reportContext)

	text, err := a.complete(ctx, system, user, 0.5)
	if err != nil {
		return "", nil, nil, fmt.Errorf("rag analyzer: generate analysis: %w", err)
	}
	return text, qa.KeyMetrics, qa.KeySegments, nil
}

func (a *Analyzer) analyzeQuestion(ctx context.Context, question, metricsContext, ragContext string, enableRAG bool) (questionAnalysis, error) {
	reportContext := ragContext
	if !enableRAG {
		reportContext = "(RAG disabled)"
	}
	system := "You are a game analytics expert. Identify the key metrics and key segments relevant to the user's question. " +
		"Respond in JSON: {\"key_metrics\": [...], \"key_segments\": [...]}."
	user := fmt.Sprintf("Question: %s\n\n## Metrics Data\n%s\n\n## Report Context\n%s", question, metricsContext, reportContext)

	raw, err := a.complete(ctx, system, user, 0.2)
	if err != nil {
		return questionAnalysis{}, fmt.Errorf("rag analyzer: analyze question: %w", err)
	}
	var out questionAnalysis
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &out); err != nil {
		// Non-fatal: fall back to empty lists, matching the Python
		// original's tolerance of a non-JSON analyze_question response.
		return questionAnalysis{}, nil
	}
	return out, nil
}

// complete is the shared cached, breaker-wrapped chat-completion call used
// by every LLM-calling rag node (Retrieve, ChartDecision, Explain), adapted
// from internal/synth.Synthesizer.Synthesize.
func (a *Analyzer) complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	if a.Client == nil || strings.TrimSpace(a.Model) == "" {
		return "", fmt.Errorf("rag analyzer: not configured")
	}

	key := cache.KeyFrom(a.Model, system+"\n\n"+user)
	if a.Cache != nil {
		if raw, ok, _ := a.Cache.Get(ctx, key); ok {
			var cached struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(raw, &cached); err == nil && cached.Text != "" {
				return cached.Text, nil
			}
		}
	}

	req := openai.ChatCompletionRequest{
		Model: a.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		N:           1,
	}

	result, err := a.breaker.Execute(func() (any, error) {
		return a.Client.CreateChatCompletion(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	resp := result.(openai.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices from model")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)

	if a.Cache != nil {
		if payload, err := json.Marshal(map[string]string{"text": text}); err == nil {
			_ = a.Cache.Save(ctx, key, payload)
		}
	}
	return text, nil
}

// extractJSONObject strips Markdown code fences and returns the outermost
// {...} object in s, or s unchanged if no object is found.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
