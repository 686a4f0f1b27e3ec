// Package summarize implements the per-page Summarizer (spec §4.4):
// structured-output {summary, key_excerpts} coercion with bounded retries,
// a 60-second timeout, and a snippet fallback on any failure.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/invopop/jsonschema"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/deepresearch/internal/cache"
	"github.com/hyperifyio/deepresearch/internal/circuit"
	"github.com/hyperifyio/deepresearch/internal/llm"
	"github.com/hyperifyio/deepresearch/internal/tokenlimit"
)

// Timeout is the fixed per-call budget (spec §4.4, §6).
const Timeout = 60 * time.Second

// Summary is the structured-output record the model is coerced to produce.
type Summary struct {
	SummaryText string `json:"summary"`
	KeyExcerpts string `json:"key_excerpts"`
}

// Input is one URL's summarization job.
type Input struct {
	URL              string
	Title            string
	Content          string // raw/crawled content, not yet truncated
	Snippet          string // backend snippet, used as the failure fallback
	MaxContentChars  int
	Model            string
	MaxRetries       int
}

// Summarizer runs structured-output summarization calls against an
// OpenAI-compatible model, adapted from the teacher's internal/synth
// Synthesizer (cache-checked ChatClient call) and
// Tsuchiya2-catchup-feed-backend's circuit-breaker+retry+timeout wrapper.
type Summarizer struct {
	Client  llm.Client
	Cache   *cache.LLMCache
	breaker *circuit.Breaker
}

// New builds a Summarizer.
func New(client llm.Client, llmCache *cache.LLMCache) *Summarizer {
	return &Summarizer{Client: client, Cache: llmCache, breaker: circuit.New(circuit.SummarizerConfig("summarizer"))}
}

var summarySchema = func() string {
	reflector := jsonschema.Reflector{ExpandedStruct: true}
	schema := reflector.Reflect(&Summary{})
	b, _ := json.Marshal(schema)
	return string(b)
}()

// Summarize produces a Summary for in.Content, or falls back to in.Snippet
// on timeout, parse failure after retries, or any other error. Per spec
// §4.4, the fallback is always the backend snippet — never the raw content.
func (s *Summarizer) Summarize(ctx context.Context, in Input) (out Summary, usedFallback bool) {
	if strings.TrimSpace(in.Content) == "" {
		// Sentinel no-op: no raw content to summarize, positional alignment
		// is preserved by the caller regardless.
		return Summary{SummaryText: in.Snippet}, true
	}

	callCtx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	truncated := in.Content
	if in.MaxContentChars > 0 && len(truncated) > in.MaxContentChars {
		truncated = truncated[:in.MaxContentChars]
	}

	result, err := s.summarizeWithRetry(callCtx, in, truncated)
	if err != nil {
		return Summary{SummaryText: in.Snippet}, true
	}
	return result, false
}

func (s *Summarizer) summarizeWithRetry(ctx context.Context, in Input, truncated string) (Summary, error) {
	maxRetries := in.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries))
	bo = backoff.WithContext(bo, ctx)

	var result Summary
	op := func() error {
		raw, err := s.callModel(ctx, in, truncated)
		if err != nil {
			if tokenlimit.IsTokenLimitExceeded(err, in.Model) {
				// Mirrors the Python original's reaction to a context-overflow
				// error: shrink the content budget and retry instead of
				// repeating the same oversized request (spec §4.8).
				promptOverhead := tokenlimit.EstimateTokensFromChars(len(summarySchema) + len(in.URL) + len(in.Title) + 200)
				budget := tokenlimit.RemainingContext(in.Model, 2000, promptOverhead)
				maxChars := budget * 4
				if maxChars > 0 && maxChars < len(truncated) {
					truncated = truncated[:maxChars]
				} else if len(truncated) > 0 {
					truncated = truncated[:len(truncated)/2]
				}
			}
			return err
		}
		var parsed Summary
		if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
			return fmt.Errorf("structured-output coercion failed: %w", err)
		}
		if parsed.SummaryText == "" {
			return fmt.Errorf("structured-output coercion produced empty summary")
		}
		result = parsed
		return nil
	}
	if err := backoff.Retry(op, bo); err != nil {
		return Summary{}, err
	}
	return result, nil
}

func (s *Summarizer) callModel(ctx context.Context, in Input, content string) (string, error) {
	system := "Summarize the page content below. Respond with strict JSON matching this schema: " + summarySchema +
		". Populate \"summary\" with a concise prose summary and \"key_excerpts\" with the most important verbatim excerpts, separated by newlines. Output JSON only, no prose outside it."
	user := fmt.Sprintf("DATE: %s\nURL: %s\nTITLE: %s\n\nCONTENT:\n%s", time.Now().UTC().Format("2006-01-02"), in.URL, in.Title, content)

	if s.Cache != nil {
		key := cache.KeyFrom(in.Model, system+"\n\n"+user)
		if b, ok, _ := s.Cache.Get(ctx, key); ok {
			return string(b), nil
		}
	}

	result, err := s.breaker.Execute(func() (any, error) {
		resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: in.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			Temperature: 0.1,
			N:           1,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("model returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", err
	}
	text := result.(string)

	if s.Cache != nil {
		key := cache.KeyFrom(in.Model, system+"\n\n"+user)
		_ = s.Cache.Save(ctx, key, []byte(text))
	}
	return text, nil
}

// extractJSON trims any surrounding prose/code-fence the model may have
// added despite instructions, leaving the outermost {...} object.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
