// Package tokenlimit implements the token-limit-aware recovery contract
// (spec §4.8): provider classification of model-call exceptions by
// class-name/module/error-code/keyword inspection, and history truncation
// before retry. Grounded on the Python original's is_token_limit_exceeded /
// _check_openai_token_limit / _check_anthropic_token_limit /
// _check_gemini_token_limit and remove_up_to_last_ai_message
// (original_source/.../utils.py).
package tokenlimit

import (
	"errors"
	"reflect"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
)

// Provider names a model API family, mirroring the Python model-name prefix
// convention ("openai:", "anthropic:", "gemini:"/"google:").
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderUnknown   Provider = ""
)

// DetectProvider reads the provider prefix off a model identifier, the same
// convention the Python original uses for routing ("openai:gpt-4.1" etc.).
func DetectProvider(modelName string) Provider {
	lower := strings.ToLower(modelName)
	switch {
	case strings.HasPrefix(lower, "openai:"):
		return ProviderOpenAI
	case strings.HasPrefix(lower, "anthropic:"):
		return ProviderAnthropic
	case strings.HasPrefix(lower, "gemini:"), strings.HasPrefix(lower, "google:"):
		return ProviderGemini
	default:
		return ProviderUnknown
	}
}

// IsTokenLimitExceeded classifies err as a context-overflow condition.
// Preserves the original's string-based strategy: provider is picked from
// modelHint when available, else every checker is tried in turn. The
// exposed class-name/module strings (via errClassInfo) are never wrapped
// away, per the Design Notes.
func IsTokenLimitExceeded(err error, modelHint string) bool {
	if err == nil {
		return false
	}
	provider := DetectProvider(modelHint)
	switch provider {
	case ProviderOpenAI:
		return checkOpenAI(err)
	case ProviderAnthropic:
		return checkAnthropic(err)
	case ProviderGemini:
		return checkGemini(err)
	default:
		return checkOpenAI(err) || checkAnthropic(err) || checkGemini(err)
	}
}

// errClassInfo exposes the same "class name" / "module" strings the Python
// checkers inspect, derived from Go's reflect.Type instead of a runtime
// class object.
func errClassInfo(err error) (className, module string) {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return "", ""
	}
	return t.Name(), t.PkgPath()
}

var openAIKeywords = []string{"token", "context", "length", "maximum context", "reduce"}

func checkOpenAI(err error) bool {
	className, module := errClassInfo(err)
	looksLikeOpenAI := strings.Contains(strings.ToLower(module), "openai") || strings.Contains(strings.ToLower(className), "openai")

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		looksLikeOpenAI = true
		if apiErr.Code != nil {
			if code, ok := apiErr.Code.(string); ok && code == "context_length_exceeded" {
				return true
			}
		}
		if apiErr.Type == "invalid_request_error" && containsAny(strings.ToLower(apiErr.Message), openAIKeywords) {
			return true
		}
	}

	if !looksLikeOpenAI {
		return false
	}
	return containsAny(strings.ToLower(err.Error()), openAIKeywords)
}

func checkAnthropic(err error) bool {
	className, module := errClassInfo(err)
	looksLikeAnthropic := strings.Contains(strings.ToLower(module), "anthropic") || strings.Contains(strings.ToLower(className), "anthropic")

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		looksLikeAnthropic = true
		if apiErr.StatusCode == 400 && strings.Contains(strings.ToLower(apiErr.Error()), "prompt is too long") {
			return true
		}
	}

	if !looksLikeAnthropic {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "prompt is too long")
}

func checkGemini(err error) bool {
	className, module := errClassInfo(err)
	lowerClass := strings.ToLower(className)
	lowerModule := strings.ToLower(module)
	lowerMsg := strings.ToLower(err.Error())

	looksLikeGemini := strings.Contains(lowerModule, "gemini") || strings.Contains(lowerModule, "google") ||
		strings.Contains(lowerClass, "resourceexhausted") || strings.Contains(lowerClass, "googlegenerativeaifetcherror")
	if !looksLikeGemini {
		return false
	}
	if strings.Contains(lowerClass, "resourceexhausted") || strings.Contains(lowerClass, "googlegenerativeaifetcherror") {
		return true
	}
	return strings.Contains(lowerMsg, "resourceexhausted") || strings.Contains(lowerMsg, "resource_exhausted")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
