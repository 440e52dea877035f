package llm

import (
	"fmt"
	"net/http"
	"time"
)

// New builds the configured provider's Client wrapped in the default
// bounded-retry policy, per spec.md §6's LLM_PROVIDER variable.
func New(provider, geminiKey, openaiKey string, timeout time.Duration) (Client, error) {
	httpClient := &http.Client{Timeout: timeout}

	var inner Client
	switch provider {
	case "gemini":
		if geminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY required for LLM_PROVIDER=gemini")
		}
		inner = NewGeminiClient(geminiKey, httpClient)
	case "openai":
		if openaiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY required for LLM_PROVIDER=openai")
		}
		inner = NewOpenAIClient(openaiKey, httpClient)
	case "none":
		inner = NoneClient{}
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", provider)
	}

	return NewRetryingClient(inner, DefaultRetryPolicy()), nil
}
