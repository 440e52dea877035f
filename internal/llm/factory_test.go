package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRejectsGeminiWithoutKey(t *testing.T) {
	if _, err := New("gemini", "", "", time.Second); err == nil {
		t.Fatal("expected an error when GEMINI_API_KEY is missing")
	}
}

func TestNewRejectsOpenAIWithoutKey(t *testing.T) {
	if _, err := New("openai", "", "", time.Second); err == nil {
		t.Fatal("expected an error when OPENAI_API_KEY is missing")
	}
}

func TestNewRejectsUnsupportedProvider(t *testing.T) {
	if _, err := New("claude", "", "", time.Second); err == nil {
		t.Fatal("expected an error for an unsupported provider")
	}
}

func TestNewNoneProviderNeedsNoCredentials(t *testing.T) {
	if _, err := New("none", "", "", time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNoneClientAlwaysReturnsSentinelError(t *testing.T) {
	if _, err := (NoneClient{}).Explain(context.Background(), Request{}); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}
