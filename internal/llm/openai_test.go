package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOpenAIClientExplainParsesFirstChoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Fatalf("expected bearer auth header, got %q", auth)
		}
		resp := openaiChatResponse{Choices: []struct {
			Message openaiMessage `json:"message"`
		}{{Message: openaiMessage{Role: "assistant", Content: "decline rate spiked on a single issuer"}}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := &OpenAIClient{apiKey: "test-key", baseURL: server.URL, http: &http.Client{Timeout: time.Second}}

	text, err := client.Explain(context.Background(), Request{Provider: "adyen"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "decline rate spiked on a single issuer" {
		t.Fatalf("got %q", text)
	}
}

func TestOpenAIClientExplainErrorsOnEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiChatResponse{})
	}))
	defer server.Close()

	client := &OpenAIClient{apiKey: "test-key", baseURL: server.URL, http: &http.Client{Timeout: time.Second}}

	if _, err := client.Explain(context.Background(), Request{}); err == nil {
		t.Fatal("expected an error when the response has no choices")
	}
}
