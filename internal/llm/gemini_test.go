package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGeminiClientExplainParsesFirstCandidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if len(req.Contents) == 0 || len(req.Contents[0].Parts) == 0 {
			t.Fatal("expected a rendered prompt in the request body")
		}

		resp := geminiResponse{}
		resp.Candidates = []struct {
			Content struct {
				Parts []geminiPart `json:"parts"`
			} `json:"content"`
		}{
			{Content: struct {
				Parts []geminiPart `json:"parts"`
			}{Parts: []geminiPart{{Text: "approval rates dropped due to issuer timeouts"}}}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := &GeminiClient{apiKey: "test-key", baseURL: server.URL, http: &http.Client{Timeout: time.Second}}

	text, err := client.Explain(context.Background(), Request{Provider: "stripe"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "approval rates dropped due to issuer timeouts" {
		t.Fatalf("got %q", text)
	}
}

func TestGeminiClientExplainErrorsOnNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	client := &GeminiClient{apiKey: "test-key", baseURL: server.URL, http: &http.Client{Timeout: time.Second}}

	if _, err := client.Explain(context.Background(), Request{}); err == nil {
		t.Fatal("expected an error on a non-200 response")
	}
}
