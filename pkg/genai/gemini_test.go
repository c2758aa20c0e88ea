package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"portfolio-ai-be/internal/apperror"
)

func newTestGenerator(url string) *GeminiGenerator {
	g := NewGeminiGenerator("test-key", "gemini-1.5-flash")
	g.BaseURL = url
	return g
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-1.5-flash:generateContent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}

		var req GeminiChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Role != RoleUser {
			t.Errorf("unexpected request contents: %+v", req.Contents)
		}

		json.NewEncoder(w).Encode(GeminiChatResponse{
			Candidates: []*GeminiChatCandidate{
				{Content: &GeminiChatContent{
					Parts: []*GeminiChatParts{{Text: "Hello "}, {Text: "there"}},
					Role:  RoleModel,
				}},
			},
		})
	}))
	defer srv.Close()

	g := newTestGenerator(srv.URL)
	got, err := g.Generate(context.Background(), []*Turn{{Content: "Hi", Role: RoleUser}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello there" {
		t.Errorf("Generate = %q, want %q", got, "Hello there")
	}
}

func TestGenerateUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := newTestGenerator(srv.URL)
	_, err := g.Generate(context.Background(), []*Turn{{Content: "Hi", Role: RoleUser}})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !apperror.IsUpstream(err) {
		t.Errorf("expected upstream error, got %T: %v", err, err)
	}
}

func TestGenerateEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(GeminiChatResponse{})
	}))
	defer srv.Close()

	g := newTestGenerator(srv.URL)
	_, err := g.Generate(context.Background(), []*Turn{{Content: "Hi", Role: RoleUser}})
	if !apperror.IsUpstream(err) {
		t.Errorf("expected upstream error for empty candidates, got %v", err)
	}
}

func TestGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-1.5-flash:streamGenerateContent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "sse" {
			t.Errorf("missing alt=sse query param")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, text := range []string{"The ", "answer ", "is 42."} {
			payload, _ := json.Marshal(GeminiChatResponse{
				Candidates: []*GeminiChatCandidate{
					{Content: &GeminiChatContent{Parts: []*GeminiChatParts{{Text: text}}}},
				},
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	g := newTestGenerator(srv.URL)
	stream, err := g.GenerateStream(context.Background(), []*Turn{{Content: "Hi", Role: RoleUser}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var full string
	var done bool
	for chunk := range stream {
		if chunk.Done {
			done = true
			if chunk.Err != nil {
				t.Errorf("unexpected stream error: %v", chunk.Err)
			}
			continue
		}
		full += chunk.Text
	}

	if !done {
		t.Error("stream never sent a done chunk")
	}
	if full != "The answer is 42." {
		t.Errorf("streamed text = %q, want %q", full, "The answer is 42.")
	}
}

func TestGenerateStreamSkipsMalformedFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {not json}\n\n")
		fmt.Fprint(w, ": keepalive comment\n\n")
		payload, _ := json.Marshal(GeminiChatResponse{
			Candidates: []*GeminiChatCandidate{
				{Content: &GeminiChatContent{Parts: []*GeminiChatParts{{Text: "ok"}}}},
			},
		})
		fmt.Fprintf(w, "data: %s\n\n", payload)
	}))
	defer srv.Close()

	g := newTestGenerator(srv.URL)
	stream, err := g.GenerateStream(context.Background(), []*Turn{{Content: "Hi", Role: RoleUser}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var texts []string
	for chunk := range stream {
		if !chunk.Done {
			texts = append(texts, chunk.Text)
		}
	}
	if len(texts) != 1 || texts[0] != "ok" {
		t.Errorf("texts = %v, want [ok]", texts)
	}
}

func TestGenerateStreamUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	g := newTestGenerator(srv.URL)
	_, err := g.GenerateStream(context.Background(), []*Turn{{Content: "Hi", Role: RoleUser}})
	if !apperror.IsUpstream(err) {
		t.Errorf("expected upstream error, got %v", err)
	}
}
