package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func chatResponse(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(body)
}

func newTestGenerator(t *testing.T, handler http.HandlerFunc) (*OpenAIGenerator, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	gen, err := NewOpenAIGenerator(OpenAIGeneratorConfig{
		BaseURL:           srv.URL,
		APIKey:            "test-key",
		Model:             "test-model",
		RequestsPerSecond: 1000,
	})
	if err != nil {
		t.Fatalf("NewOpenAIGenerator: %v", err)
	}
	return gen, srv
}

func TestGenerate_SendsMessagesAndReturnsContent(t *testing.T) {
	var gotReq struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	gen, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization: %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(chatResponse("Paris is the capital.")))
	})

	got, err := gen.Generate(context.Background(), "You are a tutor.", "What is the capital of France?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Paris is the capital." {
		t.Errorf("content: %q", got)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("model: %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("messages: %+v", gotReq.Messages)
	}
}

func TestGenerate_OmitsEmptySystemMessage(t *testing.T) {
	gen, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages: %+v", req.Messages)
		}
		w.Write([]byte(chatResponse("ok")))
	})
	if _, err := gen.Generate(context.Background(), "", "hello"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

func TestGenerate_RetriesServerErrors(t *testing.T) {
	attempts := 0
	gen, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(chatResponse("recovered")))
	})

	got, err := gen.Generate(context.Background(), "", "q")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "recovered" {
		t.Errorf("content: %q", got)
	}
	if attempts != 3 {
		t.Errorf("attempts: %d", attempts)
	}
}

func TestGenerate_DoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	gen, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	if _, err := gen.Generate(context.Background(), "", "q"); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts: %d", attempts)
	}
}

func TestGenerate_EmptyChoices(t *testing.T) {
	gen, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	})
	if _, err := gen.Generate(context.Background(), "", "q"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestGenerate_ContextCancellation(t *testing.T) {
	gen, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(chatResponse("late")))
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := gen.Generate(ctx, "", "q"); err == nil {
		t.Fatal("expected error after cancellation")
	}
}

func TestNewOpenAIGenerator_RequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIGenerator(OpenAIGeneratorConfig{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestMockGenerator_CyclesResponses(t *testing.T) {
	m := &MockGenerator{Responses: []string{"a", "b"}}
	ctx := context.Background()
	for i, want := range []string{"a", "b", "b"} {
		got, err := m.Generate(ctx, "sys", "user")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got != want {
			t.Errorf("call %d: got %q, want %q", i, got, want)
		}
	}
	if m.LastSystem != "sys" || m.LastUser != "user" {
		t.Errorf("recorded prompts: %q / %q", m.LastSystem, m.LastUser)
	}
}
