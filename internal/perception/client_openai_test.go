package perception

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func openAIServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func completionJSON(content string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return body
}

func newTestClient(url string, retries int) *OpenAIClient {
	return NewOpenAIClientWithConfig(OpenAIConfig{
		APIKey:      "test-key",
		BaseURL:     url,
		Model:       "gpt-4",
		Temperature: 0.3,
		Timeout:     5 * time.Second,
		MaxRetries:  retries,
	})
}

func TestOpenAICompleteSuccess(t *testing.T) {
	var gotReq OpenAIRequest
	srv := openAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth header = %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write(completionJSON("  {\"Cluster\": \"0\"}  "))
	})

	client := newTestClient(srv.URL, 0)
	got, err := client.Complete(context.Background(), "classify this cluster")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"Cluster": "0"}` {
		t.Errorf("completion = %q, want trimmed content", got)
	}
	if gotReq.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", gotReq.Temperature)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("messages = %+v, want single user message", gotReq.Messages)
	}
}

func TestOpenAICompleteRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := openAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(completionJSON("ok"))
	})

	client := newTestClient(srv.URL, 2)
	got, err := client.Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "ok" {
		t.Errorf("completion = %q", got)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestOpenAICompleteNoRetryBaseline(t *testing.T) {
	var calls int32
	srv := openAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client := newTestClient(srv.URL, 0)
	_, err := client.Complete(context.Background(), "p")
	if err == nil {
		t.Fatal("expected rate-limit error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want exactly 1 with retries disabled", calls)
	}
}

func TestOpenAICompleteUnauthorized(t *testing.T) {
	srv := openAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client := newTestClient(srv.URL, 3)
	_, err := client.Complete(context.Background(), "p")
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Fatalf("err = %v, want ErrAPIKeyMissing kind", err)
	}
}

func TestOpenAICompleteMissingKey(t *testing.T) {
	client := NewOpenAIClient("")
	_, err := client.Complete(context.Background(), "p")
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Fatalf("err = %v, want ErrAPIKeyMissing", err)
	}
}

func TestOpenAICompleteEmptyChoices(t *testing.T) {
	srv := openAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	})

	client := newTestClient(srv.URL, 0)
	_, err := client.Complete(context.Background(), "p")
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestOpenAICompleteAPIError(t *testing.T) {
	srv := openAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"message": "model overloaded", "type": "server_error"}}`))
	})

	client := newTestClient(srv.URL, 0)
	_, err := client.Complete(context.Background(), "p")
	if err == nil || err.Error() != "API error: model overloaded" {
		t.Fatalf("err = %v, want API error surfaced", err)
	}
}
