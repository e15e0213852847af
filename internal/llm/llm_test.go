package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

// fakeAPI emulates the chat, embedding and model endpoints of an
// OpenAI-compatible server. failures is the number of leading requests
// that get failStatus.
type fakeAPI struct {
	failures   int32
	failStatus int
	delay      time.Duration
	calls      atomic.Int32
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	fail := func(w http.ResponseWriter) bool {
		n := f.calls.Add(1)
		if n <= f.failures {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.failStatus)
			w.Write([]byte(`{"error":{"message":"simulated failure","type":"server_error"}}`))
			return true
		}
		return false
	}
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if fail(w) {
			return
		}
		if f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-r.Context().Done():
				return
			}
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		last := req.Messages[len(req.Messages)-1].Content
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "  echo: " + last + "\n"},
				"finish_reason": "stop",
			}},
		})
	})
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		if fail(w) {
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		data := make([]map[string]any, len(req.Input))
		for i, in := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{float32(len(in)), 1}}
		}
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "test-embed"})
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeAPI, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:        srv.URL + "/v1",
		APIKey:         "test",
		ChatModel:      "test-chat",
		EmbeddingModel: "test-embed",
		Timeout:        timeout,
		Retries:        1,
		RetryInterval:  time.Millisecond,
	}, nil)
}

func TestGenerate(t *testing.T) {
	c := newTestClient(t, &fakeAPI{}, time.Second)
	got, err := c.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "echo: hello" {
		t.Errorf("Generate = %q, want trimmed echo", got)
	}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		status    int
		wantErr   bool
		transient bool
		wantCalls int32
	}{
		{"recovers after one transient failure", 1, http.StatusServiceUnavailable, false, false, 2},
		{"gives up after one retry", 5, http.StatusTooManyRequests, true, true, 2},
		{"does not retry client errors", 5, http.StatusBadRequest, true, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeAPI{failures: tt.failures, failStatus: tt.status}
			c := newTestClient(t, f, time.Second)
			_, err := c.Generate(context.Background(), "hi")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && errors.Is(err, model.ErrUpstreamTransient) != tt.transient {
				t.Errorf("err = %v, transient %v", err, tt.transient)
			}
			if got := f.calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestPerCallTimeout(t *testing.T) {
	f := &fakeAPI{delay: 500 * time.Millisecond}
	c := newTestClient(t, f, 50*time.Millisecond)
	_, err := c.Generate(context.Background(), "slow")
	if !errors.Is(err, model.ErrUpstreamTransient) {
		t.Errorf("err = %v, want ErrUpstreamTransient after timeouts", err)
	}
}

func TestCallerCancellation(t *testing.T) {
	c := newTestClient(t, &fakeAPI{}, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Generate(ctx, "hi")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestEmbed(t *testing.T) {
	c := newTestClient(t, &fakeAPI{}, time.Second)
	vecs, err := c.Embed(context.Background(), []string{"a", "abc"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][0] != 3 {
		t.Errorf("Embed = %v", vecs)
	}
	if vecs, err := c.Embed(context.Background(), nil); err != nil || vecs != nil {
		t.Errorf("Embed(nil) = %v, %v", vecs, err)
	}
}

func TestPing(t *testing.T) {
	c := newTestClient(t, &fakeAPI{}, time.Second)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
