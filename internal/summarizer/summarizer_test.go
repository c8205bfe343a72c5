package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// stubCompletion serves an OpenAI-compatible chat completion response and
// captures the request for inspection.
func stubCompletion(t *testing.T, reply string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}))
	return srv, &captured
}

func TestSummarize(t *testing.T) {
	srv, captured := stubCompletion(t, "  Customer wants a refund.  ")
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	got, err := c.Summarize(context.Background(), "I need a refund", map[string]string{
		"name": "alice", "issue": "refund",
	})
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if got != "Customer wants a refund." {
		t.Errorf("expected trimmed reply, got %q", got)
	}

	req := *captured
	if req["model"] != model {
		t.Errorf("expected model %s, got %v", model, req["model"])
	}
	msgs := req["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(msgs))
	}
	user := msgs[1].(map[string]any)["content"].(string)
	if !strings.Contains(user, "Caller: alice") || !strings.Contains(user, "Issue: refund") {
		t.Errorf("expected caller context in prompt, got %q", user)
	}
	if !strings.Contains(user, "I need a refund") {
		t.Errorf("expected transcript in prompt, got %q", user)
	}
}

func TestSummarize_NoCallerInfo(t *testing.T) {
	srv, captured := stubCompletion(t, "summary")
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	if _, err := c.Summarize(context.Background(), "hello", nil); err != nil {
		t.Fatalf("summarize failed: %v", err)
	}

	user := (*captured)["messages"].([]any)[1].(map[string]any)["content"].(string)
	if strings.Contains(user, "Caller:") {
		t.Errorf("expected no caller context lines, got %q", user)
	}
}

func TestScript(t *testing.T) {
	srv, captured := stubCompletion(t, "Hi Bob, I have Alice on the line.")
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	got, err := c.Script(context.Background(), "wants refund", "bob", "alice")
	if err != nil {
		t.Fatalf("script failed: %v", err)
	}
	if got != "Hi Bob, I have Alice on the line." {
		t.Errorf("unexpected script: %q", got)
	}

	user := (*captured)["messages"].([]any)[1].(map[string]any)["content"].(string)
	for _, want := range []string{"bob", "alice", "wants refund"} {
		if !strings.Contains(user, want) {
			t.Errorf("expected %q in prompt, got %q", want, user)
		}
	}
}

func TestSummarize_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	if _, err := c.Summarize(context.Background(), "hello", nil); err == nil {
		t.Error("expected error from failing upstream")
	}
}
