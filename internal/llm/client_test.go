package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestComplete_Text(t *testing.T) {
	var gotAuth, gotPath string
	var got ChatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":"¡Hola!"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL+"/", "")
	choice, err := c.Complete(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hola"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if choice.Message.Content != "¡Hola!" {
		t.Errorf("content = %q", choice.Message.Content)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if got.Model != DefaultModel {
		t.Errorf("model = %q, want default %q", got.Model, DefaultModel)
	}
}

func TestComplete_ToolCalls(t *testing.T) {
	var raw map[string]json.RawMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":null,"tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"web-search","arguments":"{\"query\":\"clima\"}"}}
		]},"finish_reason":"tool_calls"}]}`)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "gpt-test")
	choice, err := c.Complete(context.Background(), ChatRequest{
		Messages:   []Message{{Role: RoleUser, Content: "clima"}},
		Tools:      []Tool{NewTool("web-search", "Busca", Object(map[string]SchemaProperty{"query": {Type: "string"}}, "query"))},
		ToolChoice: ToolChoiceAuto,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	calls := choice.Message.ToolCalls
	if len(calls) != 1 || calls[0].Function.Name != "web-search" || calls[0].ID != "call_1" {
		t.Fatalf("tool calls = %+v", calls)
	}
	if calls[0].Function.Arguments != `{"query":"clima"}` {
		t.Errorf("arguments = %q", calls[0].Function.Arguments)
	}

	if !strings.Contains(string(raw["tools"]), `"name":"web-search"`) {
		t.Errorf("tools not sent: %s", raw["tools"])
	}
	if string(raw["tool_choice"]) != `"auto"` {
		t.Errorf("tool_choice = %s", raw["tool_choice"])
	}
	if string(raw["model"]) != `"gpt-test"` {
		t.Errorf("model = %s", raw["model"])
	}
}

func TestObject_EmptyPropertiesEncodeAsObject(t *testing.T) {
	b, err := json.Marshal(Object(nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"type":"object","properties":{}}` {
		t.Errorf("schema = %s", b)
	}
}

func TestStructured(t *testing.T) {
	var raw map[string]json.RawMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"{\"minutes\":120,\"valid\":true}"}}]}`)
	}))
	defer srv.Close()

	var out struct {
		Minutes float64 `json:"minutes"`
		Valid   bool    `json:"valid"`
	}
	c := NewClient("k", srv.URL, "")
	schema := Object(map[string]SchemaProperty{
		"minutes": {Type: "number"},
		"valid":   {Type: "boolean"},
	}, "minutes", "valid")
	if err := c.Structured(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, "time", schema, &out); err != nil {
		t.Fatalf("Structured: %v", err)
	}
	if out.Minutes != 120 || !out.Valid {
		t.Errorf("out = %+v", out)
	}
	if !strings.Contains(string(raw["response_format"]), `"type":"json_schema"`) {
		t.Errorf("response_format = %s", raw["response_format"])
	}
}

func TestStructured_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"no es json"}}]}`)
	}))
	defer srv.Close()

	var out map[string]any
	c := NewClient("k", srv.URL, "")
	if err := c.Structured(context.Background(), nil, "x", Object(nil), &out); err == nil {
		t.Error("expected decode error")
	}
}

func TestComplete_RateLimitRetry(t *testing.T) {
	var attempt atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempt.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "")
	choice, err := c.Complete(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if choice.Message.Content != "ok" {
		t.Errorf("content = %q", choice.Message.Content)
	}
	if n := attempt.Load(); n != 2 {
		t.Errorf("attempts = %d, want 2", n)
	}
}

func TestComplete_RateLimitExhausted(t *testing.T) {
	var attempt atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "")
	_, err := c.Complete(context.Background(), ChatRequest{})
	if err == nil || !isRateLimit(err) {
		t.Fatalf("err = %v, want rate limit error", err)
	}
	if n := attempt.Load(); n != maxRetries {
		t.Errorf("attempts = %d, want %d", n, maxRetries)
	}
}

func TestComplete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := NewClient("bad", srv.URL, "")
	_, err := c.Complete(context.Background(), ChatRequest{})
	if err == nil || !strings.Contains(err.Error(), "Incorrect API key provided") {
		t.Errorf("err = %v, want API message", err)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"c1","choices":[]}`)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "")
	if _, err := c.Complete(context.Background(), ChatRequest{}); !errors.Is(err, ErrNoChoices) {
		t.Errorf("err = %v, want ErrNoChoices", err)
	}
}
