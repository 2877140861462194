package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-labgen/internal/inference/config"
	"github.com/yungbote/neurobridge-labgen/internal/inference/engine"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func chatResponse(content string) *http.Response {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	})
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func statusResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

var labSchema = &engine.JSONSchema{
	Name:   "personalized_lab",
	Schema: map[string]any{"type": "object"},
	Strict: true,
}

func TestGenerateText_RequestShape(t *testing.T) {
	cfg := config.EngineConfig{
		Type:       "oai_http",
		BaseURL:    "http://upstream/",
		APIKey:     "sk-test",
		Timeout:    config.Duration{Duration: 2 * time.Second},
		JSONSchema: config.JSONSchemaConfig{Mode: "response_format"},
	}
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("authorization=%q", got)
		}
		var payload map[string]any
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if payload["model"] != "gpt-4" {
			t.Fatalf("model=%v", payload["model"])
		}
		if payload["max_tokens"] != float64(4096) {
			t.Fatalf("max_tokens=%v", payload["max_tokens"])
		}
		if payload["temperature"] != 0.7 {
			t.Fatalf("temperature=%v", payload["temperature"])
		}
		rf, _ := payload["response_format"].(map[string]any)
		if rf["type"] != "json_schema" {
			t.Fatalf("response_format=%v", rf)
		}
		return chatResponse("```json\n{\"title\":\"x\"}\n```"), nil
	})}

	e, err := NewWithHTTPClient(cfg, client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	out, err := e.GenerateText(context.Background(), "gpt-4", []engine.Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "user"},
	}, engine.GenerateOptions{Temperature: 0.7, MaxTokens: 4096, JSONSchema: labSchema})
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out != `{"title":"x"}` {
		t.Fatalf("out=%q", out)
	}
}

func TestGenerateText_JSONSchemaAutoRetries(t *testing.T) {
	var calls int32

	cfg := config.EngineConfig{
		Type:    "oai_http",
		BaseURL: "http://upstream",
		Timeout: config.Duration{Duration: 2 * time.Second},
		JSONSchema: config.JSONSchemaConfig{
			Mode:           "auto",
			MaxRetries:     2,
			MaxPromptBytes: 4096,
		},
	}

	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		n := atomic.AddInt32(&calls, 1)

		var payload map[string]any
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		msgsAny, _ := payload["messages"].([]any)

		if n == 1 {
			if _, ok := payload["response_format"]; !ok {
				t.Fatalf("expected response_format on first attempt")
			}
			if len(msgsAny) != 2 {
				t.Fatalf("expected 2 messages on first attempt, got %d", len(msgsAny))
			}
			return chatResponse("not json"), nil
		}

		if _, ok := payload["response_format"]; ok {
			t.Fatalf("did not expect response_format on retry")
		}
		if len(msgsAny) != 3 {
			t.Fatalf("expected 3 messages on retry, got %d", len(msgsAny))
		}
		return chatResponse(`{"ok":true}`), nil
	})}

	e, err := NewWithHTTPClient(cfg, client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}

	out, err := e.GenerateText(context.Background(), "upstream-model", []engine.Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "user"},
	}, engine.GenerateOptions{JSONSchema: labSchema})
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if strings.TrimSpace(out) != `{"ok":true}` {
		t.Fatalf("out=%q", out)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls=%d", got)
	}
}

func TestGenerateText_InvalidJSONReturnedRawWithoutRetries(t *testing.T) {
	cfg := config.EngineConfig{Type: "oai_http", BaseURL: "http://upstream"}
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return chatResponse("Sure! Here is your lab."), nil
	})}
	e, _ := NewWithHTTPClient(cfg, client)
	out, err := e.GenerateText(context.Background(), "m", []engine.Message{{Role: "user", Content: "u"}},
		engine.GenerateOptions{JSONSchema: labSchema})
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out != "Sure! Here is your lab." {
		t.Fatalf("out=%q", out)
	}
}

func TestGenerateText_RetriesRetryableStatus(t *testing.T) {
	var calls int32
	cfg := config.EngineConfig{
		Type:         "oai_http",
		BaseURL:      "http://upstream",
		MaxRetries:   1,
		RetryBackoff: config.Duration{Duration: time.Millisecond},
	}
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return statusResponse(http.StatusServiceUnavailable, "busy"), nil
		}
		return chatResponse("hello"), nil
	})}
	e, _ := NewWithHTTPClient(cfg, client)
	out, err := e.GenerateText(context.Background(), "m", []engine.Message{{Role: "user", Content: "u"}}, engine.GenerateOptions{})
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out != "hello" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("out=%q calls=%d", out, calls)
	}
}

func TestGenerateText_NoRetryByDefault(t *testing.T) {
	var calls int32
	cfg := config.EngineConfig{Type: "oai_http", BaseURL: "http://upstream"}
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return statusResponse(http.StatusInternalServerError, "boom"), nil
	})}
	e, _ := NewWithHTTPClient(cfg, client)
	_, err := e.GenerateText(context.Background(), "m", []engine.Message{{Role: "user", Content: "u"}}, engine.GenerateOptions{})
	var he *HTTPError
	if !errors.As(err, &he) || he.HTTPStatusCode() != http.StatusInternalServerError {
		t.Fatalf("err=%v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestGenerateText_NoMessages(t *testing.T) {
	e, err := New(config.EngineConfig{Type: "oai_http", BaseURL: "http://upstream"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.GenerateText(context.Background(), "m", []engine.Message{{Role: "user", Content: "  "}}, engine.GenerateOptions{}); err == nil {
		t.Fatalf("expected error for empty messages")
	}
	if _, err := New(config.EngineConfig{Type: "oai_http"}); err == nil {
		t.Fatalf("expected error for missing base_url")
	}
}
