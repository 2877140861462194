package logger

import "testing"

func TestSanitize_RedactsSecretKeys(t *testing.T) {
	l := NewNop()
	out := l.sanitize([]interface{}{"api_key", "sk-123", "concept", "CAP Theorem", "OPENAI_TOKEN", "x", "dangling"})
	if len(out) != 7 {
		t.Fatalf("len=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("api_key not redacted: %v", out[1])
	}
	if out[3] != "CAP Theorem" {
		t.Fatalf("concept altered: %v", out[3])
	}
	if out[5] != "[REDACTED]" {
		t.Fatalf("token not redacted: %v", out[5])
	}
	if out[6] != "dangling" {
		t.Fatalf("odd trailing value dropped: %v", out[6])
	}
}

func TestSanitize_Disabled(t *testing.T) {
	l := NewNop()
	l.redact = false
	out := l.sanitize([]interface{}{"password", "hunter2"})
	if out[1] != "hunter2" {
		t.Fatalf("expected passthrough, got %v", out[1])
	}
}

func TestNew_TestModeIsNop(t *testing.T) {
	l, err := New("test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("discarded", "k", "v")
	l.With("service", "x").Warn("discarded")
}
