package httpx

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type statusErr int

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", statusErr(429), true},
		{"503 wrapped", fmt.Errorf("call: %w", statusErr(503)), true},
		{"401", statusErr(401), false},
		{"deadline", context.DeadlineExceeded, false},
		{"canceled", context.Canceled, false},
		{"plain", fmt.Errorf("boom"), false},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	if got := StatusLabel(statusErr(429)); got != "429" {
		t.Fatalf("got %q", got)
	}
	if got := StatusLabel(fmt.Errorf("x: %w", context.DeadlineExceeded)); got != "timeout" {
		t.Fatalf("got %q", got)
	}
	if got := StatusLabel(nil); got != "200" {
		t.Fatalf("got %q", got)
	}
}

func TestRetryAfterDuration(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "30")
	if got := RetryAfterDuration(h, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("capped=%v", got)
	}
	if got := RetryAfterDuration(nil, 2*time.Second, 0); got != 2*time.Second {
		t.Fatalf("fallback=%v", got)
	}
}

func TestSleepContext_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); err == nil {
		t.Fatalf("expected ctx error")
	}
}
