package handler

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiterWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := newLimiter()
	l.now = func() time.Time { return now }

	for i := 0; i < rateMaxRequests; i++ {
		allowed, remaining, _ := l.allow("1.2.3.4")
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if remaining != rateMaxRequests-i-1 {
			t.Errorf("request %d: remaining = %d, want %d", i+1, remaining, rateMaxRequests-i-1)
		}
	}

	allowed, remaining, resetIn := l.allow("1.2.3.4")
	if allowed {
		t.Error("request over the limit should be blocked")
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
	if resetIn <= 0 || resetIn > 61 {
		t.Errorf("resetIn = %d, want within a minute", resetIn)
	}

	// A different client is unaffected.
	if allowed, _, _ := l.allow("5.6.7.8"); !allowed {
		t.Error("other clients should not share the limit")
	}

	// After the window passes, the first client is allowed again.
	now = now.Add(rateWindow + time.Second)
	if allowed, _, _ := l.allow("1.2.3.4"); !allowed {
		t.Error("expected the limit to reset after the window")
	}
}

func TestLimiterCleanup(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := newLimiter()
	l.now = func() time.Time { return now }

	l.allow("a")
	l.allow("b")
	if len(l.entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(l.entries))
	}

	now = now.Add(2 * rateWindow)
	l.cleanup()
	if len(l.entries) != 0 {
		t.Errorf("expected empty map after cleanup, got %d entries", len(l.entries))
	}
}

func TestClientID(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		want       string
	}{
		{"remote addr", "10.0.0.1:12345", "", "", "10.0.0.1"},
		{"forwarded single", "10.0.0.1:12345", "203.0.113.7", "", "203.0.113.7"},
		{"forwarded chain", "10.0.0.1:12345", "203.0.113.7, 10.0.0.2", "", "203.0.113.7"},
		{"real ip", "10.0.0.1:12345", "", "203.0.113.9", "203.0.113.9"},
		{"forwarded wins over real ip", "10.0.0.1:12345", "203.0.113.7", "203.0.113.9", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := clientID(r); got != tt.want {
				t.Errorf("clientID() = %q, want %q", got, tt.want)
			}
		})
	}
}
