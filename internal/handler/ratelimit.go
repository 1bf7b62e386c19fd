package handler

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pavelanni/gradeboard/internal/i18n"
)

const (
	rateWindow      = time.Minute
	rateMaxRequests = 20
)

// limiter is an in-memory sliding-window rate limiter keyed by client
// identifier. State lives in process memory, so limits apply per instance.
type limiter struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	now     func() time.Time
}

func newLimiter() *limiter {
	return &limiter{
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// allow records a request for id and reports whether it is within the
// window limit. resetIn is the seconds until a slot frees up.
func (l *limiter) allow(id string) (allowed bool, remaining, resetIn int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-rateWindow)

	recent := l.entries[id][:0]
	for _, ts := range l.entries[id] {
		if ts.After(windowStart) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= rateMaxRequests {
		l.entries[id] = recent
		resetIn = int(recent[0].Add(rateWindow).Sub(now).Seconds()) + 1
		return false, 0, resetIn
	}

	l.entries[id] = append(recent, now)
	return true, rateMaxRequests - len(l.entries[id]), int(rateWindow.Seconds())
}

// cleanup drops identifiers with no requests inside the window.
func (l *limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := l.now().Add(-rateWindow)
	for id, times := range l.entries {
		recent := times[:0]
		for _, ts := range times {
			if ts.After(windowStart) {
				recent = append(recent, ts)
			}
		}
		if len(recent) == 0 {
			delete(l.entries, id)
		} else {
			l.entries[id] = recent
		}
	}
}

// rateLimit guards the LLM-backed endpoints.
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, _, resetIn := h.limiter.allow(clientID(r))
		if !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", resetIn))
			h.jsonError(w, r, http.StatusTooManyRequests, i18n.T(r.Context(), "RateLimited"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID identifies the caller: first X-Forwarded-For hop, then
// X-Real-IP, then the connection's remote address.
func clientID(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx != -1 {
			forwarded = forwarded[:idx]
		}
		return strings.TrimSpace(forwarded)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
