// Package ratelimit is a sliding-window limiter for the authentication
// endpoints: OTP sends, login attempts, and password resets are throttled
// per client IP, with a second tighter window per target email so a
// distributed attacker cannot hammer one account.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/teamforge/internal/app/system/respond"
)

// Limiter counts requests per key in fixed-duration windows. Safe for
// concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit requests per key per duration.
// A background sweep reclaims expired windows.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
	}
	go l.sweep(duration * 2)
	return l
}

// Allow records a request for key and reports whether it is within the
// window's budget.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Reset clears the window for key, e.g. after a successful login.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

func (l *Limiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, w := range l.windows {
			if now.After(w.expiresAt) {
				delete(l.windows, key)
			}
		}
		l.mu.Unlock()
	}
}

// ClientIP extracts the client address, honoring proxy headers before
// falling back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// AuthLimiter throttles authentication traffic on two axes: per source IP
// and per target email address.
type AuthLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewAuthLimiter builds an AuthLimiter with the given budgets.
func NewAuthLimiter(ipLimit int, ipWindow time.Duration, emailLimit int, emailWindow time.Duration) *AuthLimiter {
	return &AuthLimiter{
		ip:    New(ipLimit, ipWindow),
		email: New(emailLimit, emailWindow),
	}
}

// DefaultAuthLimiter allows 20 requests per IP per minute and 5 per email
// per five minutes.
func DefaultAuthLimiter() *AuthLimiter {
	return NewAuthLimiter(20, time.Minute, 5, 5*time.Minute)
}

// Check reports whether a request from r targeting email is within budget,
// with a human-readable reason when it is not. An empty email skips the
// per-email check.
func (al *AuthLimiter) Check(r *http.Request, email string) (bool, string) {
	if !al.ip.Allow(ClientIP(r)) {
		return false, "Too many requests. Please wait a minute before trying again."
	}
	if email != "" {
		if !al.email.Allow(strings.ToLower(strings.TrimSpace(email))) {
			return false, "Too many attempts for this account. Please wait a few minutes."
		}
	}
	return true, ""
}

// ResetEmail clears the per-email window after a successful authentication.
func (al *AuthLimiter) ResetEmail(email string) {
	if email != "" {
		al.email.Reset(strings.ToLower(strings.TrimSpace(email)))
	}
}

// Middleware rejects over-budget requests with 429 before the handler
// runs, keyed by client IP only. Handlers that know the target email call
// Check themselves for the second axis.
func (al *AuthLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !al.ip.Allow(ClientIP(r)) {
			respond.Error(w, http.StatusTooManyRequests, "Too many requests. Please wait a minute before trying again.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
