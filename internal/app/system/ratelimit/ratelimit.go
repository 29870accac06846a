// internal/app/system/ratelimit/ratelimit.go

// Package ratelimit throttles login attempts. Limits are tracked per
// client IP and per login identifier (phone number or email), so neither
// a single host hammering many accounts nor many hosts hammering one
// account gets through.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter counts events per key in fixed windows. Safe for concurrent use.
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

func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
	}
	go l.sweep()
	return l
}

// Allow records one event for key and reports whether it stays under the
// window's limit.
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

// Reset drops the window for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// sweep drops expired windows so abandoned keys do not accumulate.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(2 * l.duration)
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

// ClientIP extracts the client IP, preferring the proxy headers the
// deployment's reverse proxy sets over RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
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

// LoginLimiter combines the per-IP and per-identifier limits for the
// login endpoint.
type LoginLimiter struct {
	ip         *Limiter
	identifier *Limiter
}

// NewLoginLimiter applies the login defaults: 10 attempts per IP per
// minute, 5 attempts per identifier per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		ip:         New(10, time.Minute),
		identifier: New(5, 5*time.Minute),
	}
}

// Check records one attempt and reports whether it is allowed, with a
// user-facing reason when it is not.
func (ll *LoginLimiter) Check(r *http.Request, identifier string) (bool, string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, "Too many login attempts. Please wait a minute before trying again."
	}
	if identifier != "" {
		if !ll.identifier.Allow(identifierKey(identifier)) {
			return false, "Too many login attempts for this account. Please wait a few minutes."
		}
	}
	return true, ""
}

// ResetIdentifier clears the identifier's window after a successful
// login, so a legitimate user who fumbled their password is not locked
// out of their next session.
func (ll *LoginLimiter) ResetIdentifier(identifier string) {
	if identifier != "" {
		ll.identifier.Reset(identifierKey(identifier))
	}
}

func identifierKey(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
