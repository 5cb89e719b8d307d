package middleware

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/ratelimit"
)

// RateLimitMiddleware limits requests per client IP.
type RateLimitMiddleware struct {
	limiter *ratelimit.SlidingWindow
	enabled bool
}

// NewRateLimitMiddleware creates the middleware from configuration. A
// disabled config yields a pass-through middleware.
func NewRateLimitMiddleware(cfg config.RateLimitingConfig) *RateLimitMiddleware {
	if !cfg.Enabled {
		return &RateLimitMiddleware{}
	}

	window := time.Duration(cfg.WindowSeconds) * time.Second
	cleanup := time.Duration(cfg.CleanupIntervalSeconds) * time.Second
	if cleanup <= 0 {
		cleanup = 60 * time.Second
	}

	return &RateLimitMiddleware{
		limiter: ratelimit.NewSlidingWindow(window, cfg.MaxRequests, cleanup),
		enabled: true,
	}
}

// Wrap wraps an http.Handler with rate limiting
func (m *RateLimitMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}

		ip := ClientIP(r)
		d := m.limiter.Allow(ip)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limiter.Limit()))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if !d.Allowed {
			retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			log.Printf("[RateLimit] Rate limit exceeded: %s %s (client: %s)", r.Method, r.URL.Path, maskIP(ip))
			writeRateLimitError(w, retryAfter)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Stop stops the underlying limiter.
func (m *RateLimitMiddleware) Stop() {
	if m.limiter != nil {
		m.limiter.Stop()
	}
}

// Stats reports limiter state; nil when disabled.
func (m *RateLimitMiddleware) Stats() *ratelimit.Stats {
	if m.limiter == nil {
		return nil
	}
	s := m.limiter.Stats()
	return &s
}

func writeRateLimitError(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusTooManyRequests)

	body := struct {
		Error      string `json:"error"`
		RetryAfter int    `json:"retry_after"`
	}{
		Error:      "Too many requests. Try again later.",
		RetryAfter: retryAfter,
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[RateLimit] Failed to encode error response: %v", err)
	}
}

// ClientIP extracts the client address, honouring X-Forwarded-For and
// X-Real-IP when they carry a valid IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// maskIP keeps only the network part of an address for logging.
func maskIP(addr string) string {
	ip := net.ParseIP(addr)
	if ip == nil {
		return "IP_ADDR"
	}
	if v4 := ip.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.*.*", v4[0], v4[1])
	}
	head, _, _ := strings.Cut(addr, ":")
	return head + "::*"
}
