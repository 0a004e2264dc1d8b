package middleware

import (
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"leetcode-tracker/internal/model"
)

const authPathPrefix = "/api/auth"

type clientLimiter struct {
	general  *rate.Limiter
	auth     *rate.Limiter
	lastSeen time.Time
}

const (
	maxTrackedClients = 1000
	clientIdleTTL     = 10 * time.Minute
	gcInterval        = time.Minute
)

// RateLimitMiddleware keeps one pair of token buckets per client IP. The auth
// bucket is much smaller so credential guessing against /api/auth is slow.
// Forwarding headers are only believed when the peer is a trusted proxy.
type RateLimitMiddleware struct {
	generalRPM     int
	authRPM        int
	trustedProxies []netip.Prefix
	mu             sync.Mutex
	clients        map[string]*clientLimiter
	lastGC         time.Time
	now            func() time.Time
}

func NewRateLimitMiddleware(generalRPM int, authRPM int, trustedProxies []netip.Prefix) *RateLimitMiddleware {
	if generalRPM == 0 {
		generalRPM = 100
	}
	if authRPM <= 0 {
		authRPM = 10
	}

	return &RateLimitMiddleware{
		generalRPM:     generalRPM,
		authRPM:        authRPM,
		trustedProxies: trustedProxies,
		clients:        map[string]*clientLimiter{},
		now:            time.Now,
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := m.getLimiter(clientIP(r, m.trustedProxies))

		target := limiter.general
		if strings.HasPrefix(strings.ToLower(r.URL.Path), authPathPrefix) {
			target = limiter.auth
		}

		if !target.Allow() {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, model.ErrorResponse{
				Error:   "RATE_LIMITED",
				Message: "Too many requests",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) getLimiter(clientIP string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.gcLocked(now)

	if limiter, exists := m.clients[clientIP]; exists {
		limiter.lastSeen = now
		return limiter
	}

	created := &clientLimiter{
		general:  newLimiter(m.generalRPM),
		auth:     newLimiter(m.authRPM),
		lastSeen: now,
	}
	m.clients[clientIP] = created

	return created
}

// newLimiter treats a negative rpm as unlimited.
func newLimiter(rpm int) *rate.Limiter {
	if rpm < 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
}

// gcLocked drops idle clients at most once per gcInterval.
func (m *RateLimitMiddleware) gcLocked(now time.Time) {
	if len(m.clients) < maxTrackedClients || now.Sub(m.lastGC) < gcInterval {
		return
	}
	m.lastGC = now

	cutoff := now.Add(-clientIdleTTL)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

// clientIP keys a request by its peer address. X-Forwarded-For and X-Real-IP
// are only consulted when the peer is one of trusted; the forwarded chain is
// walked right to left and the first hop that is not a trusted proxy wins.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	peer, ok := remoteAddr(r)
	if !ok {
		if strings.TrimSpace(r.RemoteAddr) == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}

	if !isTrusted(peer, trusted) {
		return peer.String()
	}

	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			hop = hop.Unmap()
			if !isTrusted(hop, trusted) {
				return hop.String()
			}
		}
	}

	if realIP, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return realIP.Unmap().String()
	}

	return peer.String()
}

func remoteAddr(r *http.Request) (netip.Addr, bool) {
	raw := strings.TrimSpace(r.RemoteAddr)
	if addrPort, err := netip.ParseAddrPort(raw); err == nil {
		return addrPort.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(raw); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
