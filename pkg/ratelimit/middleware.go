package ratelimit

import (
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"github.com/bft-labs/assetcdn/internal/httperr"
	"github.com/bft-labs/assetcdn/pkg/log"
)

// userAgentPrefix is how much of the User-Agent participates in a fingerprint.
const userAgentPrefix = 32

// KeyFunc derives a client fingerprint from a request.
type KeyFunc func(r *http.Request) string

// FingerprintFunc returns a KeyFunc combining the client's coarse network
// identity with a user agent prefix. When trustProxy is set the first
// X-Forwarded-For hop is used as the client address.
func FingerprintFunc(trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		return Fingerprint(r, trustProxy)
	}
}

// Fingerprint returns "<network>|<user agent prefix>" for r. IPv4 clients
// are grouped by /24 and IPv6 clients by /48.
func Fingerprint(r *http.Request, trustProxy bool) string {
	addr := clientAddr(r, trustProxy)

	network := addr
	if ip, err := netip.ParseAddr(addr); err == nil {
		ip = ip.Unmap()
		bits := 24
		if ip.Is6() {
			bits = 48
		}
		if prefix, err := ip.Prefix(bits); err == nil {
			network = prefix.String()
		}
	}

	ua := r.UserAgent()
	if len(ua) > userAgentPrefix {
		ua = ua[:userAgentPrefix]
	}
	return network + "|" + ua
}

func clientAddr(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware admits requests through l. Every response carries
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset (unix
// seconds); rejected requests receive 429 with Retry-After in seconds.
func Middleware(l *Limiter, keyFunc KeyFunc, logger log.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Allow(keyFunc(r))
			SetHeaders(w.Header(), d)

			if err := d.Err(); err != nil {
				retry := RetryAfterSeconds(d)
				w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
				logger.Debug("request rate limited",
					log.String("method", r.Method),
					log.String("path", r.URL.Path),
					log.Int("limit", d.Limit),
					log.Int64("retry_after_s", retry),
					log.Err(err),
				)
				httperr.Write(w, r, http.StatusTooManyRequests, "too many requests, retry later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetHeaders writes the X-RateLimit-* headers for d.
func SetHeaders(h http.Header, d Decision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(int64(math.Ceil(float64(d.Reset.UnixMilli())/1000)), 10))
}

// RetryAfterSeconds rounds the remaining window up to whole seconds, never
// below one.
func RetryAfterSeconds(d Decision) int64 {
	secs := int64(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
