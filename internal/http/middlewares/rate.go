package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	httperrors "github.com/dropDatabas3/minijohn/internal/http/errors"
	"github.com/dropDatabas3/minijohn/internal/observability/logger"
	"github.com/dropDatabas3/minijohn/internal/rate"
)

// clientIP extrae la IP del cliente. X-Forwarded-For sólo cuenta con
// trustForwarded: sin un proxy delante cualquiera puede inventarlo.
func clientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
			parts := strings.Split(xf, ",")
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateKeyFunc arma la clave de rate limiting de un request; ip ya viene
// resuelta según TrustForwarded.
type RateKeyFunc func(r *http.Request, ip string) string

// IPOnlyRateKey: una ventana por IP, sin leer el body.
func IPOnlyRateKey(_ *http.Request, ip string) string { return ip }

// IPPathRateKey: una ventana por IP y endpoint.
func IPPathRateKey(r *http.Request, ip string) string { return ip + "|" + r.URL.Path }

// RateLimitConfig configura WithRateLimit. Limiter nil desactiva el middleware.
type RateLimitConfig struct {
	Limiter rate.Limiter
	KeyFunc RateKeyFunc
	// TrustForwarded usa X-Forwarded-For como IP del cliente (solo detrás de un proxy propio).
	TrustForwarded bool
}

// WithRateLimit corta con 429 cuando la ventana se agota. Un error del backend
// deja pasar el request (fail-open) y se loguea.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPPathRateKey
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := cfg.Limiter.Allow(r.Context(), cfg.KeyFunc(r, clientIP(r, cfg.TrustForwarded)))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable",
					logger.Component("rate"), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			if res.WindowTTL > 0 {
				resetAt := time.Now().Add(res.WindowTTL).Unix()
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))
			}

			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter/time.Second)))
				}
				httperrors.WriteError(w, httperrors.ErrRateLimitExceeded)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}
