package middlewares

import (
	"net/http"
	"strings"
)

// isHTTPS detecta HTTPS directo o detrás de proxy.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
	// El form de login postea a nuestro propio submit, que responde 302 al
	// redirect_uri del cliente; form-action no se restringe para no cortar ese salto.
	htmlCSP = "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'; base-uri 'none'"
)

func securityHeaders(csp string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
			h.Set("Content-Security-Policy", csp)
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")

			if isHTTPS(r) {
				h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSecurityHeaders: cabeceras por defecto para endpoints JSON.
func WithSecurityHeaders() Middleware { return securityHeaders(apiCSP) }

// WithHTMLSecurityHeaders: variante para las páginas de /oauth2/authorize.
func WithHTMLSecurityHeaders() Middleware { return securityHeaders(htmlCSP) }
