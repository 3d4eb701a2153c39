package middlewares

import (
	"net/http"
	"strings"
)

// WithCORS maneja CORS para la lista de orígenes configurada ("*" = cualquiera).
//
// Un Origin permitido se refleja con Allow-Credentials. Un Origin no permitido
// recibe la lista configurada en Access-Control-Allow-Origin: el navegador la
// descarta y el cliente ve qué orígenes acepta el servidor.
func WithCORS(allowed []string) Middleware {
	trim := func(s string) string { return strings.TrimRight(strings.TrimSpace(s), "/") }

	alist := make([]string, 0, len(allowed))
	wildcard := false
	for _, v := range allowed {
		v = trim(v)
		if v == "" {
			continue
		}
		if v == "*" {
			wildcard = true
		}
		alist = append(alist, v)
	}
	joined := strings.Join(alist, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := trim(r.Header.Get("Origin"))

			h := w.Header()
			h.Add("Vary", "Origin")
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")

			if origin != "" {
				if wildcard || matchOrigin(alist, origin) {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Credentials", "true")
				} else if joined != "" {
					h.Set("Access-Control-Allow-Origin", joined)
				}
				h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
				h.Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After, X-RateLimit-Remaining, X-RateLimit-Reset, WWW-Authenticate, Location")
				h.Set("Access-Control-Max-Age", "600")
			}

			// Preflight
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func matchOrigin(list []string, origin string) bool {
	for _, a := range list {
		if strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
