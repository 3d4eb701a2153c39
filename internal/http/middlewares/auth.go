package middlewares

import (
	"net/http"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/minijohn/internal/http/errors"
)

// =================================================================================
// AUTHENTICATION MIDDLEWARES
// =================================================================================

// AccessTokenVerifier valida un access token (firma, iss, exp, token_use).
type AccessTokenVerifier interface {
	VerifyAccessToken(raw string) (jwtv5.MapClaims, error)
}

// BearerToken extrae el token de "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(ah) < len("Bearer ") || !strings.EqualFold(ah[:len("Bearer ")], "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(ah[len("Bearer "):])
	return raw, raw != ""
}

// RequireAuth valida Authorization: Bearer <JWT> y guarda las claims en el contexto.
// Si el token es inválido o no está presente, responde 401.
func RequireAuth(v AccessTokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="missing bearer token"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}

			claims, err := v.VerifyAccessToken(raw)
			if err != nil {
				// el detalle va al log, no al cliente
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				errors.WriteError(w, errors.ErrTokenInvalid.WithCause(err))
				return
			}

			ctx := WithClaims(r.Context(), claims)
			if sub := ClaimString(claims, "sub"); sub != "" {
				ctx = WithUserID(ctx, sub)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
