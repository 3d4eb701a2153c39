// Package router registra las rutas HTTP sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/minijohn/internal/http"
	"github.com/dropDatabas3/minijohn/internal/http/controllers"
	httperrors "github.com/dropDatabas3/minijohn/internal/http/errors"
	mw "github.com/dropDatabas3/minijohn/internal/http/middlewares"
	"github.com/dropDatabas3/minijohn/internal/rate"
)

// Deps contiene todo lo necesario para armar el router.
type Deps struct {
	Controllers *controllers.Controllers
	// Verifier valida access tokens en /userinfo y /me.
	Verifier       mw.AccessTokenVerifier
	AllowedOrigins []string

	// Limiter nil = sin rate limit en endpoints de credenciales.
	Limiter rate.Limiter

	// TrustForwarded toma la IP de X-Forwarded-For para el rate limit.
	TrustForwarded bool

	OAuth2Enabled   bool
	LoginAPIEnabled bool

	// Metrics nil = /metrics no se registra.
	Metrics     http.Handler
	MetricsPath string
}

// New arma el handler raíz. Los grupos deshabilitados no se registran y
// responden 404 como cualquier ruta desconocida.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Orden: recover más afuera; CORS antes del routing para que los
	// preflight no terminen en 405.
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		httpx.WithMetrics,
		mw.WithCORS(d.AllowedOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	var limit mw.Middleware
	if d.Limiter != nil {
		limit = mw.WithRateLimit(mw.RateLimitConfig{
			Limiter:        d.Limiter,
			KeyFunc:        mw.IPPathRateKey,
			TrustForwarded: d.TrustForwarded,
		})
	}

	c := d.Controllers
	if d.LoginAPIEnabled {
		registerAuthRoutes(r, c.Auth, limit)
	}
	if d.OAuth2Enabled {
		registerOAuthRoutes(r, c.OAuth, limit)
	}
	registerOIDCRoutes(r, c.OIDC, d.Verifier)
	registerUsersRoutes(r, c.Users)

	r.Group(func(r chi.Router) {
		r.Use(mw.WithSecurityHeaders())
		r.Get("/healthz", c.Health.Healthz)
	})

	if d.Metrics != nil {
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, d.Metrics)
	}

	return r
}

// credentialChain middlewares de endpoints que reciben credenciales o
// handles. limit nil = sin rate limit.
func credentialChain(limit mw.Middleware) []func(http.Handler) http.Handler {
	return mw.Stack(mw.WithSecurityHeaders(), mw.WithNoStore(), limit)
}
