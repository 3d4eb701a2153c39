package router

import (
	"github.com/go-chi/chi/v5"

	ctrl "github.com/dropDatabas3/minijohn/internal/http/controllers/oidc"
	mw "github.com/dropDatabas3/minijohn/internal/http/middlewares"
)

// registerOIDCRoutes discovery y JWKS públicos; /userinfo y /me con Bearer.
func registerOIDCRoutes(r chi.Router, c *ctrl.Controllers, verifier mw.AccessTokenVerifier) {
	r.Group(func(r chi.Router) {
		r.Use(mw.WithSecurityHeaders())
		r.Get("/.well-known/jwks.json", c.Discovery.JWKS)
		r.Get("/.well-known/openid-configuration", c.Discovery.OpenIDConfiguration)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.WithSecurityHeaders(), mw.WithNoStore(), mw.RequireAuth(verifier))
		r.Get("/userinfo", c.UserInfo.UserInfo)
		r.Get("/me", c.UserInfo.Me)
	})
}
