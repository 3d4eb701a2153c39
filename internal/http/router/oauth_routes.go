package router

import (
	"github.com/go-chi/chi/v5"

	ctrl "github.com/dropDatabas3/minijohn/internal/http/controllers/oauth"
	mw "github.com/dropDatabas3/minijohn/internal/http/middlewares"
)

// registerOAuthRoutes authorization code flow (oauth2.enabled).
func registerOAuthRoutes(r chi.Router, c *ctrl.Controllers, limit mw.Middleware) {
	// Form de login: HTML con su propia CSP.
	r.Group(func(r chi.Router) {
		r.Use(mw.WithHTMLSecurityHeaders(), mw.WithNoStore())
		r.Get("/oauth2/authorize", c.Authorize.Authorize)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.Stack(mw.WithHTMLSecurityHeaders(), mw.WithNoStore(), limit)...)
		r.Post("/oauth2/authorize/submit", c.Authorize.Submit)
	})

	r.Group(func(r chi.Router) {
		r.Use(credentialChain(limit)...)
		r.Post("/oauth2/token", c.Token.Token)
	})
}
