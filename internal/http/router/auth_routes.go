package router

import (
	"github.com/go-chi/chi/v5"

	ctrl "github.com/dropDatabas3/minijohn/internal/http/controllers/auth"
	mw "github.com/dropDatabas3/minijohn/internal/http/middlewares"
)

// registerAuthRoutes Login API (login_api.enabled).
func registerAuthRoutes(r chi.Router, c *ctrl.Controllers, limit mw.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(credentialChain(limit)...)

		r.Post("/login/init", c.Login.Init)
		r.Post("/login/complete", c.Login.Complete)
		r.Post("/login/refresh", c.Refresh.Refresh)
	})
}
