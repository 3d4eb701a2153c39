package router

import (
	"github.com/go-chi/chi/v5"

	ctrl "github.com/dropDatabas3/minijohn/internal/http/controllers/users"
	mw "github.com/dropDatabas3/minijohn/internal/http/middlewares"
)

// registerUsersRoutes administración de usuarios. Sin autenticación: se
// asume expuesto sólo en redes de confianza.
func registerUsersRoutes(r chi.Router, c *ctrl.Controller) {
	r.Route("/users", func(r chi.Router) {
		r.Use(mw.WithSecurityHeaders(), mw.WithNoStore())
		r.Get("/", c.List)
		r.Get("/{id}", c.Get)
		r.Put("/{id}", c.Put)
		r.Delete("/{id}", c.Delete)
		r.Post("/{id}/disable", c.Disable)
		r.Post("/{id}/enable", c.Enable)
	})
}
