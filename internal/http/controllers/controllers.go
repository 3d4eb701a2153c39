// Package controllers agrupa los controllers HTTP. Recibe los services ya
// construidos (ver services.New) y el router registra sus métodos.
package controllers

import (
	"github.com/dropDatabas3/minijohn/internal/http/controllers/auth"
	"github.com/dropDatabas3/minijohn/internal/http/controllers/health"
	"github.com/dropDatabas3/minijohn/internal/http/controllers/oauth"
	"github.com/dropDatabas3/minijohn/internal/http/controllers/oidc"
	"github.com/dropDatabas3/minijohn/internal/http/controllers/users"
	"github.com/dropDatabas3/minijohn/internal/http/services"
)

type Controllers struct {
	Auth   *auth.Controllers
	OAuth  *oauth.Controllers
	OIDC   *oidc.Controllers
	Users  *users.Controller
	Health *health.Controller
}

func New(s *services.Services) *Controllers {
	return &Controllers{
		Auth:   auth.NewControllers(s.Auth),
		OAuth:  oauth.NewControllers(s.OAuth),
		OIDC:   oidc.NewControllers(s.OIDC),
		Users:  users.NewController(s.Users),
		Health: health.NewController(s.Health),
	}
}
