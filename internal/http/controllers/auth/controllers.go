// Package auth contiene los controllers de la Login API.
package auth

import svc "github.com/dropDatabas3/minijohn/internal/http/services/auth"

// Controllers agrupa los controllers del dominio auth.
type Controllers struct {
	Login   *LoginController
	Refresh *RefreshController
}

func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Login:   NewLoginController(s.Login),
		Refresh: NewRefreshController(s.Refresh),
	}
}
