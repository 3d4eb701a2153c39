// Package oauth contiene los controllers del authorization code flow.
package oauth

import svc "github.com/dropDatabas3/minijohn/internal/http/services/oauth"

// Controllers agrupa los controllers del dominio oauth.
type Controllers struct {
	Authorize *AuthorizeController
	Token     *TokenController
}

func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Authorize: NewAuthorizeController(s.Authorize),
		Token:     NewTokenController(s.Token),
	}
}
