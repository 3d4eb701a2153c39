// Package oidc contiene los controllers de discovery, JWKS, userinfo y /me.
package oidc

import svc "github.com/dropDatabas3/minijohn/internal/http/services/oidc"

// Controllers agrupa los controllers del dominio oidc.
type Controllers struct {
	Discovery *DiscoveryController
	UserInfo  *UserInfoController
}

func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Discovery: NewDiscoveryController(s.Discovery, s.JWKS),
		UserInfo:  NewUserInfoController(s.UserInfo),
	}
}
