package oidc

import (
	jwtx "github.com/dropDatabas3/minijohn/internal/jwt"
	"github.com/dropDatabas3/minijohn/internal/store"
)

type Deps struct {
	Users     store.UserRepository
	Keys      *jwtx.KeyManager
	Discovery DiscoveryConfig
}

// Services agrupa los services OIDC.
type Services struct {
	Discovery DiscoveryService
	UserInfo  UserInfoService
	// JWKS es el documento público ya serializado.
	JWKS []byte
}

func NewServices(d Deps) Services {
	return Services{
		Discovery: NewDiscoveryService(d.Discovery),
		UserInfo:  NewUserInfoService(d.Users),
		JWKS:      d.Keys.JWKSJSON(),
	}
}
