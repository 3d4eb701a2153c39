// Package auth contiene los services de la Login API.
package auth

import (
	"time"

	"github.com/dropDatabas3/minijohn/internal/clients"
	"github.com/dropDatabas3/minijohn/internal/http/services/common"
	jwtx "github.com/dropDatabas3/minijohn/internal/jwt"
	"github.com/dropDatabas3/minijohn/internal/rate"
	"github.com/dropDatabas3/minijohn/internal/store"
)

// Deps dependencias compartidas por los services de auth.
type Deps struct {
	Users      store.UserRepository
	Challenges store.ChallengeRepository
	Refresh    store.RefreshTokenRepository
	Clients    *clients.Registry
	Issuer     *jwtx.Issuer
	Verifier   ChallengeVerifier
	Attempts   rate.Limiter

	ChallengeTTL  time.Duration
	RefreshTTL    time.Duration
	DefaultScopes string
	Now           func() time.Time
}

// Services agrupa los services del dominio auth.
type Services struct {
	Login   LoginService
	Refresh RefreshService
}

func NewServices(d Deps) Services {
	minter := common.RefreshMinter{Repo: d.Refresh, TTL: d.RefreshTTL}
	return Services{
		Login: NewLoginService(LoginDeps{
			Users:         d.Users,
			Challenges:    d.Challenges,
			Refresh:       minter,
			Clients:       d.Clients,
			Issuer:        d.Issuer,
			Verifier:      d.Verifier,
			Attempts:      d.Attempts,
			ChallengeTTL:  d.ChallengeTTL,
			DefaultScopes: d.DefaultScopes,
			Now:           d.Now,
		}),
		Refresh: NewRefreshService(RefreshDeps{
			Users:   d.Users,
			Tokens:  d.Refresh,
			Minter:  minter,
			Clients: d.Clients,
			Issuer:  d.Issuer,
			Now:     d.Now,
		}),
	}
}
