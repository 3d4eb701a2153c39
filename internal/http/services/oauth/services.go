// Package oauth contiene los services del authorization code flow.
package oauth

import (
	"time"

	"github.com/dropDatabas3/minijohn/internal/clients"
	"github.com/dropDatabas3/minijohn/internal/http/services/auth"
	"github.com/dropDatabas3/minijohn/internal/http/services/common"
	jwtx "github.com/dropDatabas3/minijohn/internal/jwt"
	"github.com/dropDatabas3/minijohn/internal/store"
)

type Deps struct {
	Users   store.UserRepository
	Codes   store.AuthCodeRepository
	Refresh store.RefreshTokenRepository
	Clients *clients.Registry
	Issuer  *jwtx.Issuer

	Verifier          auth.ChallengeVerifier
	RequireChallenge  bool
	DefaultScopes     string
	CodeTTL           time.Duration
	IssueRefreshToken bool
	RefreshTTL        time.Duration
	Now               func() time.Time
}

// Services agrupa los services del dominio oauth.
type Services struct {
	Authorize AuthorizeService
	Token     TokenService
}

func NewServices(d Deps) Services {
	return Services{
		Authorize: NewAuthorizeService(AuthorizeDeps{
			Users:            d.Users,
			Codes:            d.Codes,
			Clients:          d.Clients,
			Verifier:         d.Verifier,
			RequireChallenge: d.RequireChallenge,
			DefaultScopes:    d.DefaultScopes,
			CodeTTL:          d.CodeTTL,
			Now:              d.Now,
		}),
		Token: NewTokenService(TokenDeps{
			Users:        d.Users,
			Codes:        d.Codes,
			Clients:      d.Clients,
			Issuer:       d.Issuer,
			IssueRefresh: d.IssueRefreshToken,
			Refresh:      common.RefreshMinter{Repo: d.Refresh, TTL: d.RefreshTTL},
			Now:          d.Now,
		}),
	}
}
