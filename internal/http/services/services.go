// Package services agrupa los services HTTP por dominio.
// Es el composition root: app.New arma Deps una sola vez y los controllers
// reciben cada sub-aggregator ya construido.
//
//	svcs := services.New(deps)
//	ctrls := controllers.New(svcs, ...)
//	router.New(router.Deps{Controllers: ctrls, ...})
package services

import (
	"time"

	"github.com/dropDatabas3/minijohn/internal/clients"
	"github.com/dropDatabas3/minijohn/internal/http/services/auth"
	"github.com/dropDatabas3/minijohn/internal/http/services/health"
	"github.com/dropDatabas3/minijohn/internal/http/services/oauth"
	"github.com/dropDatabas3/minijohn/internal/http/services/oidc"
	"github.com/dropDatabas3/minijohn/internal/http/services/users"
	jwtx "github.com/dropDatabas3/minijohn/internal/jwt"
	"github.com/dropDatabas3/minijohn/internal/rate"
	"github.com/dropDatabas3/minijohn/internal/security/password"
	"github.com/dropDatabas3/minijohn/internal/store"
)

// Deps dependencias externas de todos los services.
type Deps struct {
	// ─── Infraestructura ───
	Store    store.AdapterConnection
	Clients  *clients.Registry
	Issuer   *jwtx.Issuer
	Verifier auth.ChallengeVerifier

	// ─── Login API ───
	LoginScopes  string
	ChallengeTTL time.Duration

	// ChallengeAttempts cuenta challenge_data rechazados (nil = memoria).
	ChallengeAttempts rate.Limiter

	// ─── OAuth2 ───
	OAuthScopes       string
	CodeTTL           time.Duration
	RequireChallenge  bool
	IssueRefreshToken bool

	RefreshTTL time.Duration
	// Discovery se arma en app a partir de la config.
	Discovery oidc.DiscoveryConfig
	// PasswordParams para PUT /users (zero value = password.Default).
	PasswordParams password.Params
	Now            func() time.Time
}

// Services agrupa todos los sub-services.
type Services struct {
	Auth   auth.Services
	OAuth  oauth.Services
	OIDC   oidc.Services
	Users  users.Service
	Health health.Service
}

func New(d Deps) *Services {
	st := d.Store

	return &Services{
		Auth: auth.NewServices(auth.Deps{
			Users:         st.Users(),
			Challenges:    st.Challenges(),
			Refresh:       st.RefreshTokens(),
			Clients:       d.Clients,
			Issuer:        d.Issuer,
			Verifier:      d.Verifier,
			Attempts:      d.ChallengeAttempts,
			ChallengeTTL:  d.ChallengeTTL,
			RefreshTTL:    d.RefreshTTL,
			DefaultScopes: d.LoginScopes,
			Now:           d.Now,
		}),
		OAuth: oauth.NewServices(oauth.Deps{
			Users:             st.Users(),
			Codes:             st.AuthCodes(),
			Refresh:           st.RefreshTokens(),
			Clients:           d.Clients,
			Issuer:            d.Issuer,
			Verifier:          d.Verifier,
			RequireChallenge:  d.RequireChallenge,
			DefaultScopes:     d.OAuthScopes,
			CodeTTL:           d.CodeTTL,
			IssueRefreshToken: d.IssueRefreshToken,
			RefreshTTL:        d.RefreshTTL,
			Now:               d.Now,
		}),
		OIDC: oidc.NewServices(oidc.Deps{
			Users:     st.Users(),
			Keys:      d.Issuer.Keys(),
			Discovery: d.Discovery,
		}),
		Users:  users.NewService(users.Deps{Users: st.Users(), Hash: d.PasswordParams}),
		Health: health.NewService(map[string]health.Pinger{"store": st}, 0),
	}
}
