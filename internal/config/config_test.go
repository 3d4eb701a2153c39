package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/minijohn/internal/claims"
)

const sampleYAML = `
port: 8080
access_token_expiration_seconds: 1
refresh_token_expiration_seconds: 2
allowed_origins: "http://localhost:3000, http://example.com"
users:
  - id: "1"
    username: user1
    password: password1
    attributes:
      email: user1@example.com
      role_name: admin
clients:
  - id: client1
    secret: super_secret
    redirect_uri: http://localhost:3000/callback
    audience: example.com
    claim_mappings:
      access:
        roles: role_name
map_identity_token_claims:
  email: email
oauth2:
  require_challenge_on_login: true
login_api:
  enabled: false
`

func TestParse_DefaultsAndValues(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "http://localhost:8080", cfg.Issuer)
	require.Equal(t, "http://localhost:8080", cfg.BaseURL)
	require.Equal(t, time.Second, cfg.AccessTTL())
	require.Equal(t, time.Second, cfg.IdentityTTL(), "identity TTL follows access TTL when unset")
	require.Equal(t, 2*time.Second, cfg.RefreshTTL())
	require.Equal(t, []string{"http://localhost:3000", "http://example.com"}, cfg.Origins())
	require.True(t, cfg.OAuth2Enabled())
	require.True(t, cfg.RequireChallengeOnLogin())
	require.False(t, cfg.LoginAPIEnabled())
	require.Equal(t, "openid profile", cfg.OAuth2.DefaultScopes)
	require.Equal(t, 10*time.Minute, cfg.CodeTTL())
	require.Equal(t, 5*time.Minute, cfg.ChallengeTTL())
	require.Equal(t, "memory", cfg.Storage.Driver)
	require.Equal(t, []string{"http://localhost:3000/callback"}, cfg.Clients[0].AllRedirectURIs())
	require.Equal(t, "admin", cfg.Users[0].Attributes["role_name"])
}

func TestParse_EmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 900, cfg.AccessTokenExpirationSeconds)
	require.Equal(t, 86400, cfg.RefreshTokenExpirationSeconds)
	require.Equal(t, []string{"*"}, cfg.Origins())
	require.True(t, cfg.LoginAPIEnabled())
	require.False(t, cfg.RequireChallengeOnLogin())
	require.Equal(t, 5, cfg.LoginAPI.MaxChallengeAttempts)
	require.False(t, cfg.Rate.TrustForwarded)
}

func TestParse_PortEnvDrivesIssuer(t *testing.T) {
	t.Setenv("PORT", "9090")
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, "http://localhost:9090", cfg.Issuer)
}

func TestParse_ReservedClaimMappingIsConfigError(t *testing.T) {
	_, err := Parse([]byte(`
map_access_token_claims:
  sub: username
`))
	require.Error(t, err)
	require.True(t, errors.Is(err, claims.ErrReservedClaim))

	_, err = Parse([]byte(`
clients:
  - id: c
    claim_mappings:
      identity:
        nonce: foo
`))
	require.ErrorIs(t, err, claims.ErrReservedClaim)
}

func TestParse_RejectsDuplicatesAndBadDriver(t *testing.T) {
	_, err := Parse([]byte(`
users:
  - {id: "1", username: a}
  - {id: "1", username: b}
`))
	require.ErrorContains(t, err, "duplicate id")

	_, err = Parse([]byte(`storage: {driver: mongo}`))
	require.ErrorContains(t, err, "not supported")

	_, err = Parse([]byte(`storage: {driver: redis}`))
	require.ErrorContains(t, err, "redis.addr")
}

func TestLoadOptional_MissingFile(t *testing.T) {
	cfg, found, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.False(t, found)
	require.NotNil(t, cfg)
}

func TestResolvePath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	p, explicit := ResolvePath("")
	require.Equal(t, DefaultPath, p)
	require.False(t, explicit)

	t.Setenv("CONFIG_PATH", "/etc/idp.yaml")
	p, explicit = ResolvePath("")
	require.Equal(t, "/etc/idp.yaml", p)
	require.True(t, explicit)

	p, _ = ResolvePath("./local.yaml")
	require.Equal(t, "./local.yaml", p)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Clients, 1)
}
