// Package oidc contiene los services de discovery, JWKS, userinfo y /me.
package oidc

import (
	"strings"

	dto "github.com/dropDatabas3/minijohn/internal/http/dto/oidc"
)

// DiscoveryConfig datos con los que se arma el documento de discovery.
type DiscoveryConfig struct {
	Issuer  string
	BaseURL string

	// OAuth2Enabled publica authorization_endpoint y token_endpoint.
	OAuth2Enabled bool
	// RefreshGrant agrega refresh_token a grant_types_supported.
	RefreshGrant bool
	Scopes       []string
	// MappedClaims nombres de claims configurados por los mapeos.
	MappedClaims []string
}

// DiscoveryService arma /.well-known/openid-configuration.
type DiscoveryService interface {
	Metadata() dto.OIDCMetadata
}

type discoveryService struct {
	meta dto.OIDCMetadata
}

var baseClaims = []string{"sub", "iss", "aud", "exp", "iat", "auth_time", "nonce", "scope", "client_id"}

// NewDiscoveryService calcula el documento una sola vez: la config es estática.
func NewDiscoveryService(cfg DiscoveryConfig) DiscoveryService {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = strings.TrimRight(cfg.Issuer, "/")
	}

	meta := dto.OIDCMetadata{
		Issuer:                           cfg.Issuer,
		UserinfoEndpoint:                 base + "/userinfo",
		JWKSURI:                          base + "/.well-known/jwks.json",
		ResponseTypesSupported:           []string{"code"},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{"RS256"},
		ScopesSupported:                  uniqueScopes(cfg.Scopes),
		ClaimsSupported:                  append(append([]string{}, baseClaims...), cfg.MappedClaims...),
	}
	if cfg.OAuth2Enabled {
		meta.AuthorizationEndpoint = base + "/oauth2/authorize"
		meta.TokenEndpoint = base + "/oauth2/token"
		meta.GrantTypesSupported = []string{"authorization_code"}
		if cfg.RefreshGrant {
			meta.GrantTypesSupported = append(meta.GrantTypesSupported, "refresh_token")
		}
		meta.TokenEndpointAuthMethodsSupported = []string{"client_secret_post", "client_secret_basic", "none"}
	}
	return &discoveryService{meta: meta}
}

func (s *discoveryService) Metadata() dto.OIDCMetadata {
	return s.meta
}

// uniqueScopes siempre incluye openid y respeta el orden de aparición.
func uniqueScopes(in []string) []string {
	out := []string{"openid"}
	seen := map[string]bool{"openid": true}
	for _, s := range in {
		for _, f := range strings.Fields(s) {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}
