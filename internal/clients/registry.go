// Package clients resuelve los clientes OAuth2 estáticos definidos en config.
package clients

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/minijohn/internal/claims"
	"github.com/dropDatabas3/minijohn/internal/config"
	tokens "github.com/dropDatabas3/minijohn/internal/security/token"
)

var (
	ErrUnknownClient    = errors.New("clients: unknown client")
	ErrRedirectMismatch = errors.New("clients: redirect_uri not registered")
	ErrBadSecret        = errors.New("clients: invalid client secret")
)

// Client es la vista runtime de un cliente registrado.
type Client struct {
	ID           string
	Secret       string
	RedirectURIs []string
	Audience     string
}

// Confidential reporta si el cliente tiene secreto configurado.
func (c *Client) Confidential() bool { return c.Secret != "" }

// AllowsRedirect compara redirect_uri por igualdad exacta.
func (c *Client) AllowsRedirect(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

// Registry es inmutable una vez construido; se lee sin locks.
type Registry struct {
	byID map[string]*Client
}

func New(list ...Client) *Registry {
	r := &Registry{byID: make(map[string]*Client, len(list))}
	for i := range list {
		c := list[i]
		if c.Audience == "" {
			c.Audience = c.ID
		}
		r.byID[c.ID] = &c
	}
	return r
}

// FromConfig arma el registry y el mapper de claims a partir de la config.
// Un cliente con claim_mappings propios no hereda los mapeos globales.
func FromConfig(cfg *config.Config) (*Registry, *claims.Mapper, error) {
	list := make([]Client, 0, len(cfg.Clients))
	perClient := map[string]claims.ClientMapping{}
	for _, cc := range cfg.Clients {
		list = append(list, Client{
			ID:           strings.TrimSpace(cc.ID),
			Secret:       cc.Secret,
			RedirectURIs: cc.AllRedirectURIs(),
			Audience:     strings.TrimSpace(cc.Audience),
		})
		if cc.ClaimMappings != nil {
			perClient[cc.ID] = claims.ClientMapping{
				Access:   cc.ClaimMappings.Access,
				Identity: cc.ClaimMappings.Identity,
			}
		}
	}

	mapper, err := claims.NewMapper(claims.ClientMapping{
		Access:   cfg.MapAccessTokenClaims,
		Identity: cfg.MapIdentityTokenClaims,
	}, perClient)
	if err != nil {
		return nil, nil, fmt.Errorf("claim mappings: %w", err)
	}
	return New(list...), mapper, nil
}

func (r *Registry) Lookup(id string) (*Client, error) {
	c, ok := r.byID[strings.TrimSpace(id)]
	if !ok || id == "" {
		return nil, ErrUnknownClient
	}
	return c, nil
}

// ResolveRedirect valida el par client_id / redirect_uri.
func (r *Registry) ResolveRedirect(id, redirectURI string) (*Client, error) {
	c, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	if !c.AllowsRedirect(redirectURI) {
		return nil, ErrRedirectMismatch
	}
	return c, nil
}

// Authenticate valida las credenciales del token endpoint. Un cliente sin
// secreto configurado es público: sólo se acepta sin secreto.
func (r *Registry) Authenticate(id, secret string) (*Client, error) {
	c, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	if !c.Confidential() {
		if secret != "" {
			return nil, ErrBadSecret
		}
		return c, nil
	}
	if !tokens.Equal(c.Secret, secret) {
		return nil, ErrBadSecret
	}
	return c, nil
}

func (r *Registry) Len() int { return len(r.byID) }
