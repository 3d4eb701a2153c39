package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/minijohn/internal/claims"
	"github.com/dropDatabas3/minijohn/internal/metrics"
)

// Valores de token_use.
const (
	UseAccess   = "access"
	UseIdentity = "id"
)

// IssuerConfig parámetros fijos del emisor.
type IssuerConfig struct {
	Issuer      string        // "iss"
	AccessTTL   time.Duration // exp - iat del access token
	IdentityTTL time.Duration // exp - iat del identity token
	// Now reloj para iat/exp y verificación; nil = time.Now.
	Now func() time.Time
}

// Issuer firma access + identity tokens con la clave del KeyManager.
type Issuer struct {
	cfg    IssuerConfig
	keys   *KeyManager
	mapper *claims.Mapper
	now    func() time.Time
}

// IssueRequest datos de una emisión. Attributes son los atributos del usuario
// tal cual están en el store; el mapper decide cuáles salen en cada token.
type IssueRequest struct {
	Subject    string
	ClientID   string
	Audience   string // vacío = ClientID
	Scope      string
	Nonce      string
	AuthTime   time.Time
	Attributes map[string]any
}

// TokenPair resultado de IssueTokenPair.
type TokenPair struct {
	AccessToken   string
	IdentityToken string
	ExpiresIn     int64 // segundos, del access token
	IssuedAt      time.Time
}

func NewIssuer(cfg IssuerConfig, keys *KeyManager, mapper *claims.Mapper) (*Issuer, error) {
	if keys == nil {
		return nil, ErrNoKey
	}
	if cfg.Issuer == "" {
		return nil, errors.New("jwt: issuer is required")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("jwt: access ttl must be positive")
	}
	if cfg.IdentityTTL <= 0 {
		cfg.IdentityTTL = cfg.AccessTTL
	}
	if mapper == nil {
		mapper, _ = claims.NewMapper(claims.ClientMapping{}, nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Issuer{cfg: cfg, keys: keys, mapper: mapper, now: now}, nil
}

func (i *Issuer) Iss() string              { return i.cfg.Issuer }
func (i *Issuer) Keys() *KeyManager        { return i.keys }
func (i *Issuer) AccessTTL() time.Duration { return i.cfg.AccessTTL }

// IssueTokenPair emite el par access/identity de una misma autenticación.
// Ambos comparten iss, sub, aud, iat, auth_time y client_id; cada uno lleva su propio jti.
func (i *Issuer) IssueTokenPair(ctx context.Context, req IssueRequest) (TokenPair, error) {
	if req.Subject == "" || req.ClientID == "" {
		return TokenPair{}, errors.New("jwt: subject and client_id are required")
	}
	if err := ctx.Err(); err != nil {
		return TokenPair{}, err
	}

	now := i.now().UTC()
	authTime := req.AuthTime
	if authTime.IsZero() {
		authTime = now
	}
	aud := req.Audience
	if aud == "" {
		aud = req.ClientID
	}

	base := func(use string, ttl time.Duration) jwtv5.MapClaims {
		return jwtv5.MapClaims{
			"iss":       i.cfg.Issuer,
			"sub":       req.Subject,
			"aud":       aud,
			"iat":       now.Unix(),
			"exp":       now.Add(ttl).Unix(),
			"auth_time": authTime.Unix(),
			"token_use": use,
			"client_id": req.ClientID,
			"scope":     req.Scope,
			"jti":       uuid.NewString(),
		}
	}

	access := base(UseAccess, i.cfg.AccessTTL)
	merge(access, i.mapper.Map(claims.Access, req.ClientID, req.Attributes))

	identity := base(UseIdentity, i.cfg.IdentityTTL)
	if req.Nonce != "" {
		identity["nonce"] = req.Nonce
	}
	merge(identity, i.mapper.Map(claims.Identity, req.ClientID, req.Attributes))

	at, err := i.keys.Sign(access)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	it, err := i.keys.Sign(identity)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign identity token: %w", err)
	}
	metrics.TokensIssued.WithLabelValues("access").Inc()
	metrics.TokensIssued.WithLabelValues("identity").Inc()

	return TokenPair{
		AccessToken:   at,
		IdentityToken: it,
		ExpiresIn:     int64(i.cfg.AccessTTL / time.Second),
		IssuedAt:      now,
	}, nil
}

// merge agrega claims mapeados sin pisar los estándar.
func merge(dst jwtv5.MapClaims, extra map[string]any) {
	for k, v := range extra {
		if _, taken := dst[k]; taken {
			continue
		}
		dst[k] = v
	}
}
