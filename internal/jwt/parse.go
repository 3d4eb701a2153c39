package jwt

import (
	"errors"
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("jwt: invalid token")
	ErrInvalidIssuer = errors.New("jwt: invalid issuer")
	ErrWrongTokenUse = errors.New("jwt: wrong token_use")
)

// Parse valida firma RS256 (kid conocido), iss y exp sin tolerancia.
// jwt/v5 considera vencido un token con now >= exp.
func (i *Issuer) Parse(raw string) (jwtv5.MapClaims, error) {
	tok, err := jwtv5.Parse(raw, i.keys.Keyfunc(),
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodRS256.Alg()}),
		jwtv5.WithIssuer(i.cfg.Issuer),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithIssuedAt(),
		jwtv5.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenInvalidIssuer) {
			return nil, ErrInvalidIssuer
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	mc, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return mc, nil
}

// VerifyAccessToken es Parse + token_use == "access". Es lo que usan /userinfo y /me.
func (i *Issuer) VerifyAccessToken(raw string) (jwtv5.MapClaims, error) {
	mc, err := i.Parse(raw)
	if err != nil {
		return nil, err
	}
	if use, _ := mc["token_use"].(string); use != UseAccess {
		return nil, ErrWrongTokenUse
	}
	return mc, nil
}

// ClaimString lee un claim string; "" si no está o no es string.
func ClaimString(mc jwtv5.MapClaims, key string) string {
	s, _ := mc[key].(string)
	return s
}
