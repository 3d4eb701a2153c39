package common

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/minijohn/internal/metrics"
	tokens "github.com/dropDatabas3/minijohn/internal/security/token"
	"github.com/dropDatabas3/minijohn/internal/store"
)

// RefreshMinter emite refresh tokens opacos con TTL fijo.
type RefreshMinter struct {
	Repo store.RefreshTokenRepository
	TTL  time.Duration
}

// Next arma un sucesor para Rotate: sólo token y tiempos, el resto se hereda.
func (m RefreshMinter) Next(now time.Time) (store.RefreshToken, error) {
	h, err := tokens.NewHandle()
	if err != nil {
		return store.RefreshToken{}, fmt.Errorf("generate refresh token: %w", err)
	}
	return store.RefreshToken{Token: h, IssuedAt: now, ExpiresAt: now.Add(m.TTL)}, nil
}

// Issue persiste un refresh token nuevo y devuelve el valor en claro.
func (m RefreshMinter) Issue(ctx context.Context, userID, clientID, scope string, authTime, now time.Time) (string, error) {
	rt, err := m.Next(now)
	if err != nil {
		return "", err
	}
	rt.UserID, rt.ClientID, rt.Scope, rt.AuthTime = userID, clientID, scope, authTime
	if err := m.Repo.Issue(ctx, rt); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	metrics.TokensIssued.WithLabelValues("refresh").Inc()
	return rt.Token, nil
}
