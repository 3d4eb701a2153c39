package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/minijohn/internal/clients"
	dto "github.com/dropDatabas3/minijohn/internal/http/dto/auth"
	"github.com/dropDatabas3/minijohn/internal/http/services/common"
	jwtx "github.com/dropDatabas3/minijohn/internal/jwt"
	"github.com/dropDatabas3/minijohn/internal/metrics"
	"github.com/dropDatabas3/minijohn/internal/observability/logger"
	"github.com/dropDatabas3/minijohn/internal/store"
	"github.com/dropDatabas3/minijohn/internal/util"
)

// RefreshService rota refresh tokens.
type RefreshService interface {
	Refresh(ctx context.Context, in dto.RefreshRequest) (*dto.TokenResponse, error)
}

// RefreshDeps contiene las dependencias para el refresh service.
type RefreshDeps struct {
	Users   store.UserRepository
	Tokens  store.RefreshTokenRepository
	Minter  common.RefreshMinter
	Clients *clients.Registry
	Issuer  *jwtx.Issuer
	Now     func() time.Time
}

type refreshService struct {
	deps RefreshDeps
}

func NewRefreshService(deps RefreshDeps) RefreshService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &refreshService{deps: deps}
}

func (s *refreshService) Refresh(ctx context.Context, in dto.RefreshRequest) (*dto.TokenResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.refresh"),
		logger.Op("Refresh"),
	)

	raw := strings.TrimSpace(in.RefreshToken)
	if raw == "" {
		return nil, common.ErrHandleInvalid
	}

	now := s.deps.Now()
	next, err := s.deps.Minter.Next(now)
	if err != nil {
		return nil, err
	}

	old, err := s.deps.Tokens.Rotate(ctx, raw, next, now)
	metrics.ObserveConsume("refresh", err, store.ErrHandleInvalid)
	switch {
	case errors.Is(err, store.ErrHandleReused) && old != nil:
		// reuso de un token ya rotado: posible robo
		log.Warn("refresh token reuse detected",
			logger.String("token", util.MaskSecret(raw)),
			logger.String("replaced_by", old.ReplacedBy),
			logger.UserID(old.UserID),
			logger.ClientID(old.ClientID),
		)
		return nil, err
	case errors.Is(err, store.ErrHandleInvalid):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	user, err := common.ActiveUser(ctx, s.deps.Users, old.UserID)
	if err != nil {
		return nil, err
	}
	client, err := s.deps.Clients.Lookup(old.ClientID)
	if err != nil {
		return nil, common.ErrUnknownClient
	}

	pair, err := s.deps.Issuer.IssueTokenPair(ctx, jwtx.IssueRequest{
		Subject:    user.ID,
		ClientID:   client.ID,
		Audience:   client.Audience,
		Scope:      old.Scope,
		AuthTime:   old.AuthTime,
		Attributes: user.Attributes,
	})
	if err != nil {
		return nil, err
	}
	metrics.TokensIssued.WithLabelValues("refresh").Inc()

	log.Info("refresh token rotated", logger.UserID(user.ID), logger.ClientID(client.ID))
	return &dto.TokenResponse{
		AccessToken:   pair.AccessToken,
		IdentityToken: pair.IdentityToken,
		RefreshToken:  next.Token,
	}, nil
}
