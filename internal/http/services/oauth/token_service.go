package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/minijohn/internal/clients"
	dto "github.com/dropDatabas3/minijohn/internal/http/dto/oauth"
	"github.com/dropDatabas3/minijohn/internal/http/services/common"
	jwtx "github.com/dropDatabas3/minijohn/internal/jwt"
	"github.com/dropDatabas3/minijohn/internal/metrics"
	"github.com/dropDatabas3/minijohn/internal/observability/logger"
	"github.com/dropDatabas3/minijohn/internal/store"
)

// TokenService canjea authorization codes por tokens.
type TokenService interface {
	Exchange(ctx context.Context, in dto.TokenRequest) (*dto.TokenResponse, error)
}

type TokenDeps struct {
	Users   store.UserRepository
	Codes   store.AuthCodeRepository
	Clients *clients.Registry
	Issuer  *jwtx.Issuer

	// IssueRefresh agrega refresh_token a la respuesta (oauth2.issue_refresh_token).
	IssueRefresh bool
	Refresh      common.RefreshMinter
	Now          func() time.Time
}

type tokenService struct {
	deps TokenDeps
}

func NewTokenService(deps TokenDeps) TokenService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &tokenService{deps: deps}
}

const grantAuthorizationCode = "authorization_code"

func (s *tokenService) Exchange(ctx context.Context, in dto.TokenRequest) (*dto.TokenResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.token"),
		logger.Op("Exchange"),
	)

	if in.GrantType != grantAuthorizationCode {
		return nil, common.ErrUnsupportedGrant
	}

	// Autenticación del cliente antes de tocar el code.
	client, err := s.deps.Clients.Authenticate(strings.TrimSpace(in.ClientID), in.ClientSecret)
	if err != nil {
		log.Debug("client authentication failed", logger.ClientID(in.ClientID), logger.Err(err))
		return nil, common.ErrUnknownClient
	}

	if in.Code == "" {
		return nil, common.ErrInvalidGrant
	}
	code, err := s.deps.Codes.Consume(ctx, in.Code, client.ID, in.RedirectURI, s.deps.Now())
	metrics.ObserveConsume("code", err, store.ErrHandleInvalid)
	switch {
	case errors.Is(err, store.ErrClientMismatch):
		log.Warn("authorization code presented by another client or redirect_uri", logger.ClientID(client.ID))
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidGrant, err)
	case errors.Is(err, store.ErrHandleInvalid):
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidGrant, err)
	case err != nil:
		return nil, fmt.Errorf("consume code: %w", err)
	}

	user, err := common.ActiveUser(ctx, s.deps.Users, code.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidGrant, err)
	}

	pair, err := s.deps.Issuer.IssueTokenPair(ctx, jwtx.IssueRequest{
		Subject:    user.ID,
		ClientID:   client.ID,
		Audience:   client.Audience,
		Scope:      code.Scope,
		Nonce:      code.Nonce,
		AuthTime:   code.AuthTime,
		Attributes: user.Attributes,
	})
	if err != nil {
		return nil, err
	}

	out := &dto.TokenResponse{
		AccessToken: pair.AccessToken,
		IDToken:     pair.IdentityToken,
		TokenType:   "Bearer",
		ExpiresIn:   pair.ExpiresIn,
		Scope:       code.Scope,
	}
	if s.deps.IssueRefresh {
		out.RefreshToken, err = s.deps.Refresh.Issue(ctx, user.ID, client.ID, code.Scope, code.AuthTime, pair.IssuedAt)
		if err != nil {
			return nil, err
		}
	}

	log.Info("authorization code exchanged", logger.UserID(user.ID), logger.ClientID(client.ID))
	return out, nil
}
