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
	"github.com/dropDatabas3/minijohn/internal/rate"
	tokens "github.com/dropDatabas3/minijohn/internal/security/token"
	"github.com/dropDatabas3/minijohn/internal/store"
)

// LoginService define el flujo de dos pasos de la Login API.
type LoginService interface {
	// Init valida cliente y credenciales y deja un challenge pendiente.
	Init(ctx context.Context, in dto.InitLoginRequest) (*dto.InitLoginResponse, error)
	// Complete consume el challenge una sola vez y emite tokens.
	Complete(ctx context.Context, in dto.CompleteLoginRequest) (*dto.TokenResponse, error)
}

// LoginDeps contiene las dependencias para el login service.
type LoginDeps struct {
	Users      store.UserRepository
	Challenges store.ChallengeRepository
	Refresh    common.RefreshMinter
	Clients    *clients.Registry
	Issuer     *jwtx.Issuer
	Verifier   ChallengeVerifier // nil = AcceptAnyVerifier
	// Attempts cuenta challenge_data rechazados por challenge. Cuando la
	// ventana se agota el challenge se quema. nil = memoria, MaxChallengeAttempts.
	Attempts rate.Limiter

	ChallengeTTL  time.Duration
	DefaultScopes string
	Now           func() time.Time
}

type loginService struct {
	deps LoginDeps
}

// MaxChallengeAttempts intentos de challenge_data por challenge si no se configura otro limiter.
const MaxChallengeAttempts = 5

// NewLoginService crea un nuevo servicio de login.
func NewLoginService(deps LoginDeps) LoginService {
	if deps.Verifier == nil {
		deps.Verifier = AcceptAnyVerifier{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ChallengeTTL <= 0 {
		deps.ChallengeTTL = 5 * time.Minute
	}
	if deps.Attempts == nil {
		deps.Attempts = rate.NewMemoryLimiter(MaxChallengeAttempts, deps.ChallengeTTL)
	}
	return &loginService{deps: deps}
}

func (s *loginService) Init(ctx context.Context, in dto.InitLoginRequest) (*dto.InitLoginResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.Op("Init"),
	)

	in.ClientID = strings.TrimSpace(in.ClientID)
	if in.ClientID == "" {
		return nil, common.ErrMissingFields
	}
	client, err := s.deps.Clients.Lookup(in.ClientID)
	if err != nil {
		return nil, common.ErrUnknownClient
	}

	user, err := common.Authenticate(ctx, s.deps.Users, strings.TrimSpace(in.Username), in.Password)
	if err != nil {
		log.Debug("credential check failed", logger.ClientID(client.ID), logger.Err(err))
		return nil, err
	}

	id, err := tokens.NewHandle()
	if err != nil {
		return nil, fmt.Errorf("generate challenge id: %w", err)
	}
	now := s.deps.Now()
	ch := store.Challenge{
		ID:                id,
		UserID:            user.ID,
		ClientID:          client.ID,
		Scope:             common.NormalizeScope(in.Scopes, s.deps.DefaultScopes),
		IssueRefreshToken: in.IssueRefreshToken,
		AuthTime:          now,
		State:             store.StatePending,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.deps.ChallengeTTL),
	}
	if err := s.deps.Challenges.Create(ctx, ch); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}

	log.Info("login challenge created", logger.UserID(user.ID), logger.ClientID(client.ID))
	return &dto.InitLoginResponse{ChallengeID: id}, nil
}

func (s *loginService) Complete(ctx context.Context, in dto.CompleteLoginRequest) (*dto.TokenResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.Op("Complete"),
	)

	in.ChallengeID = strings.TrimSpace(in.ChallengeID)
	if in.ChallengeID == "" {
		return nil, common.ErrHandleInvalid
	}
	if err := s.deps.Verifier.Verify(ctx, in.ChallengeID, in.ChallengeData); err != nil {
		burned := s.countRejected(ctx, in.ChallengeID)
		log.Debug("challenge data rejected", logger.Bool("burned", burned), logger.Err(err))
		return nil, fmt.Errorf("%w: %w", common.ErrHandleInvalid, err)
	}

	ch, err := s.deps.Challenges.Consume(ctx, in.ChallengeID, s.deps.Now())
	metrics.ObserveConsume("challenge", err, store.ErrHandleInvalid)
	if err != nil {
		if !errors.Is(err, store.ErrHandleInvalid) {
			return nil, fmt.Errorf("consume challenge: %w", err)
		}
		return nil, err
	}

	user, err := common.ActiveUser(ctx, s.deps.Users, ch.UserID)
	if err != nil {
		return nil, err
	}
	client, err := s.deps.Clients.Lookup(ch.ClientID)
	if err != nil {
		return nil, common.ErrUnknownClient
	}

	pair, err := s.deps.Issuer.IssueTokenPair(ctx, jwtx.IssueRequest{
		Subject:    user.ID,
		ClientID:   client.ID,
		Audience:   client.Audience,
		Scope:      ch.Scope,
		AuthTime:   ch.AuthTime,
		Attributes: user.Attributes,
	})
	if err != nil {
		return nil, err
	}

	out := &dto.TokenResponse{AccessToken: pair.AccessToken, IdentityToken: pair.IdentityToken}
	if ch.IssueRefreshToken {
		out.RefreshToken, err = s.deps.Refresh.Issue(ctx, user.ID, client.ID, ch.Scope, ch.AuthTime, pair.IssuedAt)
		if err != nil {
			return nil, err
		}
	}

	log.Info("login completed", logger.UserID(user.ID), logger.ClientID(client.ID),
		logger.Bool("refresh_token", out.RefreshToken != ""))
	return out, nil
}

// countRejected suma un challenge_data rechazado. Al agotar los intentos el
// challenge se consume sin emitir nada: ni el código correcto lo recupera.
func (s *loginService) countRejected(ctx context.Context, id string) bool {
	res, err := s.deps.Attempts.Allow(ctx, "challenge:"+store.HandleKey(id))
	if err != nil {
		logger.From(ctx).Warn("challenge attempt counter unavailable",
			logger.Component("auth.login"), logger.Err(err))
		return false
	}
	if res.Remaining > 0 {
		return false
	}
	_, err = s.deps.Challenges.Consume(ctx, id, s.deps.Now())
	return err == nil
}
