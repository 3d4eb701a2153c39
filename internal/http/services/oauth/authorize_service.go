package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/minijohn/internal/clients"
	dto "github.com/dropDatabas3/minijohn/internal/http/dto/oauth"
	"github.com/dropDatabas3/minijohn/internal/http/services/auth"
	"github.com/dropDatabas3/minijohn/internal/http/services/common"
	"github.com/dropDatabas3/minijohn/internal/observability/logger"
	tokens "github.com/dropDatabas3/minijohn/internal/security/token"
	"github.com/dropDatabas3/minijohn/internal/store"
)

var (
	ErrUnsupportedResponseType = errors.New("response_type must be code")
	ErrInvalidRedirect         = errors.New("invalid client_id or redirect_uri")
)

// Mensajes que ve el usuario en el form.
const (
	msgChallengeRequired  = "Challenge is required"
	msgInvalidChallenge   = "Invalid challenge"
	msgInvalidCredentials = "Invalid username or password"
)

// AuthorizeService maneja el paso interactivo del authorization code flow.
type AuthorizeService interface {
	// Authorize valida la request y devuelve los datos del form de login.
	Authorize(ctx context.Context, in dto.AuthorizeRequest) (*dto.LoginPage, error)
	// Submit autentica al usuario. Con éxito devuelve la URL de redirect con el
	// code; si las credenciales fallan devuelve el form con el error.
	Submit(ctx context.Context, in dto.SubmitRequest) (*SubmitResult, error)
}

// SubmitResult: exactamente uno de los dos campos viene seteado.
type SubmitResult struct {
	RedirectURL string
	Page        *dto.LoginPage
}

type AuthorizeDeps struct {
	Users   store.UserRepository
	Codes   store.AuthCodeRepository
	Clients *clients.Registry

	// Verifier se usa sólo si RequireChallenge.
	Verifier         auth.ChallengeVerifier
	RequireChallenge bool
	DefaultScopes    string
	CodeTTL          time.Duration
	Now              func() time.Time
}

type authorizeService struct {
	deps AuthorizeDeps
}

func NewAuthorizeService(deps AuthorizeDeps) AuthorizeService {
	if deps.Verifier == nil {
		deps.Verifier = auth.AcceptAnyVerifier{}
	}
	if deps.CodeTTL <= 0 {
		deps.CodeTTL = 10 * time.Minute
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &authorizeService{deps: deps}
}

func (s *authorizeService) page(in dto.AuthorizeRequest) *dto.LoginPage {
	return &dto.LoginPage{
		ClientID:         in.ClientID,
		RedirectURI:      in.RedirectURI,
		Scope:            common.NormalizeScope(in.Scope, s.deps.DefaultScopes),
		State:            in.State,
		Nonce:            in.Nonce,
		RequireChallenge: s.deps.RequireChallenge,
	}
}

func (s *authorizeService) Authorize(ctx context.Context, in dto.AuthorizeRequest) (*dto.LoginPage, error) {
	if in.ResponseType != "code" {
		return nil, ErrUnsupportedResponseType
	}
	if _, err := s.deps.Clients.ResolveRedirect(in.ClientID, in.RedirectURI); err != nil {
		logger.From(ctx).Debug("authorize rejected",
			logger.Layer("service"), logger.Op("Authorize"), logger.ClientID(in.ClientID), logger.Err(err))
		return nil, ErrInvalidRedirect
	}
	return s.page(in), nil
}

func (s *authorizeService) Submit(ctx context.Context, in dto.SubmitRequest) (*SubmitResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.authorize"),
		logger.Op("Submit"),
	)

	page := s.page(in.AuthorizeRequest)
	page.Username = in.Username

	if s.deps.RequireChallenge {
		if strings.TrimSpace(in.Challenge) == "" {
			page.Error = msgChallengeRequired
			return &SubmitResult{Page: page}, nil
		}
	}

	client, err := s.deps.Clients.ResolveRedirect(in.ClientID, in.RedirectURI)
	if err != nil {
		return nil, ErrInvalidRedirect
	}

	if s.deps.RequireChallenge {
		if err := s.deps.Verifier.Verify(ctx, "", in.Challenge); err != nil {
			page.Error = msgInvalidChallenge
			return &SubmitResult{Page: page}, nil
		}
	}

	user, err := common.Authenticate(ctx, s.deps.Users, strings.TrimSpace(in.Username), in.Password)
	switch {
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrUserDisabled):
		log.Debug("credential check failed", logger.ClientID(client.ID), logger.Err(err))
		page.Error = msgInvalidCredentials
		return &SubmitResult{Page: page}, nil
	case err != nil:
		return nil, err
	}

	code, err := tokens.NewHandle()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	now := s.deps.Now()
	if err := s.deps.Codes.Create(ctx, store.AuthCode{
		Code:        code,
		UserID:      user.ID,
		ClientID:    client.ID,
		RedirectURI: in.RedirectURI,
		Scope:       page.Scope,
		Nonce:       in.Nonce,
		AuthTime:    now,
		State:       store.StatePending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.deps.CodeTTL),
	}); err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}

	target, err := redirectWithCode(in.RedirectURI, code, in.State)
	if err != nil {
		return nil, err
	}
	log.Info("authorization code issued", logger.UserID(user.ID), logger.ClientID(client.ID))
	return &SubmitResult{RedirectURL: target}, nil
}

// redirectWithCode agrega code y state (si hay) conservando la query existente.
func redirectWithCode(redirectURI, code, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("parse redirect_uri: %w", err)
	}
	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
