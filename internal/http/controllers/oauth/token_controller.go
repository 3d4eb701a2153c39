package oauth

import (
	"errors"
	"net/http"
	"net/url"

	dto "github.com/dropDatabas3/minijohn/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/minijohn/internal/http/errors"
	"github.com/dropDatabas3/minijohn/internal/http/helpers"
	"github.com/dropDatabas3/minijohn/internal/http/services/common"
	svc "github.com/dropDatabas3/minijohn/internal/http/services/oauth"
	"github.com/dropDatabas3/minijohn/internal/observability/logger"
)

// TokenController maneja POST /oauth2/token.
type TokenController struct {
	service svc.TokenService
}

func NewTokenController(service svc.TokenService) *TokenController {
	return &TokenController{service: service}
}

func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TokenController.Token"))

	if err := helpers.ParseForm(w, r); err != nil {
		httperrors.WriteOAuthError(w, httperrors.NewOAuth(http.StatusBadRequest, httperrors.OAuthInvalidRequest, "invalid form body"))
		return
	}
	f := r.PostForm
	in := dto.TokenRequest{
		GrantType:    f.Get("grant_type"),
		Code:         f.Get("code"),
		RedirectURI:  f.Get("redirect_uri"),
		ClientID:     f.Get("client_id"),
		ClientSecret: f.Get("client_secret"),
	}
	if in.GrantType == "" {
		httperrors.WriteOAuthError(w, httperrors.NewOAuth(http.StatusBadRequest, httperrors.OAuthInvalidRequest, "grant_type is required"))
		return
	}

	// client_secret_basic: credenciales form-urlencoded dentro del header (RFC 6749 §2.3.1)
	if id, secret, ok := r.BasicAuth(); ok {
		if uid, err := url.QueryUnescape(id); err == nil {
			id = uid
		}
		if us, err := url.QueryUnescape(secret); err == nil {
			secret = us
		}
		if in.ClientID != "" && in.ClientID != id {
			httperrors.WriteOAuthError(w, httperrors.NewOAuth(http.StatusBadRequest, httperrors.OAuthInvalidRequest, "client_id mismatch"))
			return
		}
		in.ClientID, in.ClientSecret = id, secret
	}

	res, err := c.service.Exchange(ctx, in)
	if err != nil {
		log.Debug("token exchange failed", logger.ClientID(in.ClientID), logger.Err(err))
		httperrors.WriteOAuthError(w, oauthError(err))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	helpers.WriteJSON(w, http.StatusOK, res)
}

func oauthError(err error) *httperrors.OAuthError {
	switch {
	case errors.Is(err, common.ErrUnsupportedGrant):
		return httperrors.NewOAuth(http.StatusBadRequest, httperrors.OAuthUnsupportedGrantType, "only authorization_code is supported")
	case errors.Is(err, common.ErrUnknownClient):
		return httperrors.NewOAuth(http.StatusUnauthorized, httperrors.OAuthInvalidClient, "client authentication failed")
	case errors.Is(err, common.ErrInvalidGrant):
		return httperrors.NewOAuth(http.StatusBadRequest, httperrors.OAuthInvalidGrant, "invalid or expired authorization code")
	default:
		return httperrors.NewOAuth(http.StatusInternalServerError, httperrors.OAuthServerError, "")
	}
}
