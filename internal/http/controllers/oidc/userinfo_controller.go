package oidc

import (
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/minijohn/internal/http/errors"
	"github.com/dropDatabas3/minijohn/internal/http/helpers"
	mw "github.com/dropDatabas3/minijohn/internal/http/middlewares"
	"github.com/dropDatabas3/minijohn/internal/http/services/common"
	svc "github.com/dropDatabas3/minijohn/internal/http/services/oidc"
)

// UserInfoController maneja /userinfo y /me. Corre detrás de RequireAuth.
type UserInfoController struct {
	service svc.UserInfoService
}

func NewUserInfoController(service svc.UserInfoService) *UserInfoController {
	return &UserInfoController{service: service}
}

// UserInfo maneja GET /userinfo
func (c *UserInfoController) UserInfo(w http.ResponseWriter, r *http.Request) {
	out, err := c.service.UserInfo(r.Context(), mw.GetUserID(r.Context()))
	if err != nil {
		writeOwnerError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

// Me maneja GET /me
func (c *UserInfoController) Me(w http.ResponseWriter, r *http.Request) {
	out, err := c.service.Me(r.Context(), mw.GetUserID(r.Context()))
	if err != nil {
		writeOwnerError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

func writeOwnerError(w http.ResponseWriter, err error) {
	if errors.Is(err, common.ErrUserNotFound) || errors.Is(err, common.ErrUserDisabled) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
		httperrors.WriteError(w, httperrors.ErrTokenInvalid.WithCause(err))
		return
	}
	httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
}
