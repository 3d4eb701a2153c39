package auth

import (
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/minijohn/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/minijohn/internal/http/errors"
	"github.com/dropDatabas3/minijohn/internal/http/helpers"
	svc "github.com/dropDatabas3/minijohn/internal/http/services/auth"
	"github.com/dropDatabas3/minijohn/internal/observability/logger"
)

// LoginController maneja /login/init y /login/complete.
type LoginController struct {
	service svc.LoginService
}

func NewLoginController(service svc.LoginService) *LoginController {
	return &LoginController{service: service}
}

// Init maneja POST /login/init
func (c *LoginController) Init(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Init"))

	var req dto.InitLoginRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	// client_id por query tiene prioridad sobre el body
	if q := strings.TrimSpace(r.URL.Query().Get("client_id")); q != "" {
		req.ClientID = q
	}

	res, err := c.service.Init(ctx, req)
	if err != nil {
		log.Debug("login init failed", logger.Err(err))
		writeAuthError(w, err, httperrors.ErrInvalidChallenge)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// Complete maneja POST /login/complete
func (c *LoginController) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Complete"))

	var req dto.CompleteLoginRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	res, err := c.service.Complete(ctx, req)
	if err != nil {
		log.Debug("login complete failed", logger.Err(err))
		writeAuthError(w, err, httperrors.ErrInvalidChallenge)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}
