package auth

import (
	"net/http"

	dto "github.com/dropDatabas3/minijohn/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/minijohn/internal/http/errors"
	"github.com/dropDatabas3/minijohn/internal/http/helpers"
	svc "github.com/dropDatabas3/minijohn/internal/http/services/auth"
	"github.com/dropDatabas3/minijohn/internal/observability/logger"
)

// RefreshController maneja POST /login/refresh.
type RefreshController struct {
	service svc.RefreshService
}

func NewRefreshController(service svc.RefreshService) *RefreshController {
	return &RefreshController{service: service}
}

func (c *RefreshController) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.RefreshRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	res, err := c.service.Refresh(ctx, req)
	if err != nil {
		logger.From(ctx).Debug("refresh failed",
			logger.Layer("controller"), logger.Op("RefreshController.Refresh"), logger.Err(err))
		writeAuthError(w, err, httperrors.ErrInvalidRefreshToken)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}
