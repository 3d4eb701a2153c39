// Package users contiene el controller de /users.
package users

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/minijohn/internal/http/dto/users"
	httperrors "github.com/dropDatabas3/minijohn/internal/http/errors"
	"github.com/dropDatabas3/minijohn/internal/http/helpers"
	"github.com/dropDatabas3/minijohn/internal/http/services/common"
	svc "github.com/dropDatabas3/minijohn/internal/http/services/users"
	"github.com/dropDatabas3/minijohn/internal/observability/logger"
)

type Controller struct {
	service svc.Service
}

func NewController(service svc.Service) *Controller {
	return &Controller{service: service}
}

// List maneja GET /users
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	list, err := c.service.List(r.Context())
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, list)
}

// Get maneja GET /users/{id}
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	u, err := c.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, u)
}

// Put maneja PUT /users/{id}: 201 si lo crea, 200 si lo actualiza.
func (c *Controller) Put(w http.ResponseWriter, r *http.Request) {
	var req dto.PutUserRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	u, created, err := c.service.Put(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	helpers.WriteJSON(w, status, u)
}

// Delete maneja DELETE /users/{id}
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	if err := c.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeUserError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "User deleted"})
}

// Disable maneja POST /users/{id}/disable
func (c *Controller) Disable(w http.ResponseWriter, r *http.Request) { c.setDisabled(w, r, true) }

// Enable maneja POST /users/{id}/enable
func (c *Controller) Enable(w http.ResponseWriter, r *http.Request) { c.setDisabled(w, r, false) }

func (c *Controller) setDisabled(w http.ResponseWriter, r *http.Request, disabled bool) {
	if err := c.service.SetDisabled(r.Context(), chi.URLParam(r, "id"), disabled); err != nil {
		writeUserError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrUserNotFound):
		httperrors.WriteError(w, httperrors.ErrUserNotFound)
	case errors.Is(err, svc.ErrUsernameTaken):
		httperrors.WriteError(w, httperrors.ErrUsernameTaken)
	case errors.Is(err, common.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("username and password are required to create a user"))
	case errors.Is(err, svc.ErrInvalidUserID):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid user id"))
	default:
		logger.From(r.Context()).Error("users request failed", logger.Layer("controller"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
