package auth

import (
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/minijohn/internal/http/errors"
	"github.com/dropDatabas3/minijohn/internal/http/services/common"
)

// writeAuthError mapea errores de service a respuestas. handleErr es el
// AppError que corresponde a un handle inválido en cada endpoint.
func writeAuthError(w http.ResponseWriter, err error, handleErr *httperrors.AppError) {
	switch {
	case errors.Is(err, common.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("username, password and client_id are required"))
	case errors.Is(err, common.ErrUnknownClient):
		httperrors.WriteError(w, httperrors.ErrInvalidClient)
	case errors.Is(err, common.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, common.ErrUserDisabled):
		httperrors.WriteError(w, httperrors.ErrUserDisabled)
	case errors.Is(err, common.ErrHandleInvalid), errors.Is(err, common.ErrUserNotFound):
		httperrors.WriteError(w, handleErr.WithCause(err))
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
