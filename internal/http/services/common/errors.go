// Package common reúne piezas compartidas por los services de login y OAuth2:
// errores de dominio, autenticación de usuario y emisión de refresh tokens.
package common

import (
	"errors"

	"github.com/dropDatabas3/minijohn/internal/store"
)

// Errores de service. Los controllers los mapean a httperrors.
var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnknownClient      = errors.New("unknown client")
	ErrInvalidGrant       = errors.New("invalid grant")
	ErrUnsupportedGrant   = errors.New("unsupported grant type")

	// Alias de store para que los controllers no importen el paquete store.
	ErrHandleInvalid  = store.ErrHandleInvalid
	ErrClientMismatch = store.ErrClientMismatch
)
