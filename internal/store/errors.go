package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un conflicto (ej: username duplicado).
	ErrConflict = errors.New("conflict")

	// ErrHandleInvalid agrupa handle desconocido, ya consumido o vencido.
	// Los llamadores no deben distinguir entre los tres hacia afuera.
	ErrHandleInvalid = errors.New("handle invalid")

	// ErrHandleReused un refresh token ya rotado se volvió a presentar.
	ErrHandleReused = fmt.Errorf("%w: reused", ErrHandleInvalid)

	// ErrClientMismatch el code se presentó con otro client_id/redirect_uri.
	// El code queda quemado igual.
	ErrClientMismatch = fmt.Errorf("%w: client mismatch", ErrHandleInvalid)
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
