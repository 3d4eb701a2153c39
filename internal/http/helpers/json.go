// Package helpers tiene utilidades HTTP compartidas por los controllers.
package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	httperrors "github.com/dropDatabas3/minijohn/internal/http/errors"
)

const (
	ContentTypeJSON = "application/json; charset=utf-8"
	// MaxBodySize límite por defecto de bodies JSON y forms.
	MaxBodySize = 64 * 1024
)

// WriteJSON serializa v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodifica el body en dst con límite de tamaño. Un body vacío
// es válido y deja dst en su zero value. Devuelve un *AppError listo para WriteError.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(dst)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &tooLarge):
		return httperrors.ErrBodyTooLarge
	default:
		return httperrors.ErrInvalidJSON.WithCause(err)
	}
}

// ParseForm parsea un form urlencoded con el mismo límite de tamaño.
func ParseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return httperrors.ErrBodyTooLarge
		}
		return httperrors.ErrBadRequest.WithDetail("invalid form").WithCause(err)
	}
	return nil
}
