package errors

import (
	"encoding/json"
	"net/http"
)

// Códigos RFC 6749 §5.2.
const (
	OAuthInvalidRequest       = "invalid_request"
	OAuthInvalidClient        = "invalid_client"
	OAuthInvalidGrant         = "invalid_grant"
	OAuthUnsupportedGrantType = "unsupported_grant_type"
	OAuthUnsupportedResponse  = "unsupported_response_type"
	OAuthServerError          = "server_error"
)

// OAuthError es el cuerpo de error del token endpoint.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	HTTPStatus  int    `json:"-"`
}

func (e *OAuthError) Error() string { return e.Code + ": " + e.Description }

func NewOAuth(status int, code, desc string) *OAuthError {
	return &OAuthError{Code: code, Description: desc, HTTPStatus: status}
}

// WriteOAuthError escribe {error, error_description} con no-store. Un 401
// invalid_client lleva WWW-Authenticate: Basic.
func WriteOAuthError(w http.ResponseWriter, e *OAuthError) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
	if e.HTTPStatus == http.StatusUnauthorized {
		h.Set("WWW-Authenticate", `Basic realm="token"`)
	}
	w.WriteHeader(e.HTTPStatus)
	_ = json.NewEncoder(w).Encode(e)
}
