// Package oauth contiene DTOs del flujo authorization code.
package oauth

// AuthorizeRequest parámetros de GET /oauth2/authorize.
type AuthorizeRequest struct {
	ResponseType string
	ClientID     string
	RedirectURI  string
	Scope        string
	State        string
	Nonce        string
}

// SubmitRequest form de POST /oauth2/authorize/submit.
type SubmitRequest struct {
	AuthorizeRequest
	Username  string
	Password  string
	Challenge string
}

// TokenRequest form de POST /oauth2/token. Las credenciales del cliente
// pueden venir en el form o por HTTP Basic.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	ClientID     string
	ClientSecret string
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// LoginPage datos que recibe el template del form de login.
type LoginPage struct {
	ClientID         string
	RedirectURI      string
	Scope            string
	State            string
	Nonce            string
	Username         string
	RequireChallenge bool
	Error            string
}
