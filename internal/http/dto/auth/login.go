// Package auth contiene DTOs de la Login API (/login/*).
package auth

// InitLoginRequest body de POST /login/init. client_id también puede venir
// por query string, que tiene prioridad.
type InitLoginRequest struct {
	Username          string `json:"username"`
	Password          string `json:"password"`
	ClientID          string `json:"client_id"`
	IssueRefreshToken bool   `json:"issue_refresh_token"`
	Scopes            string `json:"scopes"`
}

type InitLoginResponse struct {
	ChallengeID string `json:"challenge_id"`
}

type CompleteLoginRequest struct {
	ChallengeID   string `json:"challenge_id"`
	ChallengeData string `json:"challenge_data"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse es la respuesta de /login/complete y /login/refresh.
// refresh_token sólo aparece si se pidió (complete) y siempre en refresh.
type TokenResponse struct {
	AccessToken   string `json:"access_token"`
	IdentityToken string `json:"identity_token"`
	RefreshToken  string `json:"refresh_token,omitempty"`
}
