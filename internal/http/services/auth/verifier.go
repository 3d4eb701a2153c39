package auth

import (
	"context"
	"errors"

	tokens "github.com/dropDatabas3/minijohn/internal/security/token"
)

// ErrChallengeRejected challenge_data no pasó la verificación.
var ErrChallengeRejected = errors.New("challenge data rejected")

// ChallengeVerifier valida el segundo factor (challenge_data) de /login/complete.
type ChallengeVerifier interface {
	Verify(ctx context.Context, challengeID, data string) error
}

// AcceptAnyVerifier acepta cualquier challenge_data, incluso vacío.
type AcceptAnyVerifier struct{}

func (AcceptAnyVerifier) Verify(context.Context, string, string) error { return nil }

// StaticVerifier compara contra un código fijo en tiempo constante.
type StaticVerifier struct{ Code string }

func (v StaticVerifier) Verify(_ context.Context, _ string, data string) error {
	if v.Code == "" || !tokens.Equal(v.Code, data) {
		return ErrChallengeRejected
	}
	return nil
}

// NewVerifier resuelve el verifier por nombre de config ("any" | "static").
func NewVerifier(kind, staticCode string) (ChallengeVerifier, error) {
	switch kind {
	case "", "any":
		return AcceptAnyVerifier{}, nil
	case "static":
		if staticCode == "" {
			return nil, errors.New("static challenge verifier requires a code")
		}
		return StaticVerifier{Code: staticCode}, nil
	default:
		return nil, errors.New("unknown challenge verifier " + kind)
	}
}
