package common

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dropDatabas3/minijohn/internal/security/password"
	"github.com/dropDatabas3/minijohn/internal/store"
)

// dummyHash se verifica cuando el username no existe, para que el tiempo de
// respuesta no revele qué usernames están registrados.
var dummyHash = sync.OnceValue(func() string {
	h, _ := password.Hash(password.Default, "minijohn-timing-equalizer")
	return h
})

// Authenticate valida username/password. Un usuario deshabilitado devuelve
// ErrUserDisabled sólo si la contraseña es correcta.
func Authenticate(ctx context.Context, users store.UserRepository, username, plain string) (*store.User, error) {
	if username == "" || plain == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := users.GetByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		_ = password.Verify(plain, dummyHash())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !password.Verify(plain, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if u.Disabled {
		return nil, ErrUserDisabled
	}
	return u, nil
}

// ActiveUser relee un usuario al completar un flujo: borrado o deshabilitado
// entre pasos invalida la emisión.
func ActiveUser(ctx context.Context, users store.UserRepository, id string) (*store.User, error) {
	u, err := users.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u.Disabled {
		return nil, ErrUserDisabled
	}
	return u, nil
}
