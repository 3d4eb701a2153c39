package store

import (
	"context"
	"errors"
	"fmt"
)

// SeedUsers inserta los usuarios que todavía no existen. Los que ya están
// (p.ej. editados vía /users en un backend persistente) no se pisan.
func SeedUsers(ctx context.Context, repo UserRepository, users []User) (int, error) {
	var n int
	for _, u := range users {
		_, err := repo.GetByID(ctx, u.ID)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, ErrNotFound):
			return n, fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		if _, err := repo.Put(ctx, u); err != nil {
			return n, fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		n++
	}
	return n, nil
}
