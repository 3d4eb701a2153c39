package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/minijohn/internal/store"
)

type userRepo struct {
	pool *pgxpool.Pool
}

const userColumns = `id, username, password_hash, disabled, attributes`

func scanUser(row pgx.Row) (*store.User, error) {
	var (
		u     store.User
		attrs []byte
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Disabled, &attrs); err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &u.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes: %w", err)
		}
	}
	return &u, nil
}

func (r *userRepo) List(ctx context.Context) ([]store.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []store.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*store.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*store.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// Put hace upsert; (xmax = 0) distingue insert de update en la misma sentencia.
func (r *userRepo) Put(ctx context.Context, u store.User) (bool, error) {
	attrs := u.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return false, fmt.Errorf("encode attributes: %w", err)
	}
	var created bool
	err = r.pool.QueryRow(ctx, `
		INSERT INTO users (id, username, password_hash, disabled, attributes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		   SET username      = EXCLUDED.username,
		       password_hash = EXCLUDED.password_hash,
		       disabled      = EXCLUDED.disabled,
		       attributes    = EXCLUDED.attributes,
		       updated_at    = now()
		RETURNING (xmax = 0)`,
		u.ID, u.Username, u.PasswordHash, u.Disabled, b,
	).Scan(&created)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, store.ErrConflict
		}
		return false, fmt.Errorf("put user: %w", err)
	}
	return created, nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *userRepo) SetDisabled(ctx context.Context, id string, disabled bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET disabled = $2, updated_at = now() WHERE id = $1`, id, disabled)
	if err != nil {
		return fmt.Errorf("set user disabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
