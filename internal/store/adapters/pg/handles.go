package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/minijohn/internal/store"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ─── Challenges ───

type challengeRepo struct {
	pool *pgxpool.Pool
}

func (r *challengeRepo) Create(ctx context.Context, c store.Challenge) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO login_challenges
		    (id, user_id, client_id, scope, issue_refresh_token, auth_time, state, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8)`,
		store.HandleKey(c.ID), c.UserID, c.ClientID, c.Scope, c.IssueRefreshToken, c.AuthTime, c.CreatedAt, c.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create challenge: %w", err)
	}
	return nil
}

// Consume: el UPDATE condicional es el único punto de sincronización; de N
// transacciones concurrentes sólo una ve la fila en 'pending'.
func (r *challengeRepo) Consume(ctx context.Context, id string, now time.Time) (*store.Challenge, error) {
	c := store.Challenge{ID: id, State: store.StateConsumed}
	err := r.pool.QueryRow(ctx, `
		UPDATE login_challenges
		   SET state = 'consumed'
		 WHERE id = $1
		   AND state = 'pending'
		   AND expires_at > $2
		RETURNING user_id, client_id, scope, issue_refresh_token, auth_time, created_at, expires_at`,
		store.HandleKey(id), now,
	).Scan(&c.UserID, &c.ClientID, &c.Scope, &c.IssueRefreshToken, &c.AuthTime, &c.CreatedAt, &c.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrHandleInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("consume challenge: %w", err)
	}
	return &c, nil
}

// ─── Authorization codes ───

type authCodeRepo struct {
	pool *pgxpool.Pool
}

func (r *authCodeRepo) Create(ctx context.Context, c store.AuthCode) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO authorization_codes
		    (code_hash, user_id, client_id, redirect_uri, scope, nonce, auth_time, state, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8, $9)`,
		store.HandleKey(c.Code), c.UserID, c.ClientID, c.RedirectURI, c.Scope, c.Nonce, c.AuthTime, c.CreatedAt, c.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create auth code: %w", err)
	}
	return nil
}

// Consume quema el code y recién después compara client/redirect, así un
// intento con otro client también lo invalida.
func (r *authCodeRepo) Consume(ctx context.Context, code, clientID, redirectURI string, now time.Time) (*store.AuthCode, error) {
	c := store.AuthCode{Code: code, State: store.StateConsumed}
	err := r.pool.QueryRow(ctx, `
		UPDATE authorization_codes
		   SET state = 'consumed'
		 WHERE code_hash = $1
		   AND state = 'pending'
		   AND expires_at > $2
		RETURNING user_id, client_id, redirect_uri, scope, nonce, auth_time, created_at, expires_at`,
		store.HandleKey(code), now,
	).Scan(&c.UserID, &c.ClientID, &c.RedirectURI, &c.Scope, &c.Nonce, &c.AuthTime, &c.CreatedAt, &c.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrHandleInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("consume auth code: %w", err)
	}
	if c.ClientID != clientID || c.RedirectURI != redirectURI {
		return nil, store.ErrClientMismatch
	}
	return &c, nil
}

// ─── Refresh tokens ───

type refreshTokenRepo struct {
	pool *pgxpool.Pool
}

const insertRefresh = `
	INSERT INTO refresh_tokens
	    (token_hash, user_id, client_id, scope, auth_time, state, issued_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7)`

func (r *refreshTokenRepo) Issue(ctx context.Context, t store.RefreshToken) error {
	_, err := r.pool.Exec(ctx, insertRefresh,
		store.HandleKey(t.Token), t.UserID, t.ClientID, t.Scope, t.AuthTime, t.IssuedAt, t.ExpiresAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("issue refresh token: %w", err)
	}
	return nil
}

func (r *refreshTokenRepo) Rotate(ctx context.Context, old string, next store.RefreshToken, now time.Time) (*store.RefreshToken, error) {
	oldKey := store.HandleKey(old)
	nextKey := store.HandleKey(next.Token)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	defer tx.Rollback(ctx)

	rt := store.RefreshToken{Token: old, State: store.StateConsumed, ReplacedBy: nextKey}
	err = tx.QueryRow(ctx, `
		UPDATE refresh_tokens
		   SET state = 'consumed', replaced_by = $3
		 WHERE token_hash = $1
		   AND state = 'pending'
		   AND expires_at > $2
		RETURNING user_id, client_id, scope, auth_time, issued_at, expires_at`,
		oldKey, now, nextKey,
	).Scan(&rt.UserID, &rt.ClientID, &rt.Scope, &rt.AuthTime, &rt.IssuedAt, &rt.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.diagnose(ctx, old, oldKey)
	}
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	if _, err := tx.Exec(ctx, insertRefresh,
		nextKey, rt.UserID, rt.ClientID, rt.Scope, rt.AuthTime, next.IssuedAt, next.ExpiresAt); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, fmt.Errorf("rotate refresh token: insert next: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("rotate refresh token: commit: %w", err)
	}
	return &rt, nil
}

// diagnose distingue reuso (consumed, con replaced_by) de desconocido/vencido
// cuando el UPDATE no tocó filas.
func (r *refreshTokenRepo) diagnose(ctx context.Context, old, oldKey string) (*store.RefreshToken, error) {
	rt := store.RefreshToken{Token: old}
	var state string
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, client_id, scope, auth_time, state, issued_at, expires_at, replaced_by
		  FROM refresh_tokens
		 WHERE token_hash = $1`, oldKey,
	).Scan(&rt.UserID, &rt.ClientID, &rt.Scope, &rt.AuthTime, &state, &rt.IssuedAt, &rt.ExpiresAt, &rt.ReplacedBy)
	if err != nil {
		return nil, store.ErrHandleInvalid
	}
	rt.State = store.HandleState(state)
	if rt.State == store.StateConsumed {
		return &rt, store.ErrHandleReused
	}
	return nil, store.ErrHandleInvalid
}

// Purge borra handles vencidos hace más de retention.
func (c *Connection) Purge(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	cutoff := now.Add(-retention)
	var total int64
	for _, q := range []string{
		`DELETE FROM login_challenges WHERE expires_at < $1`,
		`DELETE FROM authorization_codes WHERE expires_at < $1`,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`,
	} {
		tag, err := c.pool.Exec(ctx, q, cutoff)
		if err != nil {
			return total, fmt.Errorf("purge: %w", err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}
