// Package pg implementa el adapter PostgreSQL (usuarios y handles) sobre pgxpool.
package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/minijohn/internal/store"
)

func init() {
	store.RegisterAdapter(&pgAdapter{})
}

type pgAdapter struct{}

func (a *pgAdapter) Name() string { return "postgres" }

func (a *pgAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("pg: dsn is required")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pcfg.MinConns = int32(cfg.MaxIdleConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	if cfg.AutoMigrate {
		if _, err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return New(pool), nil
}

// Connection envuelve el pool. Close lo cierra.
type Connection struct {
	pool       *pgxpool.Pool
	users      *userRepo
	challenges *challengeRepo
	codes      *authCodeRepo
	refresh    *refreshTokenRepo
}

func New(pool *pgxpool.Pool) *Connection {
	return &Connection{
		pool:       pool,
		users:      &userRepo{pool: pool},
		challenges: &challengeRepo{pool: pool},
		codes:      &authCodeRepo{pool: pool},
		refresh:    &refreshTokenRepo{pool: pool},
	}
}

func (c *Connection) Name() string                   { return "postgres" }
func (c *Connection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }
func (c *Connection) Close() error                   { c.pool.Close(); return nil }

// Pool expone el pool para migraciones.
func (c *Connection) Pool() *pgxpool.Pool { return c.pool }

func (c *Connection) Users() store.UserRepository                 { return c.users }
func (c *Connection) Challenges() store.ChallengeRepository       { return c.challenges }
func (c *Connection) AuthCodes() store.AuthCodeRepository         { return c.codes }
func (c *Connection) RefreshTokens() store.RefreshTokenRepository { return c.refresh }
