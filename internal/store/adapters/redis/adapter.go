// Package redis guarda los handles de un solo uso en Redis. Las transiciones
// de estado corren en scripts Lua para que check-and-set sea un único paso.
// Los usuarios también viven en Redis, así varias instancias ven el mismo
// disabled y los refresh tokens sobreviven junto con sus dueños.
//
// Requiere Redis standalone o sentinel: Rotate toca dos claves que en cluster
// caerían en slots distintos.
package redis

import (
	"context"
	"fmt"
	"strings"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/minijohn/internal/store"
)

func init() {
	store.RegisterAdapter(&redisAdapter{})
}

type redisAdapter struct{}

func (a *redisAdapter) Name() string { return "redis" }

func (a *redisAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, fmt.Errorf("redis: addr is required")
	}
	c := rdb.NewClient(&rdb.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.RedisAddr, err)
	}
	return New(c, cfg.RedisPrefix), nil
}

// Connection usa un cliente ya abierto. Close lo cierra.
type Connection struct {
	c          *rdb.Client
	users      *UserRepo
	challenges *ChallengeRepo
	codes      *AuthCodeRepo
	refresh    *RefreshTokenRepo
}

// New arma la conexión sobre c. prefix vacío usa "minijohn:".
func New(c *rdb.Client, prefix string) *Connection {
	if prefix == "" {
		prefix = "minijohn:"
	}
	k := keys{prefix: prefix}
	return &Connection{
		c:          c,
		users:      &UserRepo{c: c, k: k},
		challenges: &ChallengeRepo{c: c, k: k},
		codes:      &AuthCodeRepo{c: c, k: k},
		refresh:    &RefreshTokenRepo{c: c, k: k},
	}
}

func (c *Connection) Name() string                   { return "redis" }
func (c *Connection) Ping(ctx context.Context) error { return c.c.Ping(ctx).Err() }
func (c *Connection) Close() error                   { return c.c.Close() }

func (c *Connection) Users() store.UserRepository                 { return c.users }
func (c *Connection) Challenges() store.ChallengeRepository       { return c.challenges }
func (c *Connection) AuthCodes() store.AuthCodeRepository         { return c.codes }
func (c *Connection) RefreshTokens() store.RefreshTokenRepository { return c.refresh }

type keys struct{ prefix string }

func (k keys) challenge(h string) string { return k.prefix + "challenge:" + store.HandleKey(h) }
func (k keys) code(h string) string      { return k.prefix + "code:" + store.HandleKey(h) }
func (k keys) refresh(h string) string   { return k.prefix + "refresh:" + store.HandleKey(h) }
func (k keys) user(id string) string     { return k.prefix + "user:" + id }
func (k keys) username(n string) string  { return k.prefix + "username:" + n }
func (k keys) userIndex() string         { return k.prefix + "users" }

// Client expone el cliente para compartirlo (p.ej. con el rate limiter).
func (c *Connection) Client() *rdb.Client { return c.c }
