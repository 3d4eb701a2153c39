// Package memory implementa el adapter en memoria: usuarios en un mapa y
// handles de un solo uso sobre go-cache. Sirve para desarrollo, tests y
// despliegues de un solo proceso.
package memory

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/minijohn/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

// Retention tiempo que un handle sigue guardado después de vencer, para que un
// reuso tardío se reporte como reuso y no como desconocido.
const Retention = time.Minute

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	return New(cfg.JanitorInterval), nil
}

// Connection agrupa los repos en memoria.
type Connection struct {
	users      *UserRepo
	challenges *ChallengeRepo
	codes      *AuthCodeRepo
	refresh    *RefreshTokenRepo
}

// New crea una conexión en memoria. janitor <= 0 usa un minuto.
func New(janitor time.Duration) *Connection {
	if janitor <= 0 {
		janitor = time.Minute
	}
	return &Connection{
		users:      NewUserRepo(),
		challenges: &ChallengeRepo{t: newTable(janitor)},
		codes:      &AuthCodeRepo{t: newTable(janitor)},
		refresh:    &RefreshTokenRepo{t: newTable(janitor)},
	}
}

func (c *Connection) Name() string                   { return "memory" }
func (c *Connection) Ping(ctx context.Context) error { return nil }
func (c *Connection) Close() error                   { return nil }

func (c *Connection) Users() store.UserRepository                 { return c.users }
func (c *Connection) Challenges() store.ChallengeRepository       { return c.challenges }
func (c *Connection) AuthCodes() store.AuthCodeRepository         { return c.codes }
func (c *Connection) RefreshTokens() store.RefreshTokenRepository { return c.refresh }

// ─── tabla de handles ───

// table serializa read-check-write sobre go-cache: el cache es seguro para
// accesos sueltos pero no para la transición pending→consumed.
type table struct {
	mu sync.Mutex
	c  *gocache.Cache
}

func newTable(janitor time.Duration) *table {
	return &table{c: gocache.New(gocache.NoExpiration, janitor)}
}

func ttlFor(expiresAt time.Time) time.Duration {
	d := time.Until(expiresAt) + Retention
	if d <= 0 {
		d = Retention
	}
	return d
}

// insert falla con ErrConflict si la clave ya existe. Requiere mu tomado.
func (t *table) insert(key string, v any, expiresAt time.Time) error {
	if _, ok := t.c.Get(key); ok {
		return store.ErrConflict
	}
	t.c.Set(key, v, ttlFor(expiresAt))
	return nil
}
