// Package store define el modelo persistente (usuarios y handles de un solo uso),
// los contratos de repositorio y el registry de adaptadores de almacenamiento.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Adapter representa un backend de almacenamiento capaz de abrir una conexión.
type Adapter interface {
	// Name retorna el nombre del adapter ("memory", "redis", "postgres").
	Name() string

	// Connect establece conexión con el almacenamiento.
	Connect(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error)
}

// AdapterConnection representa una conexión activa con sus repositorios.
type AdapterConnection interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error

	// ─── Repositorios ───

	Users() UserRepository
	Challenges() ChallengeRepository
	AuthCodes() AuthCodeRepository
	RefreshTokens() RefreshTokenRepository
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "memory", "redis", "postgres"
	Name string

	// DSN connection string (postgres)
	DSN string

	// Pool settings (postgres)
	MaxOpenConns int
	MaxIdleConns int

	// AutoMigrate aplica el schema embebido al conectar (postgres)
	AutoMigrate bool

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// JanitorInterval frecuencia de limpieza de entradas vencidas (memory)
	JanitorInterval time.Duration
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter en el registry global.
// Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAdapter abre una conexión usando el adapter especificado en la config.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("adapter: %q not registered (have %v)", cfg.Name, ListAdapters())
	}
	return a.Connect(ctx, cfg)
}

// Purger lo implementan los adapters que necesitan limpieza explícita de
// handles vencidos (memory y redis expiran solos).
type Purger interface {
	Purge(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}
