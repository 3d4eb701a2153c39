// Package health contiene el service del health check.
package health

import (
	"context"
	"time"

	dto "github.com/dropDatabas3/minijohn/internal/http/dto/health"
	"github.com/dropDatabas3/minijohn/internal/observability/logger"
)

// Pinger lo implementa cualquier backend con chequeo de vida (store, redis del rate limiter).
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapta una función a Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Service reporta el estado de los componentes.
type Service interface {
	// Check devuelve ok=false si algún componente falla.
	Check(ctx context.Context) (resp dto.HealthResponse, ok bool)
}

type service struct {
	components map[string]Pinger
	timeout    time.Duration
}

// NewService timeout <= 0 usa 2s por componente.
func NewService(components map[string]Pinger, timeout time.Duration) Service {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &service{components: components, timeout: timeout}
}

func (s *service) Check(ctx context.Context) (dto.HealthResponse, bool) {
	var failed map[string]string
	for name, p := range s.components {
		if p == nil {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := p.Ping(cctx)
		cancel()
		if err != nil {
			if failed == nil {
				failed = map[string]string{}
			}
			failed[name] = "unavailable"
			logger.From(ctx).Warn("health component down", logger.Component(name), logger.Err(err))
		}
	}
	if failed != nil {
		return dto.HealthResponse{Status: "DEGRADED", Components: failed}, false
	}
	return dto.HealthResponse{Status: "OK"}, true
}
