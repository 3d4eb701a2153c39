package rate

import (
	"context"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter fixed window por proceso. Los contadores viven en go-cache y
// expiran con su ventana.
type MemoryLimiter struct {
	Max    int64
	Window time.Duration

	mu  sync.Mutex
	c   *gocache.Cache
	now func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		Max:    int64(max),
		Window: window,
		c:      gocache.New(window, 2*window),
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.Window)
	winEnd := winStart.Add(l.Window)
	k := key + ":" + strconv.FormatInt(winStart.Unix(), 10)

	l.mu.Lock()
	var hits int64 = 1
	if err := l.c.Add(k, hits, winEnd.Sub(now)+time.Second); err != nil {
		// ya existe: incrementar
		hits, _ = l.c.IncrementInt64(k, 1)
	}
	l.mu.Unlock()

	return result(hits, l.Max, winEnd.Sub(now)), nil
}
