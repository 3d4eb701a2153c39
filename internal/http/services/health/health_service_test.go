package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCheck_AllUp(t *testing.T) {
	t.Parallel()
	s := NewService(map[string]Pinger{
		"store": PingFunc(func(context.Context) error { return nil }),
		"rate":  nil,
	}, 0)
	resp, ok := s.Check(context.Background())
	if !ok || resp.Status != "OK" || resp.Components != nil {
		t.Fatalf("resp = %+v ok=%v", resp, ok)
	}
}

func TestCheck_Degraded(t *testing.T) {
	t.Parallel()
	s := NewService(map[string]Pinger{
		"store": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
		"slow": PingFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
		"cache": PingFunc(func(context.Context) error { return nil }),
	}, 20*time.Millisecond)

	resp, ok := s.Check(context.Background())
	if ok || resp.Status != "DEGRADED" {
		t.Fatalf("resp = %+v ok=%v", resp, ok)
	}
	if len(resp.Components) != 2 || resp.Components["store"] != "unavailable" || resp.Components["slow"] != "unavailable" {
		t.Fatalf("components = %v", resp.Components)
	}
}
