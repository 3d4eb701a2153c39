package redis

import (
	"context"
	"os"
	"testing"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/minijohn/internal/store/storetest"
)

// Requiere un Redis real: TEST_REDIS_ADDR=localhost:6379 go test ./...
func TestRedisAdapter_Conformance(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c := rdb.NewClient(&rdb.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	conn := New(c, "minijohn-test:")
	defer conn.Close()

	storetest.Run(t, conn)
}

func TestReply_ParsesStatusAndHash(t *testing.T) {
	t.Parallel()
	status, h, err := reply([]any{"ok", "user_id", "1", "state", "pending"}, nil)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if status != statusOK || h["user_id"] != "1" || h["state"] != "pending" {
		t.Fatalf("unexpected parse: %s %v", status, h)
	}
	if _, _, err := reply("nope", nil); err == nil {
		t.Fatalf("expected error on non-array reply")
	}
}

func TestConsumeStatus(t *testing.T) {
	t.Parallel()
	if consumeStatus(statusOK) != nil {
		t.Fatalf("ok should map to nil")
	}
	for _, s := range []string{statusMissing, statusConsumed, statusExpired, statusMismatch} {
		if consumeStatus(s) == nil {
			t.Fatalf("%s should be an error", s)
		}
	}
}

func TestUserHash_Attributes(t *testing.T) {
	t.Parallel()
	raw, err := encodeAttrs(map[string]any{"email": "a@b.c", "roles": []any{"admin"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	u, err := userFromHash("1", map[string]string{"username": "alice", "password_hash": "h", "disabled": "1", "attributes": raw})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.Username != "alice" || !u.Disabled || u.Attributes["email"] != "a@b.c" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if empty, _ := encodeAttrs(nil); empty != "" {
		t.Fatalf("nil attributes must encode empty, got %q", empty)
	}
	if _, err := userFromHash("1", map[string]string{"attributes": "{"}); err == nil {
		t.Fatalf("expected error on broken attributes")
	}
}

func TestKeys_UserLayout(t *testing.T) {
	t.Parallel()
	k := keys{prefix: "p:"}
	if k.user("7") != "p:user:7" || k.username("neo") != "p:username:neo" || k.userIndex() != "p:users" {
		t.Fatalf("unexpected keys: %s %s %s", k.user("7"), k.username("neo"), k.userIndex())
	}
}
