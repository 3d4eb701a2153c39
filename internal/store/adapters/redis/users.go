package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/minijohn/internal/store"
)

// UserRepo usuarios como hashes en Redis:
//
//	<prefix>user:<id>            hash {username, password_hash, disabled, attributes(json)}
//	<prefix>username:<username>  string -> id
//	<prefix>users                set de ids (para List)
//
// Put, Delete y SetDisabled corren como scripts para que el índice por
// username nunca quede desalineado con el hash.
type UserRepo struct {
	c *rdb.Client
	k keys
}

// userPutScript KEYS[1]=user, KEYS[2]=username nuevo, KEYS[3]=set de ids;
// ARGV[1]=id, ARGV[2]=username, ARGV[3]=password_hash, ARGV[4]=disabled,
// ARGV[5]=attributes, ARGV[6]=prefijo de las claves username.
var userPutScript = rdb.NewScript(`
local owner = redis.call('GET', KEYS[2])
if owner and owner ~= ARGV[1] then return 'conflict' end
local existed = redis.call('EXISTS', KEYS[1])
local prev = redis.call('HGET', KEYS[1], 'username')
if prev and prev ~= ARGV[2] then redis.call('DEL', ARGV[6] .. prev) end
redis.call('HSET', KEYS[1], 'username', ARGV[2], 'password_hash', ARGV[3],
  'disabled', ARGV[4], 'attributes', ARGV[5])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('SADD', KEYS[3], ARGV[1])
if existed == 1 then return 'updated' end
return 'created'
`)

// userDeleteScript KEYS[1]=user, KEYS[2]=set de ids; ARGV[1]=id, ARGV[2]=prefijo username.
var userDeleteScript = rdb.NewScript(`
local name = redis.call('HGET', KEYS[1], 'username')
if not name then return 'missing' end
redis.call('DEL', KEYS[1], ARGV[2] .. name)
redis.call('SREM', KEYS[2], ARGV[1])
return 'ok'
`)

// userDisableScript KEYS[1]=user; ARGV[1]=disabled.
var userDisableScript = rdb.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 'missing' end
redis.call('HSET', KEYS[1], 'disabled', ARGV[1])
return 'ok'
`)

func encodeAttrs(attrs map[string]any) (string, error) {
	if len(attrs) == 0 {
		return "", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encode attributes: %w", err)
	}
	return string(b), nil
}

func userFromHash(id string, h map[string]string) (*store.User, error) {
	u := &store.User{
		ID:           id,
		Username:     h["username"],
		PasswordHash: h["password_hash"],
		Disabled:     h["disabled"] == "1",
	}
	if raw := h["attributes"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &u.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes: %w", err)
		}
	}
	return u, nil
}

func (r *UserRepo) List(ctx context.Context) ([]store.User, error) {
	ids, err := r.c.SMembers(ctx, r.k.userIndex()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list users: %w", err)
	}
	pipe := r.c.Pipeline()
	cmds := make([]*rdb.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.k.user(id))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("redis: list users: %w", err)
		}
	}

	out := make([]store.User, 0, len(ids))
	for i, id := range ids {
		h := cmds[i].Val()
		if len(h) == 0 {
			// borrado entre SMEMBERS y HGETALL
			continue
		}
		u, err := userFromHash(id, h)
		if err != nil {
			return nil, fmt.Errorf("redis: list users: %w", err)
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*store.User, error) {
	h, err := r.c.HGetAll(ctx, r.k.user(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get user: %w", err)
	}
	if len(h) == 0 {
		return nil, store.ErrNotFound
	}
	return userFromHash(id, h)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*store.User, error) {
	id, err := r.c.Get(ctx, r.k.username(username)).Result()
	if errors.Is(err, rdb.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get user by username: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) Put(ctx context.Context, u store.User) (bool, error) {
	attrs, err := encodeAttrs(u.Attributes)
	if err != nil {
		return false, err
	}
	status, err := userPutScript.Run(ctx, r.c,
		[]string{r.k.user(u.ID), r.k.username(u.Username), r.k.userIndex()},
		u.ID, u.Username, u.PasswordHash, boolStr(u.Disabled), attrs, r.k.username(""),
	).Text()
	if err != nil {
		return false, fmt.Errorf("redis: put user: %w", err)
	}
	switch status {
	case "created":
		return true, nil
	case "updated":
		return false, nil
	case statusConflict:
		return false, store.ErrConflict
	default:
		return false, fmt.Errorf("redis: unexpected status %q", status)
	}
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	status, err := userDeleteScript.Run(ctx, r.c, []string{r.k.user(id), r.k.userIndex()}, id, r.k.username("")).Text()
	if err != nil {
		return fmt.Errorf("redis: delete user: %w", err)
	}
	if status == statusMissing {
		return store.ErrNotFound
	}
	return nil
}

func (r *UserRepo) SetDisabled(ctx context.Context, id string, disabled bool) error {
	status, err := userDisableScript.Run(ctx, r.c, []string{r.k.user(id)}, boolStr(disabled)).Text()
	if err != nil {
		return fmt.Errorf("redis: set disabled: %w", err)
	}
	if status == statusMissing {
		return store.ErrNotFound
	}
	return nil
}
