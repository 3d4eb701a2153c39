package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/minijohn/internal/store"
	"github.com/dropDatabas3/minijohn/internal/store/adapters/memory"
)

// ─── helpers ───

func ms(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

func fromMS(s string) time.Time {
	n, _ := strconv.ParseInt(s, 10, 64)
	return time.UnixMilli(n)
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// evictAt el hash se conserva Retention después de vencer (diagnóstico de reuso).
func evictAt(expiresAt time.Time) string { return ms(expiresAt.Add(memory.Retention)) }

// reply separa el status del hash devuelto por los scripts.
func reply(v any, err error) (string, map[string]string, error) {
	if err != nil {
		return "", nil, err
	}
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return "", nil, fmt.Errorf("redis: unexpected script reply %T", v)
	}
	status, _ := arr[0].(string)
	h := make(map[string]string, len(arr)/2)
	for i := 1; i+1 < len(arr); i += 2 {
		k, _ := arr[i].(string)
		val, _ := arr[i+1].(string)
		h[k] = val
	}
	return status, h, nil
}

func create(ctx context.Context, c *rdb.Client, key string, expiresAt time.Time, fields ...string) error {
	args := make([]any, 0, len(fields)+1)
	args = append(args, evictAt(expiresAt))
	for _, f := range fields {
		args = append(args, f)
	}
	status, _, err := reply(createScript.Run(ctx, c, []string{key}, args...).Result())
	if err != nil {
		return fmt.Errorf("redis: create handle: %w", err)
	}
	if status == statusConflict {
		return store.ErrConflict
	}
	return nil
}

// consumeStatus traduce el status de consumeScript a los errores del store.
func consumeStatus(status string) error {
	switch status {
	case statusOK:
		return nil
	case statusMismatch:
		return store.ErrClientMismatch
	case statusMissing, statusConsumed, statusExpired:
		return store.ErrHandleInvalid
	default:
		return fmt.Errorf("redis: unexpected status %q", status)
	}
}

// ─── Challenges ───

type ChallengeRepo struct {
	c *rdb.Client
	k keys
}

func (r *ChallengeRepo) Create(ctx context.Context, ch store.Challenge) error {
	return create(ctx, r.c, r.k.challenge(ch.ID), ch.ExpiresAt,
		"user_id", ch.UserID,
		"client_id", ch.ClientID,
		"scope", ch.Scope,
		"issue_refresh", boolStr(ch.IssueRefreshToken),
		"auth_time", ms(ch.AuthTime),
		"state", string(store.StatePending),
		"created_at", ms(ch.CreatedAt),
		"expires_at", ms(ch.ExpiresAt),
	)
}

func (r *ChallengeRepo) Consume(ctx context.Context, id string, now time.Time) (*store.Challenge, error) {
	status, h, err := reply(consumeScript.Run(ctx, r.c, []string{r.k.challenge(id)}, ms(now), "", "").Result())
	if err != nil {
		return nil, fmt.Errorf("redis: consume challenge: %w", err)
	}
	if err := consumeStatus(status); err != nil {
		return nil, err
	}
	return &store.Challenge{
		ID:                id,
		UserID:            h["user_id"],
		ClientID:          h["client_id"],
		Scope:             h["scope"],
		IssueRefreshToken: h["issue_refresh"] == "1",
		AuthTime:          fromMS(h["auth_time"]),
		State:             store.StateConsumed,
		CreatedAt:         fromMS(h["created_at"]),
		ExpiresAt:         fromMS(h["expires_at"]),
	}, nil
}

// ─── Authorization codes ───

type AuthCodeRepo struct {
	c *rdb.Client
	k keys
}

func (r *AuthCodeRepo) Create(ctx context.Context, ac store.AuthCode) error {
	return create(ctx, r.c, r.k.code(ac.Code), ac.ExpiresAt,
		"user_id", ac.UserID,
		"client_id", ac.ClientID,
		"redirect_uri", ac.RedirectURI,
		"scope", ac.Scope,
		"nonce", ac.Nonce,
		"auth_time", ms(ac.AuthTime),
		"state", string(store.StatePending),
		"created_at", ms(ac.CreatedAt),
		"expires_at", ms(ac.ExpiresAt),
	)
}

func (r *AuthCodeRepo) Consume(ctx context.Context, code, clientID, redirectURI string, now time.Time) (*store.AuthCode, error) {
	if clientID == "" {
		// el script usa "" como "no comparar"
		return nil, store.ErrClientMismatch
	}
	status, h, err := reply(consumeScript.Run(ctx, r.c, []string{r.k.code(code)}, ms(now), clientID, redirectURI).Result())
	if err != nil {
		return nil, fmt.Errorf("redis: consume code: %w", err)
	}
	if err := consumeStatus(status); err != nil {
		return nil, err
	}
	return &store.AuthCode{
		Code:        code,
		UserID:      h["user_id"],
		ClientID:    h["client_id"],
		RedirectURI: h["redirect_uri"],
		Scope:       h["scope"],
		Nonce:       h["nonce"],
		AuthTime:    fromMS(h["auth_time"]),
		State:       store.StateConsumed,
		CreatedAt:   fromMS(h["created_at"]),
		ExpiresAt:   fromMS(h["expires_at"]),
	}, nil
}

// ─── Refresh tokens ───

type RefreshTokenRepo struct {
	c *rdb.Client
	k keys
}

func refreshFields(t store.RefreshToken) []string {
	return []string{
		"user_id", t.UserID,
		"client_id", t.ClientID,
		"scope", t.Scope,
		"auth_time", ms(t.AuthTime),
		"state", string(store.StatePending),
		"issued_at", ms(t.IssuedAt),
		"expires_at", ms(t.ExpiresAt),
		"replaced_by", "",
	}
}

func (r *RefreshTokenRepo) Issue(ctx context.Context, t store.RefreshToken) error {
	return create(ctx, r.c, r.k.refresh(t.Token), t.ExpiresAt, refreshFields(t)...)
}

func (r *RefreshTokenRepo) Rotate(ctx context.Context, old string, next store.RefreshToken, now time.Time) (*store.RefreshToken, error) {
	fields := refreshFields(next)
	args := make([]any, 0, len(fields)+3)
	args = append(args, ms(now), store.HandleKey(next.Token), evictAt(next.ExpiresAt))
	for _, f := range fields {
		args = append(args, f)
	}

	status, h, err := reply(rotateScript.Run(ctx, r.c, []string{r.k.refresh(old), r.k.refresh(next.Token)}, args...).Result())
	if err != nil {
		return nil, fmt.Errorf("redis: rotate refresh token: %w", err)
	}
	switch status {
	case statusOK:
		rt := refreshFromHash(old, h)
		rt.State = store.StateConsumed
		rt.ReplacedBy = store.HandleKey(next.Token)
		return rt, nil
	case statusConsumed:
		return refreshFromHash(old, h), store.ErrHandleReused
	case statusMissing, statusExpired:
		return nil, store.ErrHandleInvalid
	case statusConflict:
		return nil, store.ErrConflict
	default:
		return nil, fmt.Errorf("redis: unexpected status %q", status)
	}
}

func refreshFromHash(token string, h map[string]string) *store.RefreshToken {
	return &store.RefreshToken{
		Token:      token,
		UserID:     h["user_id"],
		ClientID:   h["client_id"],
		Scope:      h["scope"],
		AuthTime:   fromMS(h["auth_time"]),
		State:      store.HandleState(h["state"]),
		IssuedAt:   fromMS(h["issued_at"]),
		ExpiresAt:  fromMS(h["expires_at"]),
		ReplacedBy: h["replaced_by"],
	}
}
