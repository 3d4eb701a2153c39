package memory

import (
	"context"
	"time"

	"github.com/dropDatabas3/minijohn/internal/store"
)

// ─── Challenges ───

type ChallengeRepo struct{ t *table }

func (r *ChallengeRepo) Create(ctx context.Context, c store.Challenge) error {
	key := store.HandleKey(c.ID)
	c.ID = key
	c.State = store.StatePending
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	return r.t.insert(key, &c, c.ExpiresAt)
}

func (r *ChallengeRepo) Consume(ctx context.Context, id string, now time.Time) (*store.Challenge, error) {
	key := store.HandleKey(id)
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	v, ok := r.t.c.Get(key)
	if !ok {
		return nil, store.ErrHandleInvalid
	}
	c := v.(*store.Challenge)
	if c.State.Effective(c.ExpiresAt, now) != store.StatePending {
		return nil, store.ErrHandleInvalid
	}
	c.State = store.StateConsumed
	out := *c
	out.ID = id
	return &out, nil
}

// ─── Authorization codes ───

type AuthCodeRepo struct{ t *table }

func (r *AuthCodeRepo) Create(ctx context.Context, c store.AuthCode) error {
	key := store.HandleKey(c.Code)
	c.Code = key
	c.State = store.StatePending
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	return r.t.insert(key, &c, c.ExpiresAt)
}

func (r *AuthCodeRepo) Consume(ctx context.Context, code, clientID, redirectURI string, now time.Time) (*store.AuthCode, error) {
	key := store.HandleKey(code)
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	v, ok := r.t.c.Get(key)
	if !ok {
		return nil, store.ErrHandleInvalid
	}
	c := v.(*store.AuthCode)
	if c.State.Effective(c.ExpiresAt, now) != store.StatePending {
		return nil, store.ErrHandleInvalid
	}
	// se quema antes de comparar: un intento con otro client no deja el code usable
	c.State = store.StateConsumed
	if c.ClientID != clientID || c.RedirectURI != redirectURI {
		return nil, store.ErrClientMismatch
	}
	out := *c
	out.Code = code
	return &out, nil
}

// ─── Refresh tokens ───

type RefreshTokenRepo struct{ t *table }

func (r *RefreshTokenRepo) Issue(ctx context.Context, t store.RefreshToken) error {
	key := store.HandleKey(t.Token)
	t.Token = key
	t.State = store.StatePending
	t.ReplacedBy = ""
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	return r.t.insert(key, &t, t.ExpiresAt)
}

func (r *RefreshTokenRepo) Rotate(ctx context.Context, old string, next store.RefreshToken, now time.Time) (*store.RefreshToken, error) {
	key := store.HandleKey(old)
	nextKey := store.HandleKey(next.Token)
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	v, ok := r.t.c.Get(key)
	if !ok {
		return nil, store.ErrHandleInvalid
	}
	cur := v.(*store.RefreshToken)
	switch cur.State.Effective(cur.ExpiresAt, now) {
	case store.StatePending:
	case store.StateConsumed:
		out := *cur
		out.Token = old
		return &out, store.ErrHandleReused
	default:
		return nil, store.ErrHandleInvalid
	}

	next.Token = nextKey
	next.UserID, next.ClientID = cur.UserID, cur.ClientID
	next.Scope, next.AuthTime = cur.Scope, cur.AuthTime
	next.State = store.StatePending
	next.ReplacedBy = ""
	if err := r.t.insert(nextKey, &next, next.ExpiresAt); err != nil {
		return nil, err
	}
	cur.State = store.StateConsumed
	cur.ReplacedBy = nextKey
	out := *cur
	out.Token = old
	return &out, nil
}
