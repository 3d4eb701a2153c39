// Package storetest contiene la batería de conformidad que todo adapter de
// store debe pasar. Los tests de cada adapter la invocan con su conexión.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	tokens "github.com/dropDatabas3/minijohn/internal/security/token"
	"github.com/dropDatabas3/minijohn/internal/store"
)

// Concurrency goroutines que compiten por el mismo handle.
const Concurrency = 32

// Run ejecuta todos los casos contra conn.
func Run(t *testing.T, conn store.AdapterConnection) {
	t.Run("users", func(t *testing.T) { testUsers(t, conn.Users()) })
	t.Run("challenge_consume_once", func(t *testing.T) { testChallengeOnce(t, conn.Challenges()) })
	t.Run("challenge_expired", func(t *testing.T) { testChallengeExpired(t, conn.Challenges()) })
	t.Run("challenge_concurrent", func(t *testing.T) { testChallengeConcurrent(t, conn.Challenges()) })
	t.Run("code_consume_once", func(t *testing.T) { testCodeOnce(t, conn.AuthCodes()) })
	t.Run("code_mismatch_burns", func(t *testing.T) { testCodeMismatch(t, conn.AuthCodes()) })
	t.Run("code_concurrent", func(t *testing.T) { testCodeConcurrent(t, conn.AuthCodes()) })
	t.Run("refresh_rotation", func(t *testing.T) { testRefreshRotation(t, conn.RefreshTokens()) })
	t.Run("refresh_expired", func(t *testing.T) { testRefreshExpired(t, conn.RefreshTokens()) })
	t.Run("refresh_concurrent", func(t *testing.T) { testRefreshConcurrent(t, conn.RefreshTokens()) })
}

func handle(t *testing.T) string {
	t.Helper()
	h, err := tokens.NewHandle()
	require.NoError(t, err)
	return h
}

// uid evita choques entre corridas contra backends persistentes.
func uid(t *testing.T, prefix string) string {
	t.Helper()
	return fmt.Sprintf("%s-%s", prefix, handle(t)[:12])
}

func testUsers(t *testing.T, repo store.UserRepository) {
	ctx := context.Background()
	id := uid(t, "u")
	name := uid(t, "name")

	created, err := repo.Put(ctx, store.User{ID: id, Username: name, PasswordHash: "h", Attributes: map[string]any{"email": "a@b.c"}})
	require.NoError(t, err)
	require.True(t, created)

	got, err := repo.GetByUsername(ctx, name)
	require.NoError(t, err)
	require.Equal(t, id, got.ID)
	require.Equal(t, "a@b.c", got.Attributes["email"])

	created, err = repo.Put(ctx, store.User{ID: id, Username: name, PasswordHash: "h2"})
	require.NoError(t, err)
	require.False(t, created)

	_, err = repo.Put(ctx, store.User{ID: uid(t, "other"), Username: name})
	require.ErrorIs(t, err, store.ErrConflict)

	require.NoError(t, repo.SetDisabled(ctx, id, true))
	got, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, got.Disabled)
	require.Equal(t, "h2", got.PasswordHash)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	found := false
	for _, u := range all {
		found = found || u.ID == id
	}
	require.True(t, found)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.GetByID(ctx, id)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, id), store.ErrNotFound)
	require.ErrorIs(t, repo.SetDisabled(ctx, id, false), store.ErrNotFound)
}

func newChallenge(t *testing.T, now time.Time, ttl time.Duration) store.Challenge {
	return store.Challenge{
		ID:        handle(t),
		UserID:    "1",
		ClientID:  "client1",
		Scope:     "openid profile",
		AuthTime:  now,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func testChallengeOnce(t *testing.T, repo store.ChallengeRepository) {
	ctx := context.Background()
	now := time.Now()
	c := newChallenge(t, now, 5*time.Minute)
	c.IssueRefreshToken = true
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.Consume(ctx, c.ID, now)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)
	require.Equal(t, "1", got.UserID)
	require.Equal(t, "client1", got.ClientID)
	require.Equal(t, "openid profile", got.Scope)
	require.True(t, got.IssueRefreshToken)
	require.Equal(t, store.StateConsumed, got.State)

	_, err = repo.Consume(ctx, c.ID, now)
	require.ErrorIs(t, err, store.ErrHandleInvalid)

	_, err = repo.Consume(ctx, handle(t), now)
	require.ErrorIs(t, err, store.ErrHandleInvalid)
}

func testChallengeExpired(t *testing.T, repo store.ChallengeRepository) {
	ctx := context.Background()
	now := time.Now()
	c := newChallenge(t, now, time.Minute)
	require.NoError(t, repo.Create(ctx, c))

	// exactamente en expires_at ya está vencido
	_, err := repo.Consume(ctx, c.ID, c.ExpiresAt)
	require.ErrorIs(t, err, store.ErrHandleInvalid)
}

// race lanza Concurrency goroutines sobre fn y devuelve cuántas tuvieron éxito.
func race(fn func() error) (ok int64, other []error) {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		start = make(chan struct{})
		n     atomic.Int64
	)
	for i := 0; i < Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := fn()
			switch {
			case err == nil:
				n.Add(1)
			case errors.Is(err, store.ErrHandleInvalid):
			default:
				mu.Lock()
				other = append(other, err)
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()
	return n.Load(), other
}

func testChallengeConcurrent(t *testing.T, repo store.ChallengeRepository) {
	ctx := context.Background()
	now := time.Now()
	c := newChallenge(t, now, 5*time.Minute)
	require.NoError(t, repo.Create(ctx, c))

	ok, other := race(func() error {
		_, err := repo.Consume(ctx, c.ID, now)
		return err
	})
	require.Empty(t, other)
	require.EqualValues(t, 1, ok)
}

func newCode(t *testing.T, now time.Time) store.AuthCode {
	return store.AuthCode{
		Code:        handle(t),
		UserID:      "1",
		ClientID:    "client1",
		RedirectURI: "http://localhost:3000/callback",
		Scope:       "openid",
		Nonce:       "n-0S6",
		AuthTime:    now,
		CreatedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}
}

func testCodeOnce(t *testing.T, repo store.AuthCodeRepository) {
	ctx := context.Background()
	now := time.Now()
	c := newCode(t, now)
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.Consume(ctx, c.Code, c.ClientID, c.RedirectURI, now)
	require.NoError(t, err)
	require.Equal(t, "n-0S6", got.Nonce)
	require.Equal(t, "1", got.UserID)

	_, err = repo.Consume(ctx, c.Code, c.ClientID, c.RedirectURI, now)
	require.ErrorIs(t, err, store.ErrHandleInvalid)

	expired := newCode(t, now)
	require.NoError(t, repo.Create(ctx, expired))
	_, err = repo.Consume(ctx, expired.Code, expired.ClientID, expired.RedirectURI, expired.ExpiresAt.Add(time.Second))
	require.ErrorIs(t, err, store.ErrHandleInvalid)
}

func testCodeMismatch(t *testing.T, repo store.AuthCodeRepository) {
	ctx := context.Background()
	now := time.Now()
	c := newCode(t, now)
	require.NoError(t, repo.Create(ctx, c))

	_, err := repo.Consume(ctx, c.Code, "client2", c.RedirectURI, now)
	require.ErrorIs(t, err, store.ErrClientMismatch)
	require.ErrorIs(t, err, store.ErrHandleInvalid)

	// el intento fallido lo quemó
	_, err = repo.Consume(ctx, c.Code, c.ClientID, c.RedirectURI, now)
	require.ErrorIs(t, err, store.ErrHandleInvalid)

	c2 := newCode(t, now)
	require.NoError(t, repo.Create(ctx, c2))
	_, err = repo.Consume(ctx, c2.Code, c2.ClientID, "http://evil/callback", now)
	require.ErrorIs(t, err, store.ErrClientMismatch)
}

func testCodeConcurrent(t *testing.T, repo store.AuthCodeRepository) {
	ctx := context.Background()
	now := time.Now()
	c := newCode(t, now)
	require.NoError(t, repo.Create(ctx, c))

	ok, other := race(func() error {
		_, err := repo.Consume(ctx, c.Code, c.ClientID, c.RedirectURI, now)
		return err
	})
	require.Empty(t, other)
	require.EqualValues(t, 1, ok)
}

func newRefresh(t *testing.T, now time.Time, ttl time.Duration) store.RefreshToken {
	return store.RefreshToken{
		Token:     handle(t),
		UserID:    "1",
		ClientID:  "client1",
		Scope:     "openid profile",
		AuthTime:  now,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func testRefreshRotation(t *testing.T, repo store.RefreshTokenRepository) {
	ctx := context.Background()
	now := time.Now()
	first := newRefresh(t, now, time.Hour)
	require.NoError(t, repo.Issue(ctx, first))

	// el sucesor sólo trae token y tiempos: el resto se hereda
	second := store.RefreshToken{Token: handle(t), IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	old, err := repo.Rotate(ctx, first.Token, second, now)
	require.NoError(t, err)
	require.Equal(t, "client1", old.ClientID)
	require.Equal(t, "openid profile", old.Scope)
	require.Equal(t, store.HandleKey(second.Token), old.ReplacedBy)

	// reuso del viejo: inválido, con rastro del sucesor
	third := newRefresh(t, now, time.Hour)
	reused, err := repo.Rotate(ctx, first.Token, third, now)
	require.ErrorIs(t, err, store.ErrHandleReused)
	require.ErrorIs(t, err, store.ErrHandleInvalid)
	require.NotNil(t, reused)
	require.Equal(t, store.HandleKey(second.Token), reused.ReplacedBy)

	// el sucesor sigue vivo y rota normalmente
	prev, err := repo.Rotate(ctx, second.Token, third, now)
	require.NoError(t, err)
	require.Equal(t, "1", prev.UserID)
	require.Equal(t, "client1", prev.ClientID)
	require.Equal(t, "openid profile", prev.Scope)

	_, err = repo.Rotate(ctx, handle(t), newRefresh(t, now, time.Hour), now)
	require.ErrorIs(t, err, store.ErrHandleInvalid)
}

func testRefreshExpired(t *testing.T, repo store.RefreshTokenRepository) {
	ctx := context.Background()
	now := time.Now()
	rt := newRefresh(t, now, 2*time.Second)
	require.NoError(t, repo.Issue(ctx, rt))

	next := newRefresh(t, now, time.Hour)
	_, err := repo.Rotate(ctx, rt.Token, next, now.Add(3*time.Second))
	require.ErrorIs(t, err, store.ErrHandleInvalid)
	require.NotErrorIs(t, err, store.ErrHandleReused)

	// el sucesor no quedó insertado
	_, err = repo.Rotate(ctx, next.Token, newRefresh(t, now, time.Hour), now)
	require.ErrorIs(t, err, store.ErrHandleInvalid)
}

func testRefreshConcurrent(t *testing.T, repo store.RefreshTokenRepository) {
	ctx := context.Background()
	now := time.Now()
	rt := newRefresh(t, now, time.Hour)
	require.NoError(t, repo.Issue(ctx, rt))

	ok, other := race(func() error {
		next := store.RefreshToken{
			Token: mustHandle(), UserID: "1", ClientID: "client1",
			IssuedAt: now, ExpiresAt: now.Add(time.Hour),
		}
		_, err := repo.Rotate(ctx, rt.Token, next, now)
		return err
	})
	require.Empty(t, other)
	require.EqualValues(t, 1, ok)
}

func mustHandle() string {
	h, err := tokens.NewHandle()
	if err != nil {
		panic(err)
	}
	return h
}
