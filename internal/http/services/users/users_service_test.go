package users

import (
	"context"
	"errors"
	"testing"

	dto "github.com/dropDatabas3/minijohn/internal/http/dto/users"
	"github.com/dropDatabas3/minijohn/internal/http/services/common"
	"github.com/dropDatabas3/minijohn/internal/security/password"
	"github.com/dropDatabas3/minijohn/internal/store/adapters/memory"
)

func newService() (Service, *memory.UserRepo) {
	repo := memory.NewUserRepo()
	return NewService(Deps{Users: repo, Hash: password.Fast}), repo
}

func TestPut_CreateThenPartialUpdate(t *testing.T) {
	t.Parallel()
	s, repo := newService()
	ctx := context.Background()

	u, created, err := s.Put(ctx, "7", dto.PutUserRequest{Username: "neo", Password: "red-pill", Attributes: map[string]any{"team": "zion"}})
	if err != nil || !created {
		t.Fatalf("create: created=%v err=%v", created, err)
	}
	if u.Username != "neo" || u.Attributes["team"] != "zion" {
		t.Fatalf("user = %+v", u)
	}
	stored, _ := repo.GetByID(ctx, "7")
	if stored.PasswordHash == "red-pill" || !password.Verify("red-pill", stored.PasswordHash) {
		t.Fatalf("password not hashed: %q", stored.PasswordHash)
	}

	yes := true
	u, created, err = s.Put(ctx, "7", dto.PutUserRequest{Disabled: &yes})
	if err != nil || created {
		t.Fatalf("update: created=%v err=%v", created, err)
	}
	if u.Username != "neo" || !u.Disabled || u.Attributes["team"] != "zion" {
		t.Fatalf("update lost fields: %+v", u)
	}
	stored, _ = repo.GetByID(ctx, "7")
	if !password.Verify("red-pill", stored.PasswordHash) {
		t.Fatalf("empty password on update must keep the old hash")
	}
}

func TestPut_PHCLookingPasswordIsHashed(t *testing.T) {
	t.Parallel()
	s, repo := newService()
	ctx := context.Background()
	for _, pw := range []string{"$argon2id$x", "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$a2V5"} {
		if _, _, err := s.Put(ctx, "a", dto.PutUserRequest{Username: "a", Password: pw}); err != nil {
			t.Fatalf("put %q: %v", pw, err)
		}
		stored, _ := repo.GetByID(ctx, "a")
		if stored.PasswordHash == pw {
			t.Fatalf("password %q stored verbatim", pw)
		}
		if !password.Verify(pw, stored.PasswordHash) {
			t.Fatalf("password %q does not verify after PUT", pw)
		}
	}
}

func TestPut_Errors(t *testing.T) {
	t.Parallel()
	s, _ := newService()
	ctx := context.Background()
	if _, _, err := s.Put(ctx, "1", dto.PutUserRequest{Username: "alice", Password: "x"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		name string
		id   string
		in   dto.PutUserRequest
		want error
	}{
		{"missing password on create", "2", dto.PutUserRequest{Username: "bob"}, common.ErrMissingFields},
		{"missing username on create", "2", dto.PutUserRequest{Password: "x"}, common.ErrMissingFields},
		{"blank id", "  ", dto.PutUserRequest{Username: "bob", Password: "x"}, common.ErrMissingFields},
		{"bad id", "has space", dto.PutUserRequest{Username: "bob", Password: "x"}, ErrInvalidUserID},
		{"username taken", "2", dto.PutUserRequest{Username: "alice", Password: "x"}, ErrUsernameTaken},
	}
	for _, tc := range cases {
		if _, _, err := s.Put(ctx, tc.id, tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestDeleteAndDisable_NotFound(t *testing.T) {
	t.Parallel()
	s, _ := newService()
	ctx := context.Background()
	if err := s.Delete(ctx, "nope"); !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("delete: %v", err)
	}
	if err := s.SetDisabled(ctx, "nope", true); !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("disable: %v", err)
	}
	if _, err := s.Get(ctx, "nope"); !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("get: %v", err)
	}
}

func TestList_NeverNilAttributes(t *testing.T) {
	t.Parallel()
	s, _ := newService()
	ctx := context.Background()
	if _, _, err := s.Put(ctx, "1", dto.PutUserRequest{Username: "a", Password: "x"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	list, err := s.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v err=%v", list, err)
	}
	if list[0].Attributes == nil {
		t.Fatalf("attributes must serialize as {}")
	}
}
