package claims

import (
	"errors"
	"testing"
)

func adminAttrs() map[string]any {
	return map[string]any{
		"role_name":  "administrator",
		"email":      "admin@example.com",
		"full_name":  "Admin User",
		"department": "IT",
		"level":      "high",
	}
}

func TestMap_RenamesAndFilters(t *testing.T) {
	t.Parallel()
	m, err := NewMapper(ClientMapping{
		Access: Mapping{"roles": "role_name", "dept": "department", "level": "level"},
	}, nil)
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}

	got := m.Map(Access, "client1", adminAttrs())
	want := map[string]any{"roles": "administrator", "dept": "IT", "level": "high"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("claim %q = %v, want %v", k, got[k], v)
		}
	}
	for _, raw := range []string{"department", "role_name", "full_name"} {
		if _, ok := got[raw]; ok {
			t.Fatalf("raw attribute %q leaked into claims", raw)
		}
	}
}

func TestMap_MissingOrEmptyAttributeOmitted(t *testing.T) {
	t.Parallel()
	m, err := NewMapper(ClientMapping{
		Access: Mapping{"dept": "department", "tags": "tags", "nick": "nickname", "roles": "role_name"},
	}, nil)
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}

	got := m.Map(Access, "c", map[string]any{
		"role_name": "guest",
		"nickname":  "   ",
		"tags":      []any{},
	})
	if len(got) != 1 || got["roles"] != "guest" {
		t.Fatalf("unexpected claims: %v", got)
	}
}

func TestMap_AccessAndIdentityIndependent(t *testing.T) {
	t.Parallel()
	m, err := NewMapper(ClientMapping{
		Access:   Mapping{"roles": "role_name"},
		Identity: Mapping{"role_name": "role_name", "email": "email"},
	}, nil)
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}

	acc := m.Map(Access, "c", adminAttrs())
	id := m.Map(Identity, "c", adminAttrs())
	if _, ok := acc["role_name"]; ok {
		t.Fatalf("access token must not carry identity mapping: %v", acc)
	}
	if id["role_name"] != "administrator" || id["email"] != "admin@example.com" {
		t.Fatalf("identity claims wrong: %v", id)
	}
	if _, ok := id["roles"]; ok {
		t.Fatalf("identity token must not carry access mapping: %v", id)
	}
}

func TestMap_PerClientOverridesDefaults(t *testing.T) {
	t.Parallel()
	m, err := NewMapper(
		ClientMapping{Access: Mapping{"roles": "role_name"}},
		map[string]ClientMapping{"spa": {Access: Mapping{"dept": "department"}}},
	)
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}

	spa := m.Map(Access, "spa", adminAttrs())
	if len(spa) != 1 || spa["dept"] != "IT" {
		t.Fatalf("spa claims: %v", spa)
	}
	other := m.Map(Access, "other", adminAttrs())
	if len(other) != 1 || other["roles"] != "administrator" {
		t.Fatalf("default claims: %v", other)
	}
}

func TestMap_NoConfigurationYieldsEmpty(t *testing.T) {
	t.Parallel()
	m, err := NewMapper(ClientMapping{}, nil)
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	if got := m.Map(Identity, "c", adminAttrs()); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil map, got %#v", got)
	}
}

func TestNewMapper_RejectsReservedClaims(t *testing.T) {
	t.Parallel()
	cases := []ClientMapping{
		{Access: Mapping{"sub": "username"}},
		{Identity: Mapping{"nonce": "x"}},
		{Access: Mapping{"token_use": "x", "ok": "y"}},
	}
	for _, cm := range cases {
		if _, err := NewMapper(cm, nil); !errors.Is(err, ErrReservedClaim) {
			t.Fatalf("mapping %+v: expected ErrReservedClaim, got %v", cm, err)
		}
		if _, err := NewMapper(ClientMapping{}, map[string]ClientMapping{"c": cm}); !errors.Is(err, ErrReservedClaim) {
			t.Fatalf("client mapping %+v: expected ErrReservedClaim, got %v", cm, err)
		}
	}
}

func TestCheckMapping_EmptyNames(t *testing.T) {
	t.Parallel()
	if err := CheckMapping(map[string]string{"roles": ""}); err == nil {
		t.Fatal("expected error for empty attribute name")
	}
	if err := CheckMapping(nil); err != nil {
		t.Fatalf("nil mapping should be valid: %v", err)
	}
}

func TestClaimNames_UnionSorted(t *testing.T) {
	t.Parallel()
	m, err := NewMapper(
		ClientMapping{Access: Mapping{"roles": "roles"}, Identity: Mapping{"email": "email"}},
		map[string]ClientMapping{"c": {Access: Mapping{"email": "mail", "grp": "groups"}}},
	)
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	got := m.ClaimNames()
	want := []string{"email", "grp", "roles"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
