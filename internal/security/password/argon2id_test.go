package password

import (
	"fmt"
	"strings"
	"testing"
)

func TestHashVerify_RoundTrip(t *testing.T) {
	t.Parallel()
	h, err := Hash(Fast, "admin123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(h, "$argon2id$v=19$") {
		t.Fatalf("unexpected PHC: %s", h)
	}
	if !Verify("admin123", h) {
		t.Fatal("expected password to verify")
	}
	if Verify("admin124", h) {
		t.Fatal("wrong password verified")
	}
}

func TestHash_SaltsDiffer(t *testing.T) {
	t.Parallel()
	a, _ := Hash(Fast, "same")
	b, _ := Hash(Fast, "same")
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestHash_Empty(t *testing.T) {
	t.Parallel()
	if _, err := Hash(Fast, ""); err != ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()
	for _, phc := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=8192,t=1,p=1$onlysalt",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=0,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$a2V5",
	} {
		if Verify("x", phc) {
			t.Fatalf("malformed PHC %q verified", phc)
		}
	}
}

func TestHashIfPlain(t *testing.T) {
	t.Parallel()
	h, err := HashIfPlain(Fast, "secret")
	if err != nil || !IsHash(h) {
		t.Fatalf("expected hash, got %q (%v)", h, err)
	}
	again, err := HashIfPlain(Fast, h)
	if err != nil || again != h {
		t.Fatal("an existing PHC must be kept as is")
	}
}

func TestVerify_RejectsCostAboveCeiling(t *testing.T) {
	t.Parallel()
	for _, p := range []Params{
		{Memory: MaxMemory + 1, Time: 1, Parallelism: 1, KeyLen: 32},
		{Memory: 8 * 1024, Time: MaxTime + 1, Parallelism: 1, KeyLen: 32},
		{Memory: 8 * 1024, Time: 1, Parallelism: MaxParallelism + 1, KeyLen: 32},
	} {
		// el PHC se arma a mano: derivarlo con esos costos es justo lo que se evita
		phc := fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5", p.Memory, p.Time, p.Parallelism)
		if Verify("x", phc) {
			t.Fatalf("PHC over the ceiling verified: %s", phc)
		}
	}

	// en el techo exacto sigue verificando
	edge := Params{Memory: 8 * 1024, Time: MaxTime, Parallelism: 1, KeyLen: 32}
	h, err := Hash(edge, "ok")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !Verify("ok", h) {
		t.Fatal("PHC at the ceiling must verify")
	}
}
