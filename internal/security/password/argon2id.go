// Package password hashea y verifica contraseñas con argon2id (formato PHC).
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

// Default sigue los parámetros recomendados para login interactivo.
var Default = Params{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32}

// Fast es para tests y seeds grandes; no usar en prod.
var Fast = Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

const prefix = "$argon2id$"

var ErrEmpty = errors.New("password: empty password")

// Techos de costo que Verify acepta. Un PHC por encima se rechaza sin derivar.
var (
	MaxMemory      = 4 * Default.Memory
	MaxTime        = 4 * Default.Time
	MaxParallelism = 4 * Default.Parallelism
	MaxKeyLen      = uint32(64)
)

// Hash devuelve $argon2id$v=19$m=...,t=...,p=...$<salt>$<key>.
func Hash(p Params, plain string) (string, error) {
	if plain == "" {
		return "", ErrEmpty
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	dk := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		prefix, argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(dk),
	), nil
}

// IsHash reporta si s ya es un PHC argon2id (para no re-hashear en el seed).
func IsHash(s string) bool { return strings.HasPrefix(s, prefix) }

// HashIfPlain hashea s salvo que ya sea un PHC argon2id. Solo para el seed
// desde config; lo que llega por HTTP siempre pasa por Hash.
func HashIfPlain(p Params, s string) (string, error) {
	if IsHash(s) {
		return s, nil
	}
	return Hash(p, s)
}

// Verify compara en tiempo constante. Cualquier PHC malformado es false.
func Verify(plain, phc string) bool {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}
	var v int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &v); err != nil || v != argon2.Version {
		return false
	}
	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil || t == 0 || p == 0 {
		return false
	}
	if m > MaxMemory || t > MaxTime || p > MaxParallelism {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 || uint32(len(want)) > MaxKeyLen {
		return false
	}
	got := argon2.IDKey([]byte(plain), salt, t, m, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
