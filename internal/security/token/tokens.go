// Package tokens genera los handles opacos (challenge, code, refresh)
// y la forma hasheada con la que se guardan.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// HandleBytes es la entropía de cada handle: 256 bits.
const HandleBytes = 32

// GenerateOpaqueToken genera un token opaco aleatorio (base64url sin padding).
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewHandle genera un handle de HandleBytes bytes.
func NewHandle() (string, error) { return GenerateOpaqueToken(HandleBytes) }

// SHA256Base64URL devuelve sha256(input) en base64url sin padding.
// Es la clave con la que los stores persisten handles: el valor en claro
// nunca toca Redis ni Postgres.
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Equal compara secretos en tiempo constante.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
