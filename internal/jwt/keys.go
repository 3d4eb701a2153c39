package jwt

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/minijohn/internal/util/atomicwrite"
)

// MinRSABits es el tamaño mínimo aceptado para la clave de firma.
const MinRSABits = 2048

var (
	ErrNoKey      = errors.New("jwt: no signing key available")
	ErrWeakKey    = fmt.Errorf("jwt: rsa key shorter than %d bits", MinRSABits)
	ErrUnknownKID = errors.New("jwt: unknown kid")
)

// KeyConfig dice de dónde sale la clave. PEM inline gana sobre path.
type KeyConfig struct {
	PrivateKeyPath    string
	PrivateKeyPEM     string
	KID               string
	GenerateIfMissing bool
	Bits              int
}

// KeyManager mantiene un único par RSA activo. Se construye una vez al arrancar
// y no se muta después, así que las lecturas concurrentes no necesitan lock.
type KeyManager struct {
	priv *rsa.PrivateKey
	kid  string
	jwks []byte
}

// LoadKeyManager carga (o genera) la clave según cfg. Cualquier error acá es fatal
// para el proceso: no hay camino por-request que lo recupere.
func LoadKeyManager(cfg KeyConfig) (*KeyManager, error) {
	var (
		priv *rsa.PrivateKey
		err  error
	)
	switch {
	case strings.TrimSpace(cfg.PrivateKeyPEM) != "":
		priv, err = ParsePrivateKeyPEM([]byte(cfg.PrivateKeyPEM))
		if err != nil {
			return nil, err
		}
	case cfg.PrivateKeyPath != "":
		b, rerr := os.ReadFile(cfg.PrivateKeyPath)
		switch {
		case rerr == nil:
			if priv, err = ParsePrivateKeyPEM(b); err != nil {
				return nil, fmt.Errorf("%s: %w", cfg.PrivateKeyPath, err)
			}
		case errors.Is(rerr, fs.ErrNotExist) && cfg.GenerateIfMissing:
			if priv, err = GenerateRSAKey(cfg.Bits); err != nil {
				return nil, err
			}
			pemBytes, err := EncodePrivateKeyPEM(priv)
			if err != nil {
				return nil, err
			}
			if err := atomicwrite.WriteFile(cfg.PrivateKeyPath, pemBytes, 0o600); err != nil {
				return nil, fmt.Errorf("jwt: persist generated key: %w", err)
			}
		default:
			return nil, fmt.Errorf("jwt: read key %s: %w", cfg.PrivateKeyPath, rerr)
		}
	case cfg.GenerateIfMissing:
		// clave efímera: vive lo que vive el proceso
		if priv, err = GenerateRSAKey(cfg.Bits); err != nil {
			return nil, err
		}
	default:
		return nil, ErrNoKey
	}
	return NewKeyManager(priv, cfg.KID)
}

// NewKeyManager envuelve una clave ya cargada. kid vacío = thumbprint RFC 7638.
func NewKeyManager(priv *rsa.PrivateKey, kid string) (*KeyManager, error) {
	if priv == nil {
		return nil, ErrNoKey
	}
	if priv.N.BitLen() < MinRSABits {
		return nil, ErrWeakKey
	}
	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("jwt: invalid rsa key: %w", err)
	}
	if kid == "" {
		kid = Thumbprint(&priv.PublicKey)
	}
	km := &KeyManager{priv: priv, kid: kid}
	b, err := json.Marshal(km.PublicJWKS())
	if err != nil {
		return nil, err
	}
	km.jwks = b
	return km, nil
}

// GenerateRSAKey genera una clave de bits (mínimo MinRSABits).
func GenerateRSAKey(bits int) (*rsa.PrivateKey, error) {
	if bits == 0 {
		bits = MinRSABits
	}
	if bits < MinRSABits {
		return nil, ErrWeakKey
	}
	return rsa.GenerateKey(rand.Reader, bits)
}

// ParsePrivateKeyPEM acepta "RSA PRIVATE KEY" (PKCS#1) y "PRIVATE KEY" (PKCS#8).
func ParsePrivateKeyPEM(b []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("jwt: no PEM block found")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rk, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("jwt: PKCS#8 key is %T, want RSA", k)
		}
		return rk, nil
	default:
		return nil, fmt.Errorf("jwt: unsupported PEM block %q", block.Type)
	}
}

// EncodePrivateKeyPEM serializa en PKCS#8.
func EncodePrivateKeyPEM(priv *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// Thumbprint calcula el JWK thumbprint SHA-256 (RFC 7638) de la pública.
func Thumbprint(pub *rsa.PublicKey) string {
	// miembros requeridos en orden lexicográfico, sin espacios
	canon := fmt.Sprintf(`{"e":"%s","kty":"RSA","n":"%s"}`, encodeExponent(pub.E), b64(pub.N.Bytes()))
	sum := sha256.Sum256([]byte(canon))
	return b64(sum[:])
}

func (k *KeyManager) KID() string               { return k.kid }
func (k *KeyManager) PublicKey() *rsa.PublicKey { return &k.priv.PublicKey }
func (k *KeyManager) Signer() crypto.Signer     { return k.priv }

// Sign firma claims con RS256 y headers kid/typ.
func (k *KeyManager) Sign(claims jwtv5.MapClaims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tk.Header["kid"] = k.kid
	tk.Header["typ"] = "JWT"
	return tk.SignedString(k.priv)
}

// Keyfunc resuelve la clave pública por kid. Un token sin kid usa la activa.
func (k *KeyManager) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid != "" && kid != k.kid {
			return nil, ErrUnknownKID
		}
		return &k.priv.PublicKey, nil
	}
}

// ----- JWKS (serialización) -----

type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type JWKS struct {
	Keys []JWK `json:"keys"`
}

// PublicJWKS devuelve sólo material público.
func (k *KeyManager) PublicJWKS() JWKS {
	pub := k.priv.PublicKey
	return JWKS{Keys: []JWK{{
		Kid: k.kid,
		Kty: "RSA",
		Alg: "RS256",
		Use: "sig",
		N:   b64(pub.N.Bytes()),
		E:   encodeExponent(pub.E),
	}}}
}

// JWKSJSON devuelve el documento ya serializado (se calcula una vez).
func (k *KeyManager) JWKSJSON() []byte { return k.jwks }

func encodeExponent(e int) string {
	return b64(big.NewInt(int64(e)).Bytes())
}

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }
