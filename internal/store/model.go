package store

import (
	"context"
	"time"

	tokens "github.com/dropDatabas3/minijohn/internal/security/token"
)

// User representa un usuario. PasswordHash es un PHC argon2id, nunca texto plano.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Disabled     bool
	Attributes   map[string]any
}

// Clone devuelve una copia que no comparte el mapa de atributos.
func (u User) Clone() User {
	if u.Attributes != nil {
		attrs := make(map[string]any, len(u.Attributes))
		for k, v := range u.Attributes {
			attrs[k] = v
		}
		u.Attributes = attrs
	}
	return u
}

// HandleState estado de un handle de un solo uso.
type HandleState string

const (
	StatePending  HandleState = "pending"
	StateConsumed HandleState = "consumed"
	StateExpired  HandleState = "expired"
)

// Effective resuelve Expired a partir de expiresAt: un pending vencido es Expired.
func (s HandleState) Effective(expiresAt, now time.Time) HandleState {
	if s == StatePending && !now.Before(expiresAt) {
		return StateExpired
	}
	return s
}

// Challenge login/init pendiente de login/complete.
type Challenge struct {
	ID                string
	UserID            string
	ClientID          string
	Scope             string
	IssueRefreshToken bool
	AuthTime          time.Time
	State             HandleState
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

// AuthCode authorization code emitido por /oauth2/authorize/submit.
// Nonce vacío = ausente.
type AuthCode struct {
	Code        string
	UserID      string
	ClientID    string
	RedirectURI string
	Scope       string
	Nonce       string
	AuthTime    time.Time
	State       HandleState
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// RefreshToken opaco con rotación. ReplacedBy guarda el hash del sucesor
// (nunca el valor en claro) para diagnóstico de reuso.
type RefreshToken struct {
	Token      string
	UserID     string
	ClientID   string
	Scope      string
	AuthTime   time.Time
	State      HandleState
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ReplacedBy string
}

// HandleKey es la clave de almacenamiento de un handle: nunca se persiste en claro.
func HandleKey(handle string) string { return tokens.SHA256Base64URL(handle) }

// ─── Repositorios ───

// UserRepository CRUD de usuarios.
type UserRepository interface {
	List(ctx context.Context) ([]User, error)
	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByUsername retorna ErrNotFound si no existe.
	GetByUsername(ctx context.Context, username string) (*User, error)
	// Put crea o reemplaza. created=true si no existía.
	// ErrConflict si el username pertenece a otro id.
	Put(ctx context.Context, u User) (created bool, err error)
	Delete(ctx context.Context, id string) error
	SetDisabled(ctx context.Context, id string, disabled bool) error
}

// ChallengeRepository guarda challenges de login.
type ChallengeRepository interface {
	Create(ctx context.Context, c Challenge) error
	// Consume pasa pending→consumed una sola vez. Desconocido, consumido o
	// vencido: ErrHandleInvalid.
	Consume(ctx context.Context, id string, now time.Time) (*Challenge, error)
}

// AuthCodeRepository guarda authorization codes.
type AuthCodeRepository interface {
	Create(ctx context.Context, c AuthCode) error
	// Consume quema el code y compara client/redirect en la misma transición.
	// Mismatch: ErrClientMismatch (el code no vuelve a servir).
	Consume(ctx context.Context, code, clientID, redirectURI string, now time.Time) (*AuthCode, error)
}

// RefreshTokenRepository guarda refresh tokens con rotación.
type RefreshTokenRepository interface {
	Issue(ctx context.Context, t RefreshToken) error
	// Rotate consume old, lo enlaza a next e inserta next, todo atómico.
	// next hereda UserID, ClientID, Scope y AuthTime de old: el llamador sólo
	// aporta Token, IssuedAt y ExpiresAt.
	// Un token ya rotado devuelve ErrHandleReused junto con el registro viejo
	// (ReplacedBy poblado) para poder loguearlo.
	Rotate(ctx context.Context, old string, next RefreshToken, now time.Time) (*RefreshToken, error)
}
