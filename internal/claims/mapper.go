// Package claims proyecta atributos de usuario sobre claims de token,
// por cliente y por tipo de token.
package claims

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// TokenType identifica el token destino de un mapeo.
type TokenType string

const (
	Access   TokenType = "access"
	Identity TokenType = "identity"
)

// Mapping: nombre de claim de salida -> nombre de atributo fuente.
type Mapping map[string]string

// ClientMapping agrupa los mapeos de un cliente por tipo de token.
// Access e Identity son independientes.
type ClientMapping struct {
	Access   Mapping
	Identity Mapping
}

func (m ClientMapping) forType(tt TokenType) Mapping {
	if tt == Identity {
		return m.Identity
	}
	return m.Access
}

// ErrReservedClaim se devuelve cuando un mapeo apunta a un claim estándar.
var ErrReservedClaim = errors.New("claims: mapping targets a reserved claim")

// reserved son los claims que el issuer setea siempre; un mapeo nunca los pisa.
var reserved = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "iat": {}, "nbf": {},
	"auth_time": {}, "token_use": {}, "client_id": {}, "scope": {},
	"jti": {}, "nonce": {},
}

// IsReserved reporta si name es un claim estándar.
func IsReserved(name string) bool {
	_, ok := reserved[name]
	return ok
}

// CheckMapping valida un mapeo suelto (usado por config.Validate).
func CheckMapping(m map[string]string) error {
	var bad []string
	for out, src := range m {
		if IsReserved(out) {
			bad = append(bad, out)
			continue
		}
		if strings.TrimSpace(out) == "" || strings.TrimSpace(src) == "" {
			return fmt.Errorf("claims: empty claim or attribute name in mapping (%q -> %q)", out, src)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("%w: %s", ErrReservedClaim, strings.Join(bad, ", "))
	}
	return nil
}

// Mapper resuelve la configuración de un cliente y proyecta atributos.
// Es inmutable después de NewMapper; se usa sin locks.
type Mapper struct {
	defaults  ClientMapping
	perClient map[string]ClientMapping
}

// NewMapper valida todos los mapeos y construye el Mapper.
// Un cliente presente en perClient no hereda nada de defaults.
func NewMapper(defaults ClientMapping, perClient map[string]ClientMapping) (*Mapper, error) {
	if err := checkClient("default", defaults); err != nil {
		return nil, err
	}
	pc := make(map[string]ClientMapping, len(perClient))
	for id, cm := range perClient {
		if err := checkClient(id, cm); err != nil {
			return nil, err
		}
		pc[id] = ClientMapping{Access: clone(cm.Access), Identity: clone(cm.Identity)}
	}
	return &Mapper{
		defaults:  ClientMapping{Access: clone(defaults.Access), Identity: clone(defaults.Identity)},
		perClient: pc,
	}, nil
}

func checkClient(id string, cm ClientMapping) error {
	if err := CheckMapping(cm.Access); err != nil {
		return fmt.Errorf("client %s access: %w", id, err)
	}
	if err := CheckMapping(cm.Identity); err != nil {
		return fmt.Errorf("client %s identity: %w", id, err)
	}
	return nil
}

// Map devuelve los claims mapeados para (tokenType, clientID).
// Un claim sólo aparece si el atributo existe y no está vacío.
// Sin configuración devuelve un mapa vacío (nunca nil).
func (m *Mapper) Map(tt TokenType, clientID string, attrs map[string]any) map[string]any {
	out := map[string]any{}
	if m == nil {
		return out
	}
	cm, ok := m.perClient[clientID]
	if !ok {
		cm = m.defaults
	}
	for claim, attr := range cm.forType(tt) {
		v, ok := attrs[attr]
		if !ok || isEmpty(v) {
			continue
		}
		out[claim] = v
	}
	return out
}

// isEmpty trata como vacío: nil, string en blanco, slices/maps sin elementos.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func clone(m Mapping) Mapping {
	if m == nil {
		return nil
	}
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ClaimNames nombres de todos los claims configurables, ordenados y sin repetir.
func (m *Mapper) ClaimNames() []string {
	if m == nil {
		return nil
	}
	seen := map[string]struct{}{}
	add := func(cm ClientMapping) {
		for claim := range cm.Access {
			seen[claim] = struct{}{}
		}
		for claim := range cm.Identity {
			seen[claim] = struct{}{}
		}
	}
	add(m.defaults)
	for _, cm := range m.perClient {
		add(cm)
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
