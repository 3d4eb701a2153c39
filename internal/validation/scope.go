// Package validation reúne reglas de formato para identificadores que
// llegan desde config o desde la API.
package validation

import (
	"regexp"
	"strings"
)

// Reglas de nombre de scope:
// - sólo minúsculas, empieza y termina en [a-z0-9]
// - en el medio se admite [a-z0-9:_.-]
// - 1..64 caracteres, sin espacios ni ';'
//
// Válidos: openid, profile:read, a_b-c.d:scope2
// Inválidos: ;hack, BAD, "bad space", :leader, trailer:, ""
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

func ValidScopeName(name string) bool {
	return scopeNameRe.MatchString(name)
}

// InvalidScopes devuelve los nombres inválidos de una lista separada por espacios.
func InvalidScopes(scope string) []string {
	var bad []string
	for _, s := range strings.Fields(scope) {
		if !ValidScopeName(s) {
			bad = append(bad, s)
		}
	}
	return bad
}
