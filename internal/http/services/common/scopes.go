package common

import "strings"

// NormalizeScope colapsa espacios y cae a def si viene vacío.
func NormalizeScope(scope, def string) string {
	if f := strings.Fields(scope); len(f) > 0 {
		return strings.Join(f, " ")
	}
	return strings.Join(strings.Fields(def), " ")
}
