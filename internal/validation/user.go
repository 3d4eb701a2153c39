package validation

import "regexp"

// Un id de usuario viaja en paths (/users/{id}) y en el claim sub.
var userIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]{0,127}$`)

func ValidUserID(id string) bool {
	return userIDRe.MatchString(id)
}
