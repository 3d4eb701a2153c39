package helpers

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
)

// ETag débil W/"<b64url(sha256)>".
func ETag(b []byte) string {
	sum := sha256.Sum256(b)
	return `W/"` + base64.RawURLEncoding.EncodeToString(sum[:]) + `"`
}

// NotModified setea ETag y reporta si If-None-Match ya lo contiene.
func NotModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	w.Header().Set("ETag", etag)
	inm := r.Header.Get("If-None-Match")
	if inm == "" {
		return false
	}
	for _, v := range strings.Split(inm, ",") {
		if v = strings.TrimSpace(v); v == etag || v == "*" {
			return true
		}
	}
	return false
}
