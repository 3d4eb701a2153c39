package oidc

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/minijohn/internal/http/helpers"
	svc "github.com/dropDatabas3/minijohn/internal/http/services/oidc"
)

// DiscoveryController sirve los documentos públicos de /.well-known.
// Ambos son estáticos: se serializan una vez con su ETag.
type DiscoveryController struct {
	jwks     []byte
	jwksETag string
	meta     []byte
	metaETag string
}

func NewDiscoveryController(discovery svc.DiscoveryService, jwks []byte) *DiscoveryController {
	meta, _ := json.Marshal(discovery.Metadata())
	return &DiscoveryController{
		jwks:     jwks,
		jwksETag: helpers.ETag(jwks),
		meta:     meta,
		metaETag: helpers.ETag(meta),
	}
}

// JWKS maneja GET /.well-known/jwks.json
func (c *DiscoveryController) JWKS(w http.ResponseWriter, r *http.Request) {
	serveStatic(w, r, c.jwks, c.jwksETag)
}

// OpenIDConfiguration maneja GET /.well-known/openid-configuration
func (c *DiscoveryController) OpenIDConfiguration(w http.ResponseWriter, r *http.Request) {
	serveStatic(w, r, c.meta, c.metaETag)
}

func serveStatic(w http.ResponseWriter, r *http.Request, body []byte, etag string) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	if helpers.NotModified(w, r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", helpers.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
