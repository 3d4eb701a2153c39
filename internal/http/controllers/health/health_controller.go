// Package health contiene el controller de /healthz.
package health

import (
	"net/http"

	"github.com/dropDatabas3/minijohn/internal/http/helpers"
	svc "github.com/dropDatabas3/minijohn/internal/http/services/health"
)

type Controller struct {
	service svc.Service
}

func NewController(service svc.Service) *Controller {
	return &Controller{service: service}
}

// Healthz maneja GET /healthz: 200 {"status":"OK"} o 503 con los componentes caídos.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	res, ok := c.service.Check(r.Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, status, res)
}
