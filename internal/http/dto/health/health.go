// Package health contiene DTOs del health check.
package health

// HealthResponse es {"status":"OK"} cuando todo responde. Components sólo
// aparece si algún backend falla.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}
