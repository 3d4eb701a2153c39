package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Métricas de dominio (emisión de tokens, consumo de handles). Viven en un paquete
// aparte para que jwt y store no dependan del paquete http.

var (
	TokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "minijohn_tokens_issued_total",
		Help: "Tokens emitidos por tipo (access, identity, refresh)",
	}, []string{"token_type"})

	HandleConsume = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "minijohn_handle_consume_total",
		Help: "Intentos de consumo de handles de un solo uso por tipo y resultado",
	}, []string{"kind", "result"})
)

// Resultados posibles de un consumo.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// RegisterDomain registers the domain metrics on the given registry (or default if nil).
func RegisterDomain(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{TokensIssued, HandleConsume} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveConsume cuenta un intento de consumo según el error devuelto por el store.
func ObserveConsume(kind string, err, invalid error) {
	switch {
	case err == nil:
		HandleConsume.WithLabelValues(kind, ResultOK).Inc()
	case invalid != nil && errors.Is(err, invalid):
		HandleConsume.WithLabelValues(kind, ResultInvalid).Inc()
	default:
		HandleConsume.WithLabelValues(kind, ResultError).Inc()
	}
}
