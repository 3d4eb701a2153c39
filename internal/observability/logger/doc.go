// Package logger expone un logger zap global con scoping por contexto.
//
// Inicialización (una vez, en cmd/minijohn):
//
//	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, ServiceName: "minijohn"})
//	defer logger.Sync()
//
// En controllers/services:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("LoginService.Init"))
//	log.Info("challenge created", logger.ClientID(clientID))
//
// El middleware WithLogging inyecta un logger con request_id, method y path,
// así que From(ctx) ya trae esos campos dentro de un request.
package logger
