package logger

import "go.uber.org/zap"

// ─── HTTP ───

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// ─── Dominio ───

// UserID identifica al usuario autenticado o afectado.
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// ClientID identifica la aplicación cliente (OAuth client_id).
func ClientID(v string) zap.Field { return zap.String("client_id", v) }

// TokenUse distingue access / id en los logs de emisión.
func TokenUse(v string) zap.Field { return zap.String("token_use", v) }

// HandleKind es el tipo de handle consumible: challenge, code, refresh.
func HandleKind(v string) zap.Field { return zap.String("handle_kind", v) }

// KID del par de claves de firma.
func KID(v string) zap.Field { return zap.String("kid", v) }

func Scope(v string) zap.Field  { return zap.String("scope", v) }
func Driver(v string) zap.Field { return zap.String("driver", v) }

// ─── Sistema ───

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }

// ─── Genéricos ───

func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }
