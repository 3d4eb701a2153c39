package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/minijohn/internal/claims"
	"github.com/dropDatabas3/minijohn/internal/validation"
)

// DefaultPath es donde se busca el archivo si no hay flag ni CONFIG_PATH.
const DefaultPath = "/config.yaml"

type Config struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
	Issuer  string `yaml:"issuer"`

	// Expiraciones en segundos. identity_token_expiration_seconds cae al valor
	// de access si no se define.
	AccessTokenExpirationSeconds   int `yaml:"access_token_expiration_seconds"`
	IdentityTokenExpirationSeconds int `yaml:"identity_token_expiration_seconds"`
	RefreshTokenExpirationSeconds  int `yaml:"refresh_token_expiration_seconds"`

	// CSV de orígenes o "*".
	AllowedOrigins string `yaml:"allowed_origins"`

	Users   []User   `yaml:"users"`
	Clients []Client `yaml:"clients"`

	// Mapeos globales; un cliente con claim_mappings propios los reemplaza.
	MapAccessTokenClaims   map[string]string `yaml:"map_access_token_claims"`
	MapIdentityTokenClaims map[string]string `yaml:"map_identity_token_claims"`

	OAuth2   OAuth2   `yaml:"oauth2"`
	LoginAPI LoginAPI `yaml:"login_api"`

	Keys    Keys    `yaml:"keys"`
	Storage Storage `yaml:"storage"`
	Rate    Rate    `yaml:"rate"`
	Log     Log     `yaml:"log"`
	Metrics Metrics `yaml:"metrics"`
}

type User struct {
	ID         string         `yaml:"id"`
	Username   string         `yaml:"username"`
	Password   string         `yaml:"password"`
	Disabled   bool           `yaml:"disabled"`
	Attributes map[string]any `yaml:"attributes"`
}

type Client struct {
	ID           string   `yaml:"id"`
	Secret       string   `yaml:"secret"`
	RedirectURI  string   `yaml:"redirect_uri"`
	RedirectURIs []string `yaml:"redirect_uris"`
	Audience     string   `yaml:"audience"`

	ClaimMappings *ClaimMappings `yaml:"claim_mappings"`
}

type ClaimMappings struct {
	Access   map[string]string `yaml:"access"`
	Identity map[string]string `yaml:"identity"`
}

type OAuth2 struct {
	Enabled                 *bool  `yaml:"enabled"`
	RequireChallengeOnLogin *bool  `yaml:"require_challenge_on_login"`
	DefaultScopes           string `yaml:"default_scopes"`
	CodeTTL                 string `yaml:"code_ttl"`
	IssueRefreshToken       bool   `yaml:"issue_refresh_token"`
}

type LoginAPI struct {
	Enabled       *bool  `yaml:"enabled"`
	DefaultScopes string `yaml:"default_scopes"`
	ChallengeTTL  string `yaml:"challenge_ttl"`

	// Verifier: "any" (default) acepta cualquier challenge_data,
	// "static" lo compara contra StaticCode.
	Verifier   string `yaml:"challenge_verifier"`
	StaticCode string `yaml:"challenge_static_code"`

	// MaxChallengeAttempts challenge_data incorrectos antes de quemar el challenge.
	MaxChallengeAttempts int `yaml:"max_challenge_attempts"`
}

type Keys struct {
	PrivateKeyPath    string `yaml:"private_key_path"`
	PrivateKeyPEM     string `yaml:"private_key_pem"`
	KID               string `yaml:"kid"`
	GenerateIfMissing *bool  `yaml:"generate_if_missing"`
	Bits              int    `yaml:"bits"`
}

type Storage struct {
	// memory | redis | postgres
	Driver string `yaml:"driver"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Postgres struct {
		DSN          string `yaml:"dsn"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
		AutoMigrate  bool   `yaml:"auto_migrate"`
	} `yaml:"postgres"`
}

type Rate struct {
	Enabled bool   `yaml:"enabled"`
	Limit   int    `yaml:"limit"`
	Window  string `yaml:"window"`

	// TrustForwarded: la IP sale de X-Forwarded-For. Solo detrás de un proxy propio.
	TrustForwarded bool `yaml:"trust_forwarded"`
}

type Log struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

type Metrics struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ResolvePath aplica la precedencia flag > CONFIG_PATH > DefaultPath.
// explicit indica si el usuario pidió un archivo concreto.
func ResolvePath(flagValue string) (path string, explicit bool) {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p, true
	}
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		return p, true
	}
	return DefaultPath, false
}

// Load lee el YAML, aplica defaults, overrides de entorno y valida.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(b)
}

// LoadOptional es como Load pero si el archivo no existe arranca con defaults.
// Devuelve found=false en ese caso.
func LoadOptional(path string) (cfg *Config, found bool, err error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Parse(nil)
		return cfg, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err = Parse(b)
	return cfg, true, err
}

// Parse construye un Config desde bytes YAML (nil = vacío).
func Parse(b []byte) (*Config, error) {
	var c Config
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}
	c.applyEnvOverrides()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Issuer == "" {
		c.Issuer = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	if c.AccessTokenExpirationSeconds == 0 {
		c.AccessTokenExpirationSeconds = 900 // 15m
	}
	if c.IdentityTokenExpirationSeconds == 0 {
		c.IdentityTokenExpirationSeconds = c.AccessTokenExpirationSeconds
	}
	if c.RefreshTokenExpirationSeconds == 0 {
		c.RefreshTokenExpirationSeconds = 86400 // 1d
	}
	if strings.TrimSpace(c.AllowedOrigins) == "" {
		c.AllowedOrigins = "*"
	}

	if c.OAuth2.Enabled == nil {
		c.OAuth2.Enabled = boolPtr(true)
	}
	if c.OAuth2.RequireChallengeOnLogin == nil {
		c.OAuth2.RequireChallengeOnLogin = boolPtr(false)
	}
	if c.OAuth2.DefaultScopes == "" {
		c.OAuth2.DefaultScopes = "openid profile"
	}
	if c.OAuth2.CodeTTL == "" {
		c.OAuth2.CodeTTL = "10m"
	}

	if c.LoginAPI.Enabled == nil {
		c.LoginAPI.Enabled = boolPtr(true)
	}
	if c.LoginAPI.DefaultScopes == "" {
		c.LoginAPI.DefaultScopes = "openid profile"
	}
	if c.LoginAPI.ChallengeTTL == "" {
		c.LoginAPI.ChallengeTTL = "5m"
	}
	if c.LoginAPI.Verifier == "" {
		c.LoginAPI.Verifier = "any"
	}
	if c.LoginAPI.MaxChallengeAttempts == 0 {
		c.LoginAPI.MaxChallengeAttempts = 5
	}

	if c.Keys.GenerateIfMissing == nil {
		c.Keys.GenerateIfMissing = boolPtr(true)
	}
	if c.Keys.Bits == 0 {
		c.Keys.Bits = 2048
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = "minijohn:"
	}

	if c.Rate.Limit == 0 {
		c.Rate.Limit = 30
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}

	if c.Log.Env == "" {
		c.Log.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Metrics.Enabled == nil {
		c.Metrics.Enabled = boolPtr(true)
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// ─── env ───

func getEnvStr(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(s); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides corre antes de los defaults para que los valores derivados
// (base_url a partir de PORT, por ejemplo) usen el valor final.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvInt("PORT"); ok {
		c.Port = v
	}
	if v, ok := getEnvStr("BASE_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := getEnvStr("ISSUER"); ok {
		c.Issuer = v
	}
	if v, ok := getEnvInt("ACCESS_TOKEN_EXPIRATION_SECONDS"); ok {
		c.AccessTokenExpirationSeconds = v
	}
	if v, ok := getEnvInt("IDENTITY_TOKEN_EXPIRATION_SECONDS"); ok {
		c.IdentityTokenExpirationSeconds = v
	}
	if v, ok := getEnvInt("REFRESH_TOKEN_EXPIRATION_SECONDS"); ok {
		c.RefreshTokenExpirationSeconds = v
	}
	if v, ok := getEnvStr("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = v
	}
	if v, ok := getEnvStr("PRIVATE_KEY_PATH"); ok {
		c.Keys.PrivateKeyPath = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Storage.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Storage.Redis.Password = v
	}
	if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.Postgres.DSN = v
	}
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvBool("RATE_TRUST_FORWARDED"); ok {
		c.Rate.TrustForwarded = v
	}
	if v, ok := getEnvStr("LOG_ENV"); ok {
		c.Log.Env = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvBool("METRICS_ENABLED"); ok {
		c.Metrics.Enabled = &v
	}
}

// Validate revisa los valores que no tienen un default razonable.
// Los errores de mapeo de claims también salen de acá: es un error de config,
// no de emisión.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.AccessTokenExpirationSeconds < 0 || c.IdentityTokenExpirationSeconds < 0 || c.RefreshTokenExpirationSeconds < 0 {
		errs = append(errs, errors.New("token expirations must be positive"))
	}
	for name, v := range map[string]string{
		"oauth2.code_ttl":         c.OAuth2.CodeTTL,
		"login_api.challenge_ttl": c.LoginAPI.ChallengeTTL,
		"rate.window":             c.Rate.Window,
	} {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", name, v))
		}
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "", "memory":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			errs = append(errs, errors.New("storage.redis.addr required for redis driver"))
		}
	case "postgres", "pg":
		if c.Storage.Postgres.DSN == "" {
			errs = append(errs, errors.New("storage.postgres.dsn required for postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported", c.Storage.Driver))
	}

	switch c.LoginAPI.Verifier {
	case "", "any":
	case "static":
		if c.LoginAPI.StaticCode == "" {
			errs = append(errs, errors.New("login_api.challenge_static_code required for static verifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("login_api.challenge_verifier %q not supported", c.LoginAPI.Verifier))
	}
	if c.LoginAPI.MaxChallengeAttempts < 1 {
		errs = append(errs, errors.New("login_api.max_challenge_attempts must be >= 1"))
	}

	for name, v := range map[string]string{
		"oauth2.default_scopes":    c.OAuth2.DefaultScopes,
		"login_api.default_scopes": c.LoginAPI.DefaultScopes,
	} {
		if bad := validation.InvalidScopes(v); len(bad) > 0 {
			errs = append(errs, fmt.Errorf("%s: invalid scope names %v", name, bad))
		}
	}

	seenUser := map[string]bool{}
	seenName := map[string]bool{}
	for i, u := range c.Users {
		if u.ID == "" || u.Username == "" {
			errs = append(errs, fmt.Errorf("users[%d]: id and username required", i))
			continue
		}
		if !validation.ValidUserID(u.ID) {
			errs = append(errs, fmt.Errorf("users[%d]: invalid id %q", i, u.ID))
		}
		if seenUser[u.ID] {
			errs = append(errs, fmt.Errorf("users[%d]: duplicate id %q", i, u.ID))
		}
		if seenName[u.Username] {
			errs = append(errs, fmt.Errorf("users[%d]: duplicate username %q", i, u.Username))
		}
		seenUser[u.ID], seenName[u.Username] = true, true
	}

	if err := claims.CheckMapping(c.MapAccessTokenClaims); err != nil {
		errs = append(errs, fmt.Errorf("map_access_token_claims: %w", err))
	}
	if err := claims.CheckMapping(c.MapIdentityTokenClaims); err != nil {
		errs = append(errs, fmt.Errorf("map_identity_token_claims: %w", err))
	}

	seenClient := map[string]bool{}
	for i, cl := range c.Clients {
		if cl.ID == "" {
			errs = append(errs, fmt.Errorf("clients[%d]: id required", i))
			continue
		}
		if seenClient[cl.ID] {
			errs = append(errs, fmt.Errorf("clients[%d]: duplicate id %q", i, cl.ID))
		}
		seenClient[cl.ID] = true
		if cl.ClaimMappings != nil {
			if err := claims.CheckMapping(cl.ClaimMappings.Access); err != nil {
				errs = append(errs, fmt.Errorf("clients[%s].claim_mappings.access: %w", cl.ID, err))
			}
			if err := claims.CheckMapping(cl.ClaimMappings.Identity); err != nil {
				errs = append(errs, fmt.Errorf("clients[%s].claim_mappings.identity: %w", cl.ID, err))
			}
		}
	}

	return errors.Join(errs...)
}

// ─── accessors ───

func (c *Config) OAuth2Enabled() bool   { return c.OAuth2.Enabled == nil || *c.OAuth2.Enabled }
func (c *Config) LoginAPIEnabled() bool { return c.LoginAPI.Enabled == nil || *c.LoginAPI.Enabled }
func (c *Config) MetricsEnabled() bool  { return c.Metrics.Enabled == nil || *c.Metrics.Enabled }

func (c *Config) RequireChallengeOnLogin() bool {
	return c.OAuth2.RequireChallengeOnLogin != nil && *c.OAuth2.RequireChallengeOnLogin
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenExpirationSeconds) * time.Second
}

func (c *Config) IdentityTTL() time.Duration {
	return time.Duration(c.IdentityTokenExpirationSeconds) * time.Second
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpirationSeconds) * time.Second
}

func (c *Config) CodeTTL() time.Duration      { return mustDur(c.OAuth2.CodeTTL, 10*time.Minute) }
func (c *Config) ChallengeTTL() time.Duration { return mustDur(c.LoginAPI.ChallengeTTL, 5*time.Minute) }
func (c *Config) RateWindow() time.Duration   { return mustDur(c.Rate.Window, time.Minute) }

// Origins parte allowed_origins por comas.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AllRedirectURIs junta redirect_uri y redirect_uris sin duplicados.
func (cl Client) AllRedirectURIs() []string {
	out := make([]string, 0, len(cl.RedirectURIs)+1)
	seen := map[string]bool{}
	for _, u := range append([]string{cl.RedirectURI}, cl.RedirectURIs...) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func mustDur(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil && d > 0 {
		return d
	}
	return def
}

func boolPtr(b bool) *bool { return &b }
