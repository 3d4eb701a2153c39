// Package app arma la aplicación completa a partir de la config: store,
// claves, services, controllers, router y métricas.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/minijohn/internal/clients"
	"github.com/dropDatabas3/minijohn/internal/config"
	httpx "github.com/dropDatabas3/minijohn/internal/http"
	"github.com/dropDatabas3/minijohn/internal/http/controllers"
	"github.com/dropDatabas3/minijohn/internal/http/router"
	"github.com/dropDatabas3/minijohn/internal/http/services"
	"github.com/dropDatabas3/minijohn/internal/http/services/auth"
	"github.com/dropDatabas3/minijohn/internal/http/services/oidc"
	jwtx "github.com/dropDatabas3/minijohn/internal/jwt"
	"github.com/dropDatabas3/minijohn/internal/observability/logger"
	"github.com/dropDatabas3/minijohn/internal/rate"
	"github.com/dropDatabas3/minijohn/internal/security/password"
	"github.com/dropDatabas3/minijohn/internal/store"

	// registra memory, redis y postgres
	_ "github.com/dropDatabas3/minijohn/internal/store/adapters/dal"
)

// Options ajustes que no vienen de la config (tests, CLI).
type Options struct {
	// Now reloj compartido por services y emisor; nil = time.Now.
	Now func() time.Time
	// PasswordParams para el seed y PUT /users; zero value = password.Default.
	PasswordParams password.Params
	// Registry nil = registry nuevo con collectors de Go y proceso.
	Registry *prometheus.Registry
	// PurgeInterval frecuencia de limpieza de handles vencidos (postgres).
	PurgeInterval time.Duration
	// PurgeRetention cuánto se conservan los handles vencidos antes de borrarlos.
	PurgeRetention time.Duration
}

// App es la aplicación armada. Close libera store y goroutines.
type App struct {
	Config   *config.Config
	Handler  http.Handler
	Store    store.AdapterConnection
	Issuer   *jwtx.Issuer
	Registry *prometheus.Registry

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New arma la app. Cualquier error de config, claves o store aborta.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := logger.L().With(logger.Component("app"))
	if opts.PasswordParams == (password.Params{}) {
		opts.PasswordParams = password.Default
	}

	// 1. Claves y emisor
	keys, err := jwtx.LoadKeyManager(jwtx.KeyConfig{
		PrivateKeyPath:    cfg.Keys.PrivateKeyPath,
		PrivateKeyPEM:     cfg.Keys.PrivateKeyPEM,
		KID:               cfg.Keys.KID,
		GenerateIfMissing: cfg.Keys.GenerateIfMissing == nil || *cfg.Keys.GenerateIfMissing,
		Bits:              cfg.Keys.Bits,
	})
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	registry, mapper, err := clients.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	issuer, err := jwtx.NewIssuer(jwtx.IssuerConfig{
		Issuer:      cfg.Issuer,
		AccessTTL:   cfg.AccessTTL(),
		IdentityTTL: cfg.IdentityTTL(),
		Now:         opts.Now,
	}, keys, mapper)
	if err != nil {
		return nil, err
	}
	verifier, err := auth.NewVerifier(cfg.LoginAPI.Verifier, cfg.LoginAPI.StaticCode)
	if err != nil {
		return nil, err
	}

	// 2. Store + seed
	conn, err := store.OpenAdapter(ctx, adapterConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	a := &App{Config: cfg, Store: conn, Issuer: issuer}
	if err := seed(ctx, conn.Users(), cfg.Users, opts.PasswordParams); err != nil {
		_ = conn.Close()
		return nil, err
	}

	// 3. Rate limiter: redis compartido con el store si existe
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		if rc, ok := conn.(interface{ Client() *rdb.Client }); ok {
			limiter = rate.NewRedisLimiter(rc.Client(), cfg.Storage.Redis.Prefix+"rl:", cfg.Rate.Limit, cfg.RateWindow())
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.Limit, cfg.RateWindow())
		}
	}

	// Intentos de challenge_data: siempre activo, compartido por redis si está.
	var attempts rate.Limiter
	if rc, ok := conn.(interface{ Client() *rdb.Client }); ok {
		attempts = rate.NewRedisLimiter(rc.Client(), cfg.Storage.Redis.Prefix+"attempts:", cfg.LoginAPI.MaxChallengeAttempts, cfg.ChallengeTTL())
	} else {
		attempts = rate.NewMemoryLimiter(cfg.LoginAPI.MaxChallengeAttempts, cfg.ChallengeTTL())
	}

	// 4. Métricas
	var metricsHandler http.Handler
	if cfg.MetricsEnabled() {
		reg := opts.Registry
		if reg == nil {
			reg = prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}
		mcfg := httpx.MetricsConfig{Registry: reg}
		if pc, ok := conn.(interface{ Pool() *pgxpool.Pool }); ok {
			mcfg.Pool = pc.Pool
		}
		metricsHandler, err = httpx.RegisterMetrics(mcfg)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("metrics: %w", err)
		}
		a.Registry = reg
	}

	// 5. Services → controllers → router
	svcs := services.New(services.Deps{
		Store:             conn,
		Clients:           registry,
		Issuer:            issuer,
		Verifier:          verifier,
		LoginScopes:       cfg.LoginAPI.DefaultScopes,
		ChallengeTTL:      cfg.ChallengeTTL(),
		ChallengeAttempts: attempts,
		OAuthScopes:       cfg.OAuth2.DefaultScopes,
		CodeTTL:           cfg.CodeTTL(),
		RequireChallenge:  cfg.RequireChallengeOnLogin(),
		IssueRefreshToken: cfg.OAuth2.IssueRefreshToken,
		RefreshTTL:        cfg.RefreshTTL(),
		Discovery: oidc.DiscoveryConfig{
			Issuer:        cfg.Issuer,
			BaseURL:       cfg.BaseURL,
			OAuth2Enabled: cfg.OAuth2Enabled(),
			RefreshGrant:  cfg.OAuth2.IssueRefreshToken,
			Scopes:        []string{cfg.OAuth2.DefaultScopes, cfg.LoginAPI.DefaultScopes},
			MappedClaims:  mapper.ClaimNames(),
		},
		PasswordParams: opts.PasswordParams,
		Now:            opts.Now,
	})

	a.Handler = router.New(router.Deps{
		Controllers:     controllers.New(svcs),
		Verifier:        issuer,
		AllowedOrigins:  cfg.Origins(),
		Limiter:         limiter,
		TrustForwarded:  cfg.Rate.TrustForwarded,
		OAuth2Enabled:   cfg.OAuth2Enabled(),
		LoginAPIEnabled: cfg.LoginAPIEnabled(),
		Metrics:         metricsHandler,
		MetricsPath:     cfg.Metrics.Path,
	})

	// 6. Limpieza de handles vencidos (sólo backends que la necesitan)
	bg, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if p, ok := conn.(store.Purger); ok {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			runPurger(bg, p, opts.PurgeInterval, opts.PurgeRetention)
		}()
	}

	log.Info("app ready",
		logger.Driver(conn.Name()),
		logger.String("issuer", cfg.Issuer),
		logger.KID(keys.KID()),
		logger.Int("clients", registry.Len()),
		logger.Bool("oauth2", cfg.OAuth2Enabled()),
		logger.Bool("login_api", cfg.LoginAPIEnabled()),
		logger.Bool("rate_limit", limiter != nil),
	)
	return a, nil
}

// Close detiene el purger y cierra el store. Es idempotente.
func (a *App) Close() error {
	var err error
	a.once.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.wg.Wait()
		err = a.Store.Close()
	})
	return err
}

func adapterConfig(cfg *config.Config) store.AdapterConfig {
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch driver {
	case "":
		driver = "memory"
	case "pg":
		driver = "postgres"
	}
	return store.AdapterConfig{
		Name:          driver,
		DSN:           cfg.Storage.Postgres.DSN,
		MaxOpenConns:  cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns:  cfg.Storage.Postgres.MaxIdleConns,
		AutoMigrate:   cfg.Storage.Postgres.AutoMigrate,
		RedisAddr:     cfg.Storage.Redis.Addr,
		RedisPassword: cfg.Storage.Redis.Password,
		RedisDB:       cfg.Storage.Redis.DB,
		RedisPrefix:   cfg.Storage.Redis.Prefix,
	}
}

// seed hashea las passwords en texto plano de la config y siembra los usuarios.
func seed(ctx context.Context, repo store.UserRepository, users []config.User, p password.Params) error {
	list := make([]store.User, 0, len(users))
	for _, u := range users {
		if u.Password == "" {
			return fmt.Errorf("seed user %s: %w", u.ID, password.ErrEmpty)
		}
		h, err := password.HashIfPlain(p, u.Password)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		list = append(list, store.User{
			ID:           u.ID,
			Username:     u.Username,
			PasswordHash: h,
			Disabled:     u.Disabled,
			Attributes:   u.Attributes,
		})
	}
	n, err := store.SeedUsers(ctx, repo, list)
	if err != nil {
		return err
	}
	logger.L().Info("users seeded", logger.Component("app"), logger.Int("inserted", n), logger.Int("configured", len(list)))
	return nil
}

func runPurger(ctx context.Context, p store.Purger, every, retention time.Duration) {
	if every <= 0 {
		every = 10 * time.Minute
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	log := logger.L().With(logger.Component("purger"))
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := p.Purge(ctx, now, retention)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("purge failed", logger.Err(err))
				continue
			}
			if n > 0 {
				log.Info("expired handles purged", logger.Any("count", n))
			}
		}
	}
}
