package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/minijohn/internal/observability/logger"
	migrations "github.com/dropDatabas3/minijohn/migrations/postgres"
)

// migrationLockID advisory lock compartido por todas las réplicas.
const migrationLockID int64 = 0x6d696e696a6f686e // "minijohn"

// Migrate aplica los *_up.sql embebidos que falten, en orden lexicográfico,
// bajo un advisory lock. Devuelve cuántos scripts aplicó.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	return MigrateFS(ctx, pool, migrations.PostgresFS)
}

// MigrateFS igual que Migrate pero sobre un FS arbitrario (tests).
func MigrateFS(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) (int, error) {
	log := logger.L().With(logger.Component("migrate"))

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	lctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := conn.Exec(lctx, `select pg_advisory_lock($1)`, migrationLockID); err != nil {
		return 0, fmt.Errorf("migrate: lock: %w", err)
	}
	defer func() {
		if _, err := conn.Exec(context.Background(), `select pg_advisory_unlock($1)`, migrationLockID); err != nil {
			log.Warn("failed to release migration lock", logger.Err(err))
		}
	}()

	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return 0, fmt.Errorf("migrate: ensure schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return 0, fmt.Errorf("migrate: read applied: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return 0, err
		}
		applied[v] = true
	}
	rows.Close()

	files, err := fs.Glob(fsys, "*_up.sql")
	if err != nil {
		return 0, err
	}
	sort.Strings(files)

	var n int
	for _, name := range files {
		version := strings.TrimSuffix(name, "_up.sql")
		if applied[version] {
			continue
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return n, err
		}
		tx, err := conn.Begin(ctx)
		if err != nil {
			return n, err
		}
		if _, err := tx.Exec(ctx, string(body)); err != nil {
			_ = tx.Rollback(ctx)
			return n, fmt.Errorf("migrate: %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			_ = tx.Rollback(ctx)
			return n, fmt.Errorf("migrate: record %s: %w", version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return n, err
		}
		log.Info("migration applied", logger.String("version", version))
		n++
	}
	return n, nil
}
