// Package bootstrap establishes the shared runtime (database, Redis, dev
// fixtures) used by the server and the auxiliary commands.
package bootstrap

import (
	"fmt"
	"log"
	"strings"

	"senyo/internal/cache"
	"senyo/internal/config"
	"senyo/internal/database"
	"senyo/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemoData runs the demo seeder after connecting.
	SeedDemoData bool
}

// InitRuntime connects to the database and Redis and applies development
// bootstrapping. The Redis client may be nil when the server is unreachable;
// callers run degraded rather than failing.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevOperator(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development operator: %w", err)
	}

	if opts.SeedDemoData {
		if err := seed.Demo(db, seed.Options{NumClients: 10, NumRequests: 40}); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// ensureDevOperator creates a first operator account in development so a
// fresh environment has someone who can reach the admin portal. The account
// still needs its email on the allow-list; this only covers authentication.
func ensureDevOperator(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapOperator {
		return nil
	}

	email := strings.TrimSpace(strings.ToLower(cfg.DevOperatorEmail))
	if email == "" {
		email = "ops@senyo.local"
	}
	if cfg.DevOperatorPassword == "" {
		return fmt.Errorf("DEV_OPERATOR_PASSWORD must be set when DEV_BOOTSTRAP_OPERATOR is enabled")
	}

	if err := seed.EnsureOperator(db, email, "Operator", cfg.DevOperatorPassword); err != nil {
		return err
	}

	log.Printf("development operator account ensured (%s)", email)
	return nil
}
