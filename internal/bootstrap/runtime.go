// Package bootstrap wires the process-level dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"retouchly/internal/cache"
	"retouchly/internal/config"
	"retouchly/internal/database"
	"retouchly/internal/middleware"
	"retouchly/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedPreset names a built-in seed preset to apply after connecting.
	// Ignored outside development.
	SeedPreset string
}

// InitRuntime connects to PostgreSQL and Redis and optionally seeds demo data.
// The Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb := cache.Connect(cfg.RedisURL)

	if err := seedDevelopment(ctx, cfg, db, opts.SeedPreset); err != nil {
		return nil, nil, fmt.Errorf("failed to seed development data: %w", err)
	}
	return db, rdb, nil
}

func seedDevelopment(ctx context.Context, cfg *config.Config, db *gorm.DB, preset string) error {
	if preset == "" {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") {
		middleware.Logger.WarnContext(ctx, "seed preset ignored outside development",
			slog.String("preset", preset), slog.String("env", cfg.Env))
		return nil
	}

	p, err := seed.LoadPreset(preset)
	if err != nil {
		return err
	}
	var existing int64
	if err := db.WithContext(ctx).Table("activities").Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		middleware.Logger.InfoContext(ctx, "database already has activities, skipping seed",
			slog.Int64("activities", existing))
		return nil
	}
	_, err = seed.NewSeeder(db, 0).Apply(ctx, p)
	return err
}
