package bootstrap

import (
	"context"
	"strings"
	"testing"

	"retouchly/internal/config"
	"retouchly/internal/database"
	"retouchly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func countActivities(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Activity{}).Count(&n).Error)
	return n
}

func TestSeedDevelopment(t *testing.T) {
	ctx := context.Background()

	t.Run("skipped outside development", func(t *testing.T) {
		db := setupSQLiteDB(t)
		require.NoError(t, seedDevelopment(ctx, &config.Config{Env: "production"}, db, "small"))
		assert.Zero(t, countActivities(t, db))
	})

	t.Run("seeds once in development", func(t *testing.T) {
		db := setupSQLiteDB(t)
		cfg := &config.Config{Env: "development"}
		require.NoError(t, seedDevelopment(ctx, cfg, db, "small"))
		first := countActivities(t, db)
		assert.Equal(t, int64(6), first)

		require.NoError(t, seedDevelopment(ctx, cfg, db, "small"))
		assert.Equal(t, first, countActivities(t, db))
	})

	t.Run("unknown preset", func(t *testing.T) {
		db := setupSQLiteDB(t)
		assert.Error(t, seedDevelopment(ctx, &config.Config{Env: "development"}, db, "nope"))
	})

	t.Run("no preset", func(t *testing.T) {
		assert.NoError(t, seedDevelopment(ctx, &config.Config{Env: "development"}, nil, ""))
	})
}
