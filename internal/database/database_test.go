package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"retouchly/internal/config"
	"retouchly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestDSN_DefaultsSSLMode(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "retouchly"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=retouchly sslmode=disable", DSN(cfg))
}

func TestEmbeddedMigrations(t *testing.T) {
	all := GetMigrations()
	require.Len(t, all, 3)
	assert.Equal(t, "000001_create_users", all[0].String())
	assert.Equal(t, "000003_create_likes", all[2].String())
	assert.Contains(t, all[2].UpScript, "ON DELETE CASCADE")
	assert.NotNil(t, GetMigrationByVersion(2))
	assert.Nil(t, GetMigrationByVersion(99))
}

func TestLoadMigrations_Errors(t *testing.T) {
	missingDown := fstest.MapFS{
		"m/000001_init.up.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := LoadMigrations(missingDown, "m")
	assert.ErrorContains(t, err, "down migration")

	duplicate := fstest.MapFS{
		"m/000001_a.up.sql":   {Data: []byte("SELECT 1;")},
		"m/000001_a.down.sql": {Data: []byte("SELECT 1;")},
		"m/1_b.up.sql":        {Data: []byte("SELECT 1;")},
		"m/1_b.down.sql":      {Data: []byte("SELECT 1;")},
	}
	_, err = LoadMigrations(duplicate, "m")
	assert.ErrorContains(t, err, "used by both")

	badVersion := fstest.MapFS{
		"m/abc_x.up.sql":   {Data: []byte("SELECT 1;")},
		"m/abc_x.down.sql": {Data: []byte("SELECT 1;")},
	}
	_, err = LoadMigrations(badVersion, "m")
	assert.ErrorContains(t, err, "invalid version")
}

type fakeStore struct {
	applied []int
	ran     []int
	failOn  int
}

func (f *fakeStore) EnsureTable(context.Context) error { return nil }

func (f *fakeStore) AppliedVersions(context.Context) ([]int, error) { return f.applied, nil }

func (f *fakeStore) Apply(_ context.Context, m Migration) error {
	if m.Version == f.failOn {
		return errors.New("boom")
	}
	f.ran = append(f.ran, m.Version)
	f.applied = append(f.applied, m.Version)
	return nil
}

func (f *fakeStore) Revert(context.Context, Migration) error { return nil }

func TestRunMigrations_AppliesPendingInOrder(t *testing.T) {
	store := &fakeStore{applied: []int{1}}
	registered := []Migration{{Version: 1, Name: "a"}, {Version: 2, Name: "b"}, {Version: 3, Name: "c"}}

	require.NoError(t, runMigrations(context.Background(), store, registered))
	assert.Equal(t, []int{2, 3}, store.ran)

	store.ran = nil
	require.NoError(t, runMigrations(context.Background(), store, registered))
	assert.Empty(t, store.ran)
}

func TestRunMigrations_StopsOnFailure(t *testing.T) {
	store := &fakeStore{failOn: 2}
	registered := []Migration{{Version: 1, Name: "a"}, {Version: 2, Name: "b"}, {Version: 3, Name: "c"}}

	assert.Error(t, runMigrations(context.Background(), store, registered))
	assert.Equal(t, []int{1}, store.ran)
}

func TestRunMigrations_RejectsUnknownAppliedVersion(t *testing.T) {
	store := &fakeStore{applied: []int{1, 7}}
	err := runMigrations(context.Background(), store, []Migration{{Version: 1, Name: "a"}})
	assert.ErrorContains(t, err, "000007")
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.Config
		wantSQL     bool
		wantAuto    bool
		expectError bool
	}{
		{name: "hybrid dev", cfg: config.Config{Env: "development"}, wantSQL: true, wantAuto: true},
		{name: "hybrid prod", cfg: config.Config{Env: "production", DBSchemaMode: SchemaModeHybrid}, wantSQL: true},
		{name: "sql", cfg: config.Config{Env: "development", DBSchemaMode: SchemaModeSQL}, wantSQL: true},
		{name: "auto dev", cfg: config.Config{Env: "test", DBSchemaMode: SchemaModeAuto}, wantAuto: true},
		{name: "auto prod refused", cfg: config.Config{Env: "production", DBSchemaMode: SchemaModeAuto}, expectError: true},
		{name: "auto prod allowed", cfg: config.Config{Env: "staging", DBSchemaMode: SchemaModeAuto, DBAutoMigrateAllowDestructive: true}, wantAuto: true},
		{name: "unknown", cfg: config.Config{DBSchemaMode: "yolo"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAuto, runAuto)
		})
	}
}

func TestApplySchema_AutoModeOnSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{Env: "test", DBSchemaMode: SchemaModeAuto}
	require.NoError(t, ApplySchema(context.Background(), db, cfg))

	for _, model := range []any{&models.User{}, &models.Activity{}, &models.Like{}} {
		assert.True(t, db.Migrator().HasTable(model))
	}

	status, err := GetSchemaStatus(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.False(t, status.WillRunSQL)
	assert.Empty(t, status.PendingMigrations)
}

func TestSlogLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)), logger.Warn)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sql, nil)
	assert.Empty(t, buf.String())

	l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "slow query")

	buf.Reset()
	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(context.Background(), time.Now(), sql, errors.New("syntax error"))
	assert.Contains(t, buf.String(), "query failed")

	buf.Reset()
	l.LogMode(logger.Silent).Trace(context.Background(), time.Now(), sql, errors.New("x"))
	assert.Empty(t, buf.String())
}
