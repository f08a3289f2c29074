/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestEngineLifecycle(t *testing.T) {
	cfg := sqliteConfig()
	engine := openTestEngine(t, cfg, testRegistry())
	ctx := context.Background()

	require.NoError(t, engine.Ping(ctx))
	status := engine.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, engine.Stats().MaxOpenConns)

	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close())
	assert.Nil(t, engine.DB())
	assert.Error(t, engine.Ping(ctx))
}

func TestHealthCheckLeavesEngineUsableWhilePinging(t *testing.T) {
	engine := openTestEngine(t, sqliteConfig(), testRegistry())

	uow, err := engine.UnitOfWork().Begin(context.Background())
	require.NoError(t, err)
	defer uow.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	done := make(chan *HealthStatus, 1)
	go func() { done <- engine.HealthCheck(ctx) }()

	time.Sleep(50 * time.Millisecond)
	got := make(chan *bun.DB, 1)
	go func() { got <- engine.DB() }()
	select {
	case db := <-got:
		assert.NotNil(t, db)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("DB blocked behind a running health check")
	}

	status := <-done
	assert.False(t, status.Healthy)
	assert.NotEmpty(t, status.LastError)
}

func TestNewEngineFromConfig(t *testing.T) {
	_, err := NewEngineFromConfig(nil, nil)
	assert.Error(t, err)

	_, err = NewEngineFromConfig(&ConnectionConfig{Type: "oracle"}, nil)
	assert.ErrorContains(t, err, "unsupported database type")

	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("DB_ENABLE_METRICS", "true")
	cfg := &ConnectionConfig{Type: "pgx", Host: "localhost", Port: 5432}
	engine, err := NewEngineFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, engine)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6432, cfg.Port)
	assert.True(t, cfg.EnableMetrics)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weldreg.yaml")
	content := `
connection:
  type: mysql
  host: 10.0.0.5
  port: 3306
  dbname: registry
  slow_query_time: 500ms
migrate:
  enable_foreign_key: false
init:
  environment: dev
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.ConnectionConfig.Type)
	assert.Equal(t, "10.0.0.5", cfg.ConnectionConfig.Host)
	assert.Equal(t, "500ms", cfg.ConnectionConfig.SlowQueryTime.String())
	assert.Equal(t, 100, cfg.ConnectionConfig.MaxOpenConns)
	assert.False(t, cfg.DataMigrateConfig.EnableForeignKey)
	assert.True(t, cfg.DataMigrateConfig.EnableMigrateOnStartup)
	assert.Equal(t, "dev", cfg.DataInitConfig.Environment)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMigrationsCreateTablesWithCascade(t *testing.T) {
	cfg := sqliteConfig()
	engine := openTestEngine(t, cfg, testRegistry())
	db := engine.DB()
	ctx := context.Background()

	mm := NewMigrationManager(db, testRegistry(), cfg, nil)
	require.NoError(t, mm.RunMigrations(ctx))
	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "001", applied[0].Version)

	parent := &testParent{ID: uuid.NewString(), Code: "P1"}
	_, err = db.NewInsert().Model(parent).Exec(ctx)
	require.NoError(t, err)
	child := &testChild{ID: uuid.NewString(), Code: "P1"}
	_, err = db.NewInsert().Model(child).Exec(ctx)
	require.NoError(t, err)

	orphan := &testChild{ID: uuid.NewString(), Code: "NOPE"}
	_, err = db.NewInsert().Model(orphan).Exec(ctx)
	require.Error(t, err)
	_, kind := IsSqlError(err)
	assert.Equal(t, ForeignKeyViolationErr, kind)

	_, err = db.NewDelete().Model((*testParent)(nil)).Where("code = ?", "P1").Exec(ctx)
	require.NoError(t, err)
	n, err := db.NewSelect().Model((*testChild)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnitOfWorkCommitAndRollback(t *testing.T) {
	engine := openTestEngine(t, sqliteConfig(), testRegistry())
	factory := engine.UnitOfWork()
	ctx := context.Background()

	uow, err := factory.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Tx().NewInsert().Model(&testParent{ID: uuid.NewString(), Code: "KEEP"}).Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	assert.True(t, uow.Committed())
	require.NoError(t, uow.Close())
	require.NoError(t, uow.Close())
	assert.ErrorIs(t, uow.Commit(), ErrUnitClosed)

	uow, err = factory.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Tx().NewInsert().Model(&testParent{ID: uuid.NewString(), Code: "DROP"}).Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Close())

	codes := parentCodes(t, engine.DB())
	assert.Equal(t, []string{"KEEP"}, codes)
}

func TestUnitOfWorkDoRollsBackOnError(t *testing.T) {
	engine := openTestEngine(t, sqliteConfig(), testRegistry())
	factory := engine.UnitOfWork()
	ctx := context.Background()
	boom := errors.New("boom")

	err := factory.Do(ctx, func(ctx context.Context, tx bun.IDB) error {
		if _, err := tx.NewInsert().Model(&testParent{ID: uuid.NewString(), Code: "GONE"}).Exec(ctx); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, parentCodes(t, engine.DB()))

	err = factory.Do(ctx, func(ctx context.Context, tx bun.IDB) error {
		_, err := tx.NewInsert().Model(&testParent{ID: uuid.NewString(), Code: "DONE"}).Exec(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"DONE"}, parentCodes(t, engine.DB()))
}

func TestUnitOfWorkReleasesConnectionOnCancel(t *testing.T) {
	engine := openTestEngine(t, sqliteConfig(), testRegistry())
	factory := engine.UnitOfWork()

	ctx, cancel := context.WithCancel(context.Background())
	uow, err := factory.Begin(ctx)
	require.NoError(t, err)
	cancel()
	require.NoError(t, uow.Close())

	// The single pooled connection must be usable again.
	require.NoError(t, engine.Ping(context.Background()))
	assert.Equal(t, 0, engine.Stats().InUse)
}

func TestMetricsHookCountsQueries(t *testing.T) {
	cfg := sqliteConfig()
	cfg.ConnectionConfig.EnableMetrics = true
	reg := prometheus.NewRegistry()

	engine, err := NewEngineFromConfig(&cfg.ConnectionConfig, nil)
	require.NoError(t, err)
	engine.SetMetricsRegisterer(reg)
	require.NoError(t, engine.Connect(context.Background()))
	t.Cleanup(func() { _ = engine.Close() })

	require.NoError(t, engine.Migrate(context.Background(), testRegistry(), cfg))
	_ = parentCodes(t, engine.DB())

	hook, err := NewMetricsHook(reg)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, testutil.ToFloat64(hook.queries.WithLabelValues("SELECT")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(hook.queries.WithLabelValues("CREATE TABLE")), 1.0)
	assert.Zero(t, testutil.ToFloat64(hook.errors.WithLabelValues("SELECT")))
}

func TestSQLInitManagerRunsFilesInOrder(t *testing.T) {
	root := t.TempDir()
	common := filepath.Join(root, "common")
	env := filepath.Join(root, "environments", "test")
	require.NoError(t, os.MkdirAll(common, 0o755))
	require.NoError(t, os.MkdirAll(env, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(common, "002_child.sql"), []byte(
		"-- children\nINSERT INTO test_child (id, code) VALUES ('c1', 'P1');\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(common, "001_parent.sql"), []byte(
		"INSERT INTO test_parent (id, code)\nVALUES ('p1', 'P1');\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(env, "001_env.sql"), []byte(
		"INSERT INTO test_parent (id, code) VALUES ('p2', '{{.ENVIRONMENT}}');\n"), 0o600))

	cfg := sqliteConfig()
	cfg.DataInitConfig = DataInitConfig{AutoInitOnMigration: true, Filepath: root, Environment: "test"}
	engine := openTestEngine(t, cfg, testRegistry())

	assert.Equal(t, []string{"P1", "test"}, parentCodes(t, engine.DB()))

	mm := NewMigrationManager(engine.DB(), testRegistry(), cfg, nil)
	applied, err := mm.GetAppliedMigrations(context.Background())
	require.NoError(t, err)
	assert.Len(t, applied, 2)
}

func TestSplitSQLStatements(t *testing.T) {
	stmts := splitSQLStatements("-- header\nSELECT 1;\n\nINSERT INTO t\nVALUES (1);\nSELECT 2")
	assert.Equal(t, []string{"SELECT 1;", "INSERT INTO t VALUES (1);", "SELECT 2"}, stmts)
	assert.Equal(t, 12, parseFileOrder("012_seed.sql"))
	assert.Equal(t, 999, parseFileOrder("seed.sql"))
}

func parentCodes(t *testing.T, db *bun.DB) []string {
	t.Helper()
	var codes []string
	err := db.NewSelect().Model((*testParent)(nil)).Column("code").Order("code ASC").Scan(context.Background(), &codes)
	require.NoError(t, err)
	return codes
}
