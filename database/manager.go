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
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// Engine owns the process-wide connection pool. It is created once at
// startup, handed to whatever needs storage access and closed on shutdown.
type Engine struct {
	config          *ConnectionConfig
	db              *bun.DB
	sqlDB           *sql.DB
	logger          Logger
	registerer      prometheus.Registerer
	mu              sync.RWMutex
	connected       bool
	lastError       error
	healthStatus    *HealthStatus
	stopHealthCheck chan struct{}
	healthCheckOnce sync.Once
	stopOnce        sync.Once
	healthWG        sync.WaitGroup
}

// NewEngine returns an unconnected engine. If config is nil a default
// configuration is used.
func NewEngine(config *ConnectionConfig, logger Logger) *Engine {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}
	return &Engine{
		config:          config,
		logger:          logger,
		healthStatus:    &HealthStatus{},
		stopHealthCheck: make(chan struct{}),
	}
}

// SetMetricsRegisterer sets where query metrics are registered when
// EnableMetrics is on. It must be called before Connect.
func (e *Engine) SetMetricsRegisterer(reg prometheus.Registerer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registerer = reg
}

func (e *Engine) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.connected && e.db != nil {
		return nil
	}

	var err error
	e.sqlDB, e.db, err = e.createConnection()
	if err != nil {
		e.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	e.configureConnectionPool()

	ctxTimeout, cancel := context.WithTimeout(ctx, e.config.ConnectTimeout)
	defer cancel()

	if err := e.db.PingContext(ctxTimeout); err != nil {
		e.lastError = err
		_ = e.db.Close()
		e.db, e.sqlDB = nil, nil
		return fmt.Errorf("database connection test failed: %w", err)
	}

	if e.isSQLite() {
		if _, err := e.db.ExecContext(ctxTimeout, "PRAGMA foreign_keys = ON"); err != nil {
			e.lastError = err
			return fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
		}
	}

	e.connected = true
	e.lastError = nil

	if e.config.HealthCheckInterval > 0 {
		e.startHealthCheck()
	}

	e.logger.Info("Database connected successfully", "type", e.config.Type, "host", e.config.Host, "dbname", e.config.DBName)
	return nil
}

func (e *Engine) isSQLite() bool {
	return e.config.Type == "sqlite" || e.config.Type == "sqlite3"
}

func (e *Engine) createConnection() (*sql.DB, *bun.DB, error) {
	var sqlDB *sql.DB
	var db *bun.DB
	var err error

	if e.config.ConnectTimeout <= 0 {
		e.config.ConnectTimeout = 30 * time.Second
	}

	switch e.config.Type {
	case "mysql":
		sqlDB, db, err = e.createMySQLConnection()
	case "postgres", "postgresql":
		sqlDB, db, err = e.createPostgreSQLConnection("postgres")
	case "pgx":
		sqlDB, db, err = e.createPostgreSQLConnection("pgx")
	case "sqlite", "sqlite3":
		sqlDB, db, err = e.createSQLiteConnection()
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", e.config.Type)
	}

	if err != nil {
		return nil, nil, err
	}

	if e.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}

	db.AddQueryHook(NewQueryHook("WELDREG_SQL_DEBUG", os.Stdout))

	if e.config.SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(e.config.SlowQueryTime, e.logger))
	}

	if e.config.EnableMetrics {
		hook, err := NewMetricsHook(e.registerer)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to register query metrics: %w", err)
		}
		db.AddQueryHook(hook)
	}

	return sqlDB, db, nil
}

func (e *Engine) createMySQLConnection() (*sql.DB, *bun.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&timeout=%s&readTimeout=%s&writeTimeout=%s",
		e.config.Username,
		e.config.Password,
		e.config.Host,
		e.config.Port,
		e.config.DBName,
		e.config.ConnectTimeout,
		e.config.ReadTimeout,
		e.config.WriteTimeout,
	)

	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, err
	}

	return sqlDB, bun.NewDB(sqlDB, mysqldialect.New()), nil
}

// createPostgreSQLConnection opens PostgreSQL through lib/pq ("postgres") or
// the pgx stdlib driver ("pgx"); both accept the same URL form.
func (e *Engine) createPostgreSQLConnection(driver string) (*sql.DB, *bun.DB, error) {
	sslMode := e.config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		e.config.Username,
		e.config.Password,
		e.config.Host,
		e.config.Port,
		e.config.DBName,
		sslMode,
		int(e.config.ConnectTimeout.Seconds()),
	)

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}

	return sqlDB, bun.NewDB(sqlDB, pgdialect.New()), nil
}

func (e *Engine) createSQLiteConnection() (*sql.DB, *bun.DB, error) {
	sqlDB, err := sql.Open(sqliteshim.ShimName, sqliteDSN(e.config))
	if err != nil {
		return nil, nil, err
	}

	return sqlDB, bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

// sqliteDSN enables foreign keys for both drivers sqliteshim may pick:
// _pragma for modernc.org/sqlite and _foreign_keys for mattn/go-sqlite3.
func sqliteDSN(cfg *ConnectionConfig) string {
	name := cfg.DBName
	if name == "" {
		name = "weldreg"
	}
	if cfg.InMemory {
		return fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_foreign_keys=1", name)
	}
	return fmt.Sprintf("file:%s.db?_pragma=foreign_keys(1)&_foreign_keys=1", name)
}

func (e *Engine) configureConnectionPool() {
	if e.sqlDB == nil {
		return
	}

	if e.isSQLite() {
		// A single long-lived connection: SQLite serialises writers anyway
		// and an in-memory database disappears with its last connection.
		e.sqlDB.SetMaxOpenConns(1)
		e.sqlDB.SetMaxIdleConns(1)
		e.sqlDB.SetConnMaxLifetime(0)
		e.sqlDB.SetConnMaxIdleTime(0)
		return
	}

	e.sqlDB.SetMaxIdleConns(e.config.MaxIdleConns)
	e.sqlDB.SetMaxOpenConns(e.config.MaxOpenConns)
	e.sqlDB.SetConnMaxLifetime(e.config.ConnMaxLifetime)
	e.sqlDB.SetConnMaxIdleTime(e.config.ConnMaxIdleTime)
}

// Close stops the health check loop and drains the pool. It is safe to call
// more than once.
func (e *Engine) Close() error {
	e.stopOnce.Do(func() { close(e.stopHealthCheck) })
	e.healthWG.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		return nil
	}

	err := e.db.Close()
	e.db = nil
	e.sqlDB = nil
	e.connected = false

	if err != nil {
		e.logger.Error("Failed to close database connection", "error", err)
	} else {
		e.logger.Info("Database connection closed")
	}
	return err
}

func (e *Engine) Ping(ctx context.Context) error {
	e.mu.RLock()
	db := e.db
	e.mu.RUnlock()

	if db == nil {
		return fmt.Errorf("database not connected")
	}

	return db.PingContext(ctx)
}

// DB returns the Bun handle, or nil before Connect.
func (e *Engine) DB() *bun.DB {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.db
}

// UnitOfWork returns a factory of units of work over the engine's pool.
func (e *Engine) UnitOfWork() *UnitOfWorkFactory {
	return NewUnitOfWorkFactory(e.DB(), e.logger)
}

// HealthCheck pings the pool and records the result. The engine lock is not
// held while pinging, so a slow ping never blocks DB or Ping callers.
func (e *Engine) HealthCheck(ctx context.Context) *HealthStatus {
	e.mu.RLock()
	db, sqlDB, connected := e.db, e.sqlDB, e.connected
	e.mu.RUnlock()

	start := time.Now()
	status := &HealthStatus{
		LastCheckTime: start,
		Connected:     connected,
	}

	if db == nil {
		status.LastError = "Database not initialized"
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	err := db.PingContext(ctxTimeout)
	status.ResponseTime = time.Since(start)

	if err != nil {
		status.Connected = false
		status.LastError = err.Error()
	} else {
		status.Healthy = true
		status.Connected = true
	}

	stats := sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections

	e.storeHealth(status, err)
	return status
}

func (e *Engine) storeHealth(status *HealthStatus, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.healthStatus = status
	e.lastError = err
}

func (e *Engine) startHealthCheck() {
	e.healthCheckOnce.Do(func() {
		e.healthWG.Add(1)
		go func() {
			defer e.healthWG.Done()
			ticker := time.NewTicker(e.config.HealthCheckInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
					status := e.HealthCheck(ctx)
					cancel()
					if !status.Healthy {
						e.logger.Warn("Database health check failed", "error", status.LastError)
					}
				case <-e.stopHealthCheck:
					return
				}
			}
		}()
	})
}

func (e *Engine) Stats() *DBStats {
	e.mu.RLock()
	sqlDB := e.sqlDB
	e.mu.RUnlock()

	if sqlDB == nil {
		return &DBStats{}
	}

	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

// Migrate creates the registered tables, and optionally foreign keys and
// seed data, according to cfg.
func (e *Engine) Migrate(ctx context.Context, registry ModelRegistry, cfg *Config) error {
	db := e.DB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return NewMigrationManager(db, registry, cfg, e.logger).RunMigrations(ctx)
}
