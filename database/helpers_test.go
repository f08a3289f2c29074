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
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type testParent struct {
	bun.BaseModel `bun:"table:test_parent,alias:tp"`

	ID   string `bun:"id,pk,type:varchar(36)"`
	Code string `bun:"code,notnull,unique"`
}

type testChild struct {
	bun.BaseModel `bun:"table:test_child,alias:tc"`

	ID   string `bun:"id,pk,type:varchar(36)"`
	Code string `bun:"code,notnull"`
}

func (*testChild) ForeignKeys() []ForeignKeyConstraint {
	return []ForeignKeyConstraint{{
		Table:           "test_child",
		Column:          "code",
		ReferenceTable:  "test_parent",
		ReferenceColumn: "code",
		OnDelete:        "CASCADE",
		OnUpdate:        "CASCADE",
	}}
}

func testRegistry() ModelRegistry {
	r := NewModelRegistry()
	r.Register(
		NewModelAdapter((*testChild)(nil), 10),
		NewModelAdapter((*testParent)(nil), 0),
	)
	return r
}

func sqliteConfig() *Config {
	cfg := DefaultConfig()
	cfg.ConnectionConfig.Type = "sqlite"
	cfg.ConnectionConfig.InMemory = true
	cfg.ConnectionConfig.DBName = "dbtest_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	cfg.ConnectionConfig.HealthCheckInterval = 0
	cfg.ConnectionConfig.SlowQueryTime = 0
	return cfg
}

func openTestEngine(t *testing.T, cfg *Config, registry ModelRegistry) *Engine {
	t.Helper()
	engine, err := Open(context.Background(), cfg, registry, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}
