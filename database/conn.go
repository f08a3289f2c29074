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
	"fmt"
)

// Open builds an engine from cfg, connects it and, when enabled, runs the
// migrations for the models in registry. The caller owns the engine and must
// Close it.
func Open(ctx context.Context, cfg *Config, registry ModelRegistry, logger Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}

	engine, err := NewEngineFromConfig(&cfg.ConnectionConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database engine: %w", err)
	}

	if err := engine.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if registry != nil {
		engine.DB().RegisterModel(ModelInstances(registry)...)
	}

	if cfg.DataMigrateConfig.EnableMigrateOnStartup && registry != nil {
		if err := engine.Migrate(ctx, registry, cfg); err != nil {
			_ = engine.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	engine.logger.Info("Database initialization completed!")
	return engine, nil
}
