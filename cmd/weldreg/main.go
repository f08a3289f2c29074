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

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/tomoncle/weldreg"
	"github.com/tomoncle/weldreg/database"
	"github.com/tomoncle/weldreg/models"
	"github.com/tomoncle/weldreg/utils"
)

func main() {
	configPath := flag.String("config", utils.EnvDefaultString("WELDREG_CONFIG", "configs/weldreg.yaml"), "path to the YAML configuration")
	metricsAddr := flag.String("metrics-addr", utils.EnvDefaultString("WELDREG_METRICS_ADDR", ":9102"), "listen address of /metrics when metrics are enabled")
	flag.Parse()

	utils.ConfigureConsoleLogFormat(utils.EnvDefaultString("CONSOLE_LOG_FORMAT", "text"))
	utils.ConfigureConsoleOutput(os.Stderr)
	utils.ConfigureLogLevel(utils.EnvDefaultString("LOG_LEVEL", "info"))
	database.InitLogger(database.NewLogrusLogger("DATABASE"))
	log := utils.NewLogger("WELDREG")

	if err := run(*configPath, *metricsAddr, log); err != nil {
		log.WithError(err).Error("weldreg stopped")
		os.Exit(1)
	}
}

func run(configPath, metricsAddr string, log *logrus.Logger) error {
	cfg, err := database.LoadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	registry := prometheus.NewRegistry()
	engine, err := openEngine(ctx, cfg, registry)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}()

	services := weldreg.NewServices(engine.UnitOfWork(), nil)
	welders, err := services.Welders.Count(ctx, nil)
	if err != nil {
		return err
	}
	log.WithField("welders", welders).Info("registry ready")

	var server *http.Server
	if cfg.ConnectionConfig.EnableMetrics {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server failed")
				cancel()
			}
		}()
		log.WithField("addr", metricsAddr).Info("serving metrics")
	}

	<-ctx.Done()
	log.Info("shutting down")

	if server != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = server.Shutdown(shutdownCtx)
	}
	return nil
}

func openEngine(ctx context.Context, cfg *database.Config, reg prometheus.Registerer) (*database.Engine, error) {
	engine, err := database.NewEngineFromConfig(&cfg.ConnectionConfig, nil)
	if err != nil {
		return nil, err
	}
	engine.SetMetricsRegisterer(reg)
	if err := engine.Connect(ctx); err != nil {
		return nil, err
	}

	if cfg.DataMigrateConfig.EnableMigrateOnStartup {
		if err := engine.Migrate(ctx, models.NewRegistry(), cfg); err != nil {
			_ = engine.Close()
			return nil, err
		}
	}
	return engine, nil
}
