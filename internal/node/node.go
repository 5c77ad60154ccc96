// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/blinklabs-io/pulsar"
	"github.com/blinklabs-io/pulsar/internal/config"
)

// NewNode builds a node from the loaded configuration
func NewNode(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*pulsar.Node, time.Duration, error) {
	shutdownTimeout := pulsar.DefaultShutdownTimeout
	if cfg.ShutdownTimeout != "" {
		var err error
		shutdownTimeout, err = time.ParseDuration(cfg.ShutdownTimeout)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid shutdown timeout: %w", err)
		}
	}
	tokenMint, err := cfg.TokenMintAddress()
	if err != nil {
		return nil, 0, err
	}
	mintAuthority, err := cfg.MintAuthorityAddress()
	if err != nil {
		return nil, 0, err
	}
	opts := []pulsar.ConfigOptionFunc{
		pulsar.WithLogger(logger),
		pulsar.WithDatabasePath(cfg.DatabasePath),
		pulsar.WithBlobPlugin(cfg.BlobPlugin),
		pulsar.WithMetadataPlugin(cfg.MetadataPlugin),
		pulsar.WithPrometheusRegistry(promRegistry),
		pulsar.WithTracing(cfg.Tracing),
		pulsar.WithTracingStdout(cfg.TracingStdout),
		pulsar.WithShutdownTimeout(shutdownTimeout),
		pulsar.WithTokenMint(tokenMint, cfg.TokenDecimals),
		pulsar.WithMintAuthority(mintAuthority),
		pulsar.WithPolicy(cfg.Policy),
		pulsar.WithBadgeMetadata(cfg.BadgeName, cfg.BadgeSymbol, cfg.BadgeUri),
		pulsar.WithApiMaxConnections(cfg.ApiMaxConnections),
		pulsar.WithApiReuseAddress(cfg.ApiReuseAddress),
	}
	if cfg.ApiPort > 0 {
		opts = append(
			opts,
			pulsar.WithApiListenAddress(
				listenAddress(cfg.BindAddr, cfg.ApiPort),
			),
		)
	}
	n, err := pulsar.New(pulsar.NewConfig(opts...))
	if err != nil {
		return nil, 0, err
	}
	return n, shutdownTimeout, nil
}

func listenAddress(bindAddr string, port uint) string {
	return net.JoinHostPort(bindAddr, strconv.FormatUint(uint64(port), 10))
}

// Run starts the node and the metrics listener and blocks until a signal
// is received or either of them fails
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	n, shutdownTimeout, err := NewNode(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Metrics listener
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              listenAddress(cfg.BindAddr, cfg.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(signalCtx)
	if cfg.MetricsPort > 0 {
		logger.Info(
			"serving prometheus metrics on "+metricsServer.Addr,
			"component", "node",
		)
		g.Go(func() error {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return n.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if signalCtx.Err() != nil {
			logger.Info(
				"signal received, initiating graceful shutdown",
				"component", "node",
			)
		}
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		var err error
		//nolint:contextcheck
		if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
			err = errors.Join(err, fmt.Errorf("metrics server shutdown: %w", shutdownErr))
		}
		if stopErr := n.Stop(); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
		return err
	})

	// Run returns nil when its context ends, so a clean exit only happens
	// through a signal
	if err := g.Wait(); err != nil {
		logger.Error("node error", "component", "node", "error", err)
		return err
	}
	logger.Info("shutdown complete", "component", "node")
	return nil
}
