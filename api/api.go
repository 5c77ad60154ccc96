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

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/raulk/clock"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/net/netutil"
)

const defaultListenAddress = ":8080"

// Server is the governance HTTP API server
type Server struct {
	config     Config
	logger     *slog.Logger
	authority  Authority
	clock      clock.Clock
	metrics    *serverMetrics
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
}

type OptionFunc func(*Server)

// WithPromRegistry specifies the prometheus registry to use for request metrics
func WithPromRegistry(registry prometheus.Registerer) OptionFunc {
	return func(s *Server) {
		s.metrics.init(registry)
	}
}

// WithClock specifies the clock used to derive treasury states
func WithClock(clk clock.Clock) OptionFunc {
	return func(s *Server) {
		s.clock = clk
	}
}

func New(
	cfg Config,
	authority Authority,
	logger *slog.Logger,
	opts ...OptionFunc,
) *Server {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = defaultListenAddress
	}
	s := &Server{
		config:    cfg,
		logger:    logger,
		authority: authority,
		clock:     clock.New(),
		metrics:   &serverMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics.requests == nil {
		s.metrics.init(nil)
	}
	return s
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	// Use h2c so the gRPC health endpoint works without TLS
	return h2c.NewHandler(s.router(), &http2.Server{})
}

// Start binds the listening socket and serves in a background goroutine.
// The server stops when ctx is cancelled or Stop is called
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.mu.Unlock()

	if err := s.startServer(ctx, server); err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		return err
	}
	s.logger.Info(
		"API listener started on " + s.Addr(),
	)

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		srv := s.httpServer
		s.httpServer = nil
		s.mu.Unlock()
		if srv != nil {
			s.logger.Debug(
				"context cancelled, shutting down API server",
			)
			//nolint:contextcheck
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				30*time.Second,
			)
			defer cancel()
			//nolint:contextcheck
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error(
					"failed to shutdown API server on context cancellation",
					"error", err,
				)
			}
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv != nil {
		s.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown API server: %w", err)
		}
	}
	return nil
}

// Addr returns the bound listen address, which differs from the configured
// one when an ephemeral port was requested
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.ListenAddress
}

// startServer binds the listening socket first so port conflicts are
// reported immediately, then serves in a background goroutine
func (s *Server) startServer(ctx context.Context, server *http.Server) error {
	listenConfig := net.ListenConfig{}
	if s.config.ReuseAddress {
		listenConfig.Control = socketControl
	}
	ln, err := listenConfig.Listen(ctx, "tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	if s.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConnections)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	return nil
}
