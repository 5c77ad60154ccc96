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

package pulsar

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/raulk/clock"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/governance"
)

const (
	DefaultShutdownTimeout = 30 * time.Second
	DefaultTokenDecimals   = 6
)

type Config struct {
	promRegistry      prometheus.Registerer
	logger            *slog.Logger
	clock             clock.Clock
	dataDir           string
	blobPlugin        string
	metadataPlugin    string
	apiListenAddress  string
	badgeName         string
	badgeSymbol       string
	badgeUri          string
	policy            governance.Policy
	tokenMint         address.Address
	mintAuthority     address.Address
	apiMaxConnections int
	shutdownTimeout   time.Duration
	tokenDecimals     uint8
	apiReuseAddress   bool
	tracing           bool
	tracingStdout     bool
}

func (c *Config) validate() error {
	if c.tokenMint.IsZero() {
		return errors.New("token mint must not be the zero address")
	}
	if c.policy.MaxTitleLength <= 0 || c.policy.MaxDescriptionLength <= 0 {
		return fmt.Errorf(
			"policy string limits must be positive (title %d, description %d)",
			c.policy.MaxTitleLength,
			c.policy.MaxDescriptionLength,
		)
	}
	if c.policy.MaxLockDays == 0 {
		return errors.New("policy max lock days must be positive")
	}
	if c.apiMaxConnections < 0 {
		return fmt.Errorf(
			"invalid API max connections: %d",
			c.apiMaxConnections,
		)
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new pulsar config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		clock:           clock.New(),
		policy:          governance.DefaultPolicy(),
		tokenMint:       address.DefaultTokenMint(),
		tokenDecimals:   DefaultTokenDecimals,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithClock specifies the clock used for governance deadlines. This defaults to the system clock
func WithClock(clk clock.Clock) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clk
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) OTLP collector at localhost:4318 (or an alternate address
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies how long shutdown waits for in-flight work
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithApiListenAddress specifies the address for the HTTP API. An empty value disables the API
func WithApiListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithApiMaxConnections limits concurrent API connections. Zero means unlimited
func WithApiMaxConnections(maxConnections int) ConfigOptionFunc {
	return func(c *Config) {
		c.apiMaxConnections = maxConnections
	}
}

func WithApiReuseAddress(reuse bool) ConfigOptionFunc {
	return func(c *Config) {
		c.apiReuseAddress = reuse
	}
}

// WithTokenMint specifies the governance token mint and the decimals used if the mint has to be created
func WithTokenMint(mint address.Address, decimals uint8) ConfigOptionFunc {
	return func(c *Config) {
		c.tokenMint = mint
		c.tokenDecimals = decimals
	}
}

// WithMintAuthority specifies the identity that owns a newly created token mint. It is the only identity able
// to initialize the registry
func WithMintAuthority(authority address.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.mintAuthority = authority
	}
}

// WithPolicy specifies the governance rules. This defaults to governance.DefaultPolicy()
func WithPolicy(policy governance.Policy) ConfigOptionFunc {
	return func(c *Config) {
		c.policy = policy
	}
}

// WithBadgeMetadata overrides the metadata attached to issued badges
func WithBadgeMetadata(name string, symbol string, uri string) ConfigOptionFunc {
	return func(c *Config) {
		c.badgeName = name
		c.badgeSymbol = symbol
		c.badgeUri = uri
	}
}
