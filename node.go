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

// Package pulsar wires the governance authority together with its storage,
// token ledger, badge issuer, event bus and HTTP API.
package pulsar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/raulk/clock"

	"github.com/blinklabs-io/pulsar/api"
	"github.com/blinklabs-io/pulsar/badge"
	"github.com/blinklabs-io/pulsar/database"
	"github.com/blinklabs-io/pulsar/event"
	"github.com/blinklabs-io/pulsar/governance"
	"github.com/blinklabs-io/pulsar/token"
)

type Node struct {
	db            *database.Database
	eventBus      *event.EventBus
	ledger        *token.Ledger
	badges        *badge.Issuer
	authority     *governance.Authority
	api           *api.Server
	cancel        context.CancelFunc
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	mu            sync.Mutex
	started       bool
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.clock == nil {
		cfg.clock = clock.New()
	}
	n := &Node{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		done:     make(chan struct{}),
	}
	return n, nil
}

// Run starts the node and blocks until ctx is cancelled or Stop is called
func (n *Node) Run(ctx context.Context) error {
	if err := n.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-n.done:
	}
	return nil
}

// Start opens the database and brings up every component. Start may only
// be called once
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return errors.New("node already started")
	}
	n.started = true
	ctx, n.cancel = context.WithCancel(ctx)
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load database
	dbNeedsRecovery := false
	db, err := database.New(&database.Config{
		DataDir:        n.config.dataDir,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
	})
	if db == nil {
		if err == nil {
			err = errors.New("empty database returned")
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		n.config.logger.Warn(
			"database initialization error, needs recovery",
			"component", "node",
			"error", err,
		)
		dbNeedsRecovery = true
	}
	n.ledger = token.New(db, token.WithLogger(n.config.logger))
	if err := n.ensureTokenMint(); err != nil {
		return err
	}
	badgeOpts := []badge.IssuerOptionFunc{badge.WithLogger(n.config.logger)}
	if n.config.badgeName != "" {
		badgeOpts = append(
			badgeOpts,
			badge.WithMetadata(
				n.config.badgeName,
				n.config.badgeSymbol,
				n.config.badgeUri,
			),
		)
	}
	n.badges = badge.New(db, n.ledger, badgeOpts...)
	n.authority, err = governance.New(
		db,
		n.ledger,
		n.badges,
		governance.WithLogger(n.config.logger),
		governance.WithPromRegistry(n.config.promRegistry),
		governance.WithEventBus(n.eventBus),
		governance.WithClock(n.config.clock),
		governance.WithPolicy(n.config.policy),
	)
	if err != nil {
		return fmt.Errorf("failed to load governance authority: %w", err)
	}
	// Run DB recovery if needed
	if dbNeedsRecovery {
		if err := n.authority.Reindex(ctx); err != nil {
			return fmt.Errorf("failed to recover database: %w", err)
		}
	}
	// Configure API
	if n.config.apiListenAddress != "" {
		n.api = api.New(
			api.Config{
				ListenAddress:  n.config.apiListenAddress,
				MaxConnections: n.config.apiMaxConnections,
				ReuseAddress:   n.config.apiReuseAddress,
			},
			n.authority,
			n.config.logger,
			api.WithPromRegistry(n.config.promRegistry),
			api.WithClock(n.config.clock),
		)
		if err := n.api.Start(ctx); err != nil {
			return err
		}
	}
	n.config.logger.Info(
		"governance authority started",
		"component", "node",
		"token_mint", n.config.tokenMint.String(),
	)
	return nil
}

// ensureTokenMint creates the configured mint on first start
func (n *Node) ensureTokenMint() error {
	_, err := n.ledger.GetMint(nil, n.config.tokenMint)
	if err == nil {
		return nil
	}
	if !errors.Is(err, token.ErrMintNotFound) {
		return fmt.Errorf("failed to load token mint: %w", err)
	}
	if n.config.mintAuthority.IsZero() {
		return fmt.Errorf(
			"token mint %s does not exist and no mint authority is configured",
			n.config.tokenMint,
		)
	}
	err = n.db.Transaction(true).Do(func(txn *database.Txn) error {
		return n.ledger.CreateMint(
			txn,
			n.config.tokenMint,
			n.config.mintAuthority,
			n.config.tokenDecimals,
		)
	})
	if err != nil {
		return fmt.Errorf("failed to create token mint: %w", err)
	}
	n.config.logger.Info(
		"created token mint",
		"component", "node",
		"token_mint", n.config.tokenMint.String(),
		"authority", n.config.mintAuthority.String(),
		"decimals", n.config.tokenDecimals,
	)
	return nil
}

// Authority returns the governance authority once the node has started
func (n *Node) Authority() *governance.Authority {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.authority
}

// EventBus returns the bus that committed governance transitions publish to
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// ApiAddr returns the bound API address, or an empty string when the API is disabled
func (n *Node) ApiAddr() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.api == nil {
		return ""
	}
	return n.api.Addr()
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	ctx, cancel := context.WithTimeout(
		context.Background(),
		n.config.shutdownTimeout,
	)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()

	var err error

	n.config.logger.Debug("starting graceful shutdown", "component", "node")

	// Phase 1: Stop accepting new work
	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}
	if n.cancel != nil {
		n.cancel()
	}

	// Phase 2: Drain event delivery
	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	// Phase 3: Call registered shutdown functions in reverse order
	for i := len(n.shutdownFuncs) - 1; i >= 0; i-- {
		if fnErr := n.shutdownFuncs[i](ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	// Phase 4: Close database
	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	n.config.logger.Debug("graceful shutdown complete", "component", "node")
	close(n.done)
	return err
}
