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

// Package governance implements the DAO governance authority: a state
// machine over proposals, votes, stakes, delegations, treasury escrows and
// badges. Every operation is one atomic transition against the database.
package governance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/raulk/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/database"
	"github.com/blinklabs-io/pulsar/event"
)

const tracerName = "github.com/blinklabs-io/pulsar/governance"

// TokenLedger is the fungible token collaborator. Every call takes the
// transition's transaction so token movements commit with governance state
type TokenLedger interface {
	BalanceOf(txn *database.Txn, mint address.Address, owner address.Address) (uint64, error)
	Transfer(txn *database.Txn, mint address.Address, from address.Address, to address.Address, amount uint64) error
	Mint(txn *database.Txn, mint address.Address, authority address.Address, to address.Address, amount uint64) error
	SetMintAuthority(txn *database.Txn, mint address.Address, current address.Address, next address.Address) error
	MintInfo(txn *database.Txn, mint address.Address) (address.Address, uint8, error)
}

// BadgeIssuer is the non-fungible badge collaborator
type BadgeIssuer interface {
	IssueBadge(txn *database.Txn, mint address.Address, owner address.Address, authority address.Address, issuedAt int64) error
}

// Reindexer is implemented by collaborators that mirror their own state into
// the metadata index
type Reindexer interface {
	Reindex(txn *database.Txn) error
}

type Authority struct {
	db       *database.Database
	ledger   TokenLedger
	badges   BadgeIssuer
	records  recordStore
	logger   *slog.Logger
	eventBus *event.EventBus
	clock    clock.Clock
	tracer   trace.Tracer
	metrics  authorityMetrics
	policy   Policy
	mu       sync.Mutex
}

type AuthorityOptionFunc func(*Authority)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) AuthorityOptionFunc {
	return func(a *Authority) {
		a.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to register metrics with
func WithPromRegistry(registry prometheus.Registerer) AuthorityOptionFunc {
	return func(a *Authority) {
		a.metrics.init(registry)
	}
}

// WithEventBus specifies the event bus that committed transitions publish to
func WithEventBus(eventBus *event.EventBus) AuthorityOptionFunc {
	return func(a *Authority) {
		a.eventBus = eventBus
	}
}

// WithClock specifies the clock read once per transition
func WithClock(clk clock.Clock) AuthorityOptionFunc {
	return func(a *Authority) {
		a.clock = clk
	}
}

// WithPolicy overrides the default governance policy
func WithPolicy(policy Policy) AuthorityOptionFunc {
	return func(a *Authority) {
		a.policy = policy
	}
}

// New returns an Authority backed by db, moving tokens through ledger and
// issuing badges through badges
func New(
	db *database.Database,
	ledger TokenLedger,
	badges BadgeIssuer,
	opts ...AuthorityOptionFunc,
) (*Authority, error) {
	if db == nil {
		return nil, errors.New("governance: database is required")
	}
	if ledger == nil {
		return nil, errors.New("governance: token ledger is required")
	}
	if badges == nil {
		return nil, errors.New("governance: badge issuer is required")
	}
	a := &Authority{
		db:      db,
		ledger:  ledger,
		badges:  badges,
		records: recordStore{db: db},
		policy:  DefaultPolicy(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if a.clock == nil {
		a.clock = clock.New()
	}
	if a.metrics.instructionsTotal == nil {
		// Unregistered metrics keep the code paths uniform
		a.metrics.init(nil)
	}
	return a, nil
}

// Policy returns the active governance policy
func (a *Authority) Policy() Policy {
	return a.policy
}

// txState carries one transition's transaction, clock reading and the
// events to publish once it commits
type txState struct {
	txn    *database.Txn
	now    int64
	events []pendingEvent
}

func (s *txState) emit(eventType event.EventType, data any) {
	s.events = append(s.events, pendingEvent{eventType: eventType, data: data})
}

// transition runs fn as one serialized, atomic state change
func (a *Authority) transition(
	ctx context.Context,
	name string,
	caller address.Address,
	fn func(*txState) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, span := a.tracer.Start(
		ctx,
		"governance."+name,
		trace.WithAttributes(
			attribute.String("pulsar.instruction", name),
			attribute.String("pulsar.caller", caller.String()),
		),
	)
	defer span.End()
	a.mu.Lock()
	defer a.mu.Unlock()
	start := time.Now()
	st := &txState{now: a.clock.Now().Unix()}
	err := a.db.Transaction(true).Do(func(txn *database.Txn) error {
		st.txn = txn
		return fn(st)
	})
	a.metrics.transitionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		result := ErrorCode(err)
		if result == "" {
			result = "error"
			a.logger.Error(
				"transition failed",
				"component", "governance",
				"instruction", name,
				"caller", caller.String(),
				"error", err,
			)
		} else {
			a.logger.Debug(
				"transition rejected",
				"component", "governance",
				"instruction", name,
				"caller", caller.String(),
				"tag", result,
				"error", err,
			)
		}
		a.metrics.instructionsTotal.WithLabelValues(name, result).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		return err
	}
	a.metrics.instructionsTotal.WithLabelValues(name, "ok").Inc()
	a.logger.Debug(
		"transition applied",
		"component", "governance",
		"instruction", name,
		"caller", caller.String(),
	)
	for _, evt := range st.events {
		a.observe(evt)
		if a.eventBus != nil {
			a.eventBus.Publish(evt.eventType, event.NewEvent(evt.eventType, evt.data))
		}
	}
	return nil
}

// observe updates metrics derived from committed events
func (a *Authority) observe(evt pendingEvent) {
	switch data := evt.data.(type) {
	case ProposalCreatedEvent:
		a.metrics.proposalsTotal.Inc()
	case VoteCastEvent:
		kind := "direct"
		if data.ByProxy {
			kind = "proxy"
		}
		a.metrics.votesTotal.WithLabelValues(kind).Inc()
	case CircuitBreakerEvent:
		if data.SystemEnabled {
			a.metrics.systemEnabled.Set(1)
		} else {
			a.metrics.systemEnabled.Set(0)
		}
	case InitializedEvent:
		a.metrics.systemEnabled.Set(1)
	}
}

// registry loads the global registry, failing if the authority has not been
// initialized
func (a *Authority) registry(txn *database.Txn) (*GlobalRegistry, error) {
	var reg GlobalRegistry
	found, err := a.records.get(
		txn,
		address.GlobalRegistry(),
		RecordKindGlobalRegistry,
		&reg,
	)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, reject(ErrAccountNotInitialized, "global registry")
	}
	return &reg, nil
}

// requireEnabled loads the registry and checks the circuit breaker
func (a *Authority) requireEnabled(txn *database.Txn) (*GlobalRegistry, error) {
	reg, err := a.registry(txn)
	if err != nil {
		return nil, err
	}
	if !reg.SystemEnabled {
		return nil, ErrSystemOffline
	}
	return reg, nil
}

func (a *Authority) requireAdmin(
	txn *database.Txn,
	caller address.Address,
) (*GlobalRegistry, error) {
	reg, err := a.registry(txn)
	if err != nil {
		return nil, err
	}
	if caller != reg.Admin {
		return nil, reject(ErrUnauthorized, "caller %s is not the admin", caller)
	}
	return reg, nil
}
