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

package governance_test

import (
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/badge"
	"github.com/blinklabs-io/pulsar/database"
	"github.com/blinklabs-io/pulsar/governance"
	"github.com/blinklabs-io/pulsar/token"
)

const testStartTime = 1_700_000_000

type testEnv struct {
	db     *database.Database
	ledger *token.Ledger
	auth   *governance.Authority
	clk    *clock.Mock
	admin  address.Address
	mint   address.Address
}

type testEnvConfig struct {
	opts          []governance.AuthorityOptionFunc
	decimals      uint8
	uninitialized bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, testEnvConfig{})
}

func newTestEnvWithConfig(t *testing.T, cfg testEnvConfig) *testEnv {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	env := &testEnv{
		db:     db,
		ledger: token.New(db),
		clk:    clock.NewMock(),
		admin:  identity("admin"),
		mint:   address.DefaultTokenMint(),
	}
	env.clk.Set(time.Unix(testStartTime, 0))
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return env.ledger.CreateMint(txn, env.mint, env.admin, cfg.decimals)
	}))
	opts := append(
		[]governance.AuthorityOptionFunc{governance.WithClock(env.clk)},
		cfg.opts...,
	)
	env.auth, err = governance.New(db, env.ledger, badge.New(db, env.ledger), opts...)
	require.NoError(t, err)
	if !cfg.uninitialized {
		require.NoError(t, env.auth.Initialize(t.Context(), env.admin, env.mint))
	}
	return env
}

func identity(name string) address.Address {
	return address.Derive([]byte("test-identity"), []byte(name))
}

func (e *testEnv) now() int64 {
	return e.clk.Now().Unix()
}

func (e *testEnv) fund(t *testing.T, who address.Address, amount uint64) {
	t.Helper()
	require.NoError(t, e.auth.AdminMint(t.Context(), e.admin, who, amount))
}

func (e *testEnv) balance(t *testing.T, who address.Address) uint64 {
	t.Helper()
	ret, err := e.ledger.BalanceOf(nil, e.mint, who)
	require.NoError(t, err)
	return ret
}

func (e *testEnv) proposal(t *testing.T, author address.Address) uint64 {
	t.Helper()
	number, err := e.auth.CreateProposal(
		t.Context(),
		author,
		"Upgrade",
		"Ship the upgrade",
		e.now()+3600,
	)
	require.NoError(t, err)
	return number
}

func (e *testEnv) tally(t *testing.T, number uint64) (uint64, uint64) {
	t.Helper()
	p, err := e.auth.GetProposal(number)
	require.NoError(t, err)
	return p.Yes, p.No
}
