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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/pulsar/governance"
)

const testTimelock = 600

func createTreasuryProposal(t *testing.T, env *testEnv, amount uint64) uint64 {
	t.Helper()
	number, err := env.auth.CreateTreasuryProposal(
		t.Context(),
		identity("author"),
		governance.TreasuryProposalArgs{
			Title:           "Fund the grant",
			Description:     "Pay the grantee",
			Deadline:        env.now() + 3600,
			Amount:          amount,
			Destination:     identity("grantee"),
			TimelockSeconds: testTimelock,
		},
	)
	require.NoError(t, err)
	return number
}

func TestTreasuryEscrow(t *testing.T) {
	env := newTestEnv(t)
	author := identity("author")
	env.fund(t, author, 1000)
	number := createTreasuryProposal(t, env, 400)
	assert.Equal(t, uint64(600), env.balance(t, author))
	escrow, err := env.auth.GetEscrowBalance(number)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), escrow)
	p, err := env.auth.GetProposal(number)
	require.NoError(t, err)
	assert.True(t, p.IsTreasury())
	assert.Equal(t, uint64(400), p.TransferAmount)

	// A failed escrow leaves the proposal count untouched
	_, err = env.auth.CreateTreasuryProposal(t.Context(), author, governance.TreasuryProposalArgs{
		Title:       "Too much",
		Deadline:    env.now() + 3600,
		Amount:      10000,
		Destination: identity("grantee"),
	})
	require.ErrorIs(t, err, governance.ErrInsufficientFunds)
	reg, err := env.auth.GetGlobalRegistry()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), reg.ProposalCount)
	assert.Equal(t, uint64(600), env.balance(t, author))

	_, err = env.auth.CreateTreasuryProposal(t.Context(), author, governance.TreasuryProposalArgs{
		Title:       "Nothing",
		Deadline:    env.now() + 3600,
		Destination: identity("grantee"),
	})
	require.ErrorIs(t, err, governance.ErrInvalidAmount)
	_, err = env.auth.CreateTreasuryProposal(t.Context(), author, governance.TreasuryProposalArgs{
		Title:    "Nowhere",
		Deadline: env.now() + 3600,
		Amount:   1,
	})
	require.ErrorIs(t, err, governance.ErrInvalidArgument)
}

func TestTreasuryExecute(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	author := identity("author")
	grantee := identity("grantee")
	voter := identity("voter")
	env.fund(t, author, 1000)
	env.fund(t, voter, 100)
	number := createTreasuryProposal(t, env, 400)
	require.NoError(t, env.auth.Vote(ctx, voter, number, true))

	p, err := env.auth.GetProposal(number)
	require.NoError(t, err)
	assert.Equal(t, governance.TreasuryStateOpen, p.TreasuryState(env.now()))
	require.ErrorIs(t, env.auth.ExecuteProposal(ctx, voter, number), governance.ErrProposalVotingNotEnded)

	env.clk.Add(time.Hour)
	assert.Equal(t, governance.TreasuryStatePendingTimelock, p.TreasuryState(env.now()))
	require.ErrorIs(t, env.auth.ExecuteProposal(ctx, voter, number), governance.ErrTimelockNotPassed)
	require.ErrorIs(t, env.auth.Vote(ctx, voter, number, false), governance.ErrPollExpired)

	env.clk.Add(testTimelock * time.Second)
	assert.Equal(t, governance.TreasuryStateExecutable, p.TreasuryState(env.now()))
	require.ErrorIs(t, env.auth.ReclaimProposalFunds(ctx, author, number), governance.ErrProposalPassed)

	// Anyone may trigger execution
	require.NoError(t, env.auth.ExecuteProposal(ctx, voter, number))
	assert.Equal(t, uint64(400), env.balance(t, grantee))
	escrow, err := env.auth.GetEscrowBalance(number)
	require.NoError(t, err)
	assert.Zero(t, escrow)
	p, err = env.auth.GetProposal(number)
	require.NoError(t, err)
	assert.True(t, p.Executed)
	assert.Equal(t, governance.TreasuryStateExecuted, p.TreasuryState(env.now()))

	require.ErrorIs(t, env.auth.ExecuteProposal(ctx, voter, number), governance.ErrAlreadyExecuted)
	require.ErrorIs(t, env.auth.ReclaimProposalFunds(ctx, author, number), governance.ErrAlreadyExecuted)
	assert.Equal(t, uint64(400), env.balance(t, grantee))
}

func TestTreasuryReclaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	author := identity("author")
	env.fund(t, author, 1000)
	number := createTreasuryProposal(t, env, 400)
	env.clk.Add(time.Hour + testTimelock*time.Second)

	// A tie does not pass
	require.ErrorIs(t, env.auth.ExecuteProposal(ctx, author, number), governance.ErrProposalNotApproved)
	require.ErrorIs(
		t,
		env.auth.ReclaimProposalFunds(ctx, identity("grantee"), number),
		governance.ErrUnauthorized,
	)
	require.NoError(t, env.auth.ReclaimProposalFunds(ctx, author, number))
	assert.Equal(t, uint64(1000), env.balance(t, author))
	p, err := env.auth.GetProposal(number)
	require.NoError(t, err)
	assert.Equal(t, governance.TreasuryStateReclaimed, p.TreasuryState(env.now()))
	require.ErrorIs(t, env.auth.ReclaimProposalFunds(ctx, author, number), governance.ErrAlreadyExecuted)
	require.ErrorIs(t, env.auth.ExecuteProposal(ctx, author, number), governance.ErrAlreadyExecuted)
}

func TestTreasuryRequiresTreasuryProposal(t *testing.T) {
	env := newTestEnv(t)
	number := env.proposal(t, env.admin)
	env.clk.Add(2 * time.Hour)
	require.ErrorIs(
		t,
		env.auth.ExecuteProposal(t.Context(), env.admin, number),
		governance.ErrNotTreasuryProposal,
	)
	require.ErrorIs(
		t,
		env.auth.ReclaimProposalFunds(t.Context(), env.admin, number),
		governance.ErrNotTreasuryProposal,
	)
	p, err := env.auth.GetProposal(number)
	require.NoError(t, err)
	assert.Equal(t, governance.TreasuryStateClosed, p.TreasuryState(env.now()))
}

func TestTreasuryCircuitBreaker(t *testing.T) {
	env := newTestEnv(t)
	author := identity("author")
	env.fund(t, author, 1000)
	number := createTreasuryProposal(t, env, 400)
	env.clk.Add(time.Hour + testTimelock*time.Second)
	require.NoError(t, env.auth.ToggleCircuitBreaker(t.Context(), env.admin))
	require.ErrorIs(
		t,
		env.auth.ReclaimProposalFunds(t.Context(), author, number),
		governance.ErrSystemOffline,
	)
	require.NoError(t, env.auth.ToggleCircuitBreaker(t.Context(), env.admin))
	require.NoError(t, env.auth.ReclaimProposalFunds(t.Context(), author, number))
}
