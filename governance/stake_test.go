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

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/governance"
)

func TestStakeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	voter := identity("staker")
	ctx := t.Context()
	env.fund(t, voter, 150)

	require.ErrorIs(t, env.auth.DepositTokens(ctx, voter, 100, 30), governance.ErrAccountNotInitialized)
	require.NoError(t, env.auth.InitializeStake(ctx, voter))
	require.ErrorIs(t, env.auth.InitializeStake(ctx, voter), governance.ErrAlreadyInitialized)
	require.ErrorIs(t, env.auth.DepositTokens(ctx, voter, 0, 30), governance.ErrInvalidAmount)
	require.ErrorIs(t, env.auth.DepositTokens(ctx, voter, 100, governance.MaxLockDays+1), governance.ErrInvalidLockDuration)
	require.ErrorIs(t, env.auth.DepositTokens(ctx, voter, 151, 30), governance.ErrInsufficientFunds)
	require.ErrorIs(t, env.auth.UnstakeTokens(ctx, voter), governance.ErrNoTokensToUnstake)

	require.NoError(t, env.auth.DepositTokens(ctx, voter, 100, 30))
	assert.Equal(t, uint64(50), env.balance(t, voter))
	assert.Equal(t, uint64(100), env.balance(t, address.Vault(env.mint)))
	rec, err := env.auth.GetStakeRecord(voter)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), rec.StakedAmount)
	assert.Equal(t, uint64(2), rec.Multiplier)
	assert.Equal(t, env.now()+30*governance.SecondsPerDay, rec.LockEndTime)

	// liquid 50, staked 100, multiplier 2 gives 7 + 10*2
	number := env.proposal(t, env.admin)
	require.NoError(t, env.auth.Vote(ctx, voter, number, true))
	yes, _ := env.tally(t, number)
	assert.Equal(t, uint64(27), yes)

	require.ErrorIs(t, env.auth.UnstakeTokens(ctx, voter), governance.ErrTokensLocked)
	require.ErrorIs(t, env.auth.DepositTokens(ctx, voter, 10, 10), governance.ErrLockDurationDowngrade)

	// Extending is allowed and restarts the lock
	env.clk.Add(24 * time.Hour)
	require.NoError(t, env.auth.DepositTokens(ctx, voter, 10, 60))
	rec, err = env.auth.GetStakeRecord(voter)
	require.NoError(t, err)
	assert.Equal(t, uint64(110), rec.StakedAmount)
	assert.Equal(t, uint64(3), rec.Multiplier)
	assert.Equal(t, uint64(60), rec.OriginalLockDays)

	env.clk.Add(59 * 24 * time.Hour)
	require.ErrorIs(t, env.auth.UnstakeTokens(ctx, voter), governance.ErrTokensLocked)
	env.clk.Add(24 * time.Hour)
	require.NoError(t, env.auth.UnstakeTokens(ctx, voter))
	assert.Equal(t, uint64(150), env.balance(t, voter))
	assert.Equal(t, uint64(0), env.balance(t, address.Vault(env.mint)))
	rec, err = env.auth.GetStakeRecord(voter)
	require.NoError(t, err)
	assert.Zero(t, rec.StakedAmount)
	require.ErrorIs(t, env.auth.UnstakeTokens(ctx, voter), governance.ErrNoTokensToUnstake)

	// After expiry a shorter lock is fine
	require.NoError(t, env.auth.DepositTokens(ctx, voter, 10, 0))
	rec, err = env.auth.GetStakeRecord(voter)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.Multiplier)
	assert.Equal(t, env.now(), rec.LockEndTime)
}

func TestRecordedPowerIsNotRecomputed(t *testing.T) {
	env := newTestEnv(t)
	voter := identity("voter")
	env.fund(t, voter, 100)
	number := env.proposal(t, env.admin)
	require.NoError(t, env.auth.Vote(t.Context(), voter, number, true))
	env.fund(t, voter, 10000)
	rec, err := env.auth.GetVoterRecord(number, voter)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), rec.VotingPower)
	yes, _ := env.tally(t, number)
	assert.Equal(t, uint64(10), yes)
}
