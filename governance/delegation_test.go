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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/governance"
)

func TestDelegateRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	proxy := identity("proxy")
	delegator := identity("delegator")

	require.ErrorIs(t, env.auth.RegisterDelegate(ctx, proxy, proxy), governance.ErrUnauthorized)
	require.NoError(t, env.auth.RegisterDelegate(ctx, env.admin, proxy))
	require.ErrorIs(t, env.auth.RegisterDelegate(ctx, env.admin, proxy), governance.ErrAlreadyInitialized)

	require.ErrorIs(t, env.auth.DelegateVote(ctx, delegator, delegator), governance.ErrDelegationLoop)
	require.ErrorIs(t, env.auth.DelegateVote(ctx, delegator, identity("stranger")), governance.ErrInvalidDelegate)
	require.ErrorIs(t, env.auth.DelegateVote(ctx, proxy, identity("x")), governance.ErrDelegateCannotDelegate)
	require.NoError(t, env.auth.DelegateVote(ctx, delegator, proxy))
	require.ErrorIs(t, env.auth.RegisterDelegate(ctx, env.admin, delegator), governance.ErrDelegatorCannotBeDelegate)

	delegates, err := env.auth.ListDelegates()
	require.NoError(t, err)
	require.Len(t, delegates, 1)
	assert.Equal(t, proxy, delegates[0].Authority)
	delegators, err := env.auth.ListDelegators(proxy)
	require.NoError(t, err)
	require.Len(t, delegators, 1)
	assert.Equal(t, delegator, delegators[0].Delegator)

	require.NoError(t, env.auth.RevokeDelegation(ctx, delegator))
	require.ErrorIs(t, env.auth.RevokeDelegation(ctx, delegator), governance.ErrAccountNotInitialized)
	delegators, err = env.auth.ListDelegators(proxy)
	require.NoError(t, err)
	assert.Empty(t, delegators)

	require.ErrorIs(t, env.auth.RemoveDelegate(ctx, proxy, proxy), governance.ErrUnauthorized)
	require.NoError(t, env.auth.RemoveDelegate(ctx, env.admin, proxy))
	require.ErrorIs(t, env.auth.RemoveDelegate(ctx, env.admin, proxy), governance.ErrAccountNotInitialized)
	_, err = env.auth.GetDelegateProfile(proxy)
	require.ErrorIs(t, err, governance.ErrAccountNotInitialized)
}

func TestProxyVoting(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	proxy := identity("proxy")
	delegator := identity("delegator")
	env.fund(t, delegator, 400)
	env.fund(t, proxy, 10000)
	require.NoError(t, env.auth.RegisterDelegate(ctx, env.admin, proxy))
	require.NoError(t, env.auth.DelegateVote(ctx, delegator, proxy))
	number := env.proposal(t, env.admin)

	require.ErrorIs(t, env.auth.Vote(ctx, delegator, number, true), governance.ErrDelegatorsCannotVote)
	require.ErrorIs(
		t,
		env.auth.VoteAsProxy(ctx, identity("other"), number, delegator, true),
		governance.ErrInvalidDelegate,
	)

	// Power comes from the delegator's balance, not the proxy's
	require.NoError(t, env.auth.VoteAsProxy(ctx, proxy, number, delegator, true))
	yes, _ := env.tally(t, number)
	assert.Equal(t, uint64(20), yes)
	rec, err := env.auth.GetVoterRecord(number, delegator)
	require.NoError(t, err)
	assert.True(t, rec.VotedByProxy)
	assert.Equal(t, proxy, rec.Proxy)
	require.ErrorIs(t, env.auth.VoteAsProxy(ctx, proxy, number, delegator, true), governance.ErrAlreadyVoted)

	// The proxy earns the score
	stats, err := env.auth.GetUserStats(proxy)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), stats.Score)
	_, err = env.auth.GetUserStats(delegator)
	require.ErrorIs(t, err, governance.ErrAccountNotInitialized)

	// The proxy vote stays locked for the delegator, even after revoking
	require.ErrorIs(t, env.auth.WithdrawVote(ctx, delegator, number), governance.ErrProxyVoteLocked)
	require.NoError(t, env.auth.RevokeDelegation(ctx, delegator))
	require.ErrorIs(t, env.auth.WithdrawVote(ctx, delegator, number), governance.ErrProxyVoteLocked)
	require.ErrorIs(t, env.auth.Vote(ctx, delegator, number, false), governance.ErrProxyVoteLocked)

	require.ErrorIs(
		t,
		env.auth.WithdrawAsProxy(ctx, identity("other"), number, delegator),
		governance.ErrUnauthorized,
	)
	require.NoError(t, env.auth.WithdrawAsProxy(ctx, proxy, number, delegator))
	yes, no := env.tally(t, number)
	assert.Zero(t, yes+no)

	// With the proxy record gone the former delegator may vote directly
	require.NoError(t, env.auth.Vote(ctx, delegator, number, false))
	require.ErrorIs(t, env.auth.WithdrawAsProxy(ctx, proxy, number, delegator), governance.ErrDirectVoteExists)
}

func TestProxyCannotOverrideDirectVote(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	proxy := identity("proxy")
	delegator := identity("delegator")
	env.fund(t, delegator, 100)
	require.NoError(t, env.auth.RegisterDelegate(ctx, env.admin, proxy))
	number := env.proposal(t, env.admin)
	require.NoError(t, env.auth.Vote(ctx, delegator, number, true))
	require.NoError(t, env.auth.DelegateVote(ctx, delegator, proxy))
	require.ErrorIs(
		t,
		env.auth.VoteAsProxy(ctx, proxy, number, delegator, false),
		governance.ErrDirectVoteExists,
	)
}

func TestProxyBatchIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	proxy := identity("proxy")
	require.NoError(t, env.auth.RegisterDelegate(ctx, env.admin, proxy))
	delegators := make([]address.Address, 0, 3)
	for _, name := range []string{"d1", "d2", "d3"} {
		d := identity(name)
		env.fund(t, d, 100)
		require.NoError(t, env.auth.DelegateVote(ctx, d, proxy))
		delegators = append(delegators, d)
	}
	number := env.proposal(t, env.admin)

	require.ErrorIs(
		t,
		env.auth.VoteAsProxyBatch(ctx, proxy, number, true, nil),
		governance.ErrInvalidArgument,
	)
	bad := append(append([]address.Address{}, delegators...), identity("not-delegating"))
	err := env.auth.VoteAsProxyBatch(ctx, proxy, number, true, bad)
	require.ErrorIs(t, err, governance.ErrInvalidDelegate)
	yes, no := env.tally(t, number)
	assert.Zero(t, yes+no)
	for _, d := range delegators {
		_, err := env.auth.GetVoterRecord(number, d)
		require.ErrorIs(t, err, governance.ErrAccountNotInitialized)
	}

	require.NoError(t, env.auth.VoteAsProxyBatch(ctx, proxy, number, true, delegators))
	yes, _ = env.tally(t, number)
	assert.Equal(t, uint64(30), yes)
	votes, err := env.auth.ListVotes(number)
	require.NoError(t, err)
	require.Len(t, votes, 3)
	for _, v := range votes {
		assert.True(t, v.VotedByProxy)
		assert.Equal(t, proxy, v.Proxy)
	}
}
