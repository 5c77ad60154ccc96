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

func TestGetRecord(t *testing.T) {
	env := newTestEnv(t)
	number := env.proposal(t, env.admin)

	kind, rec, err := env.auth.GetRecord(address.Proposal(number))
	require.NoError(t, err)
	assert.Equal(t, governance.RecordKindProposal, kind)
	p, ok := rec.(*governance.Proposal)
	require.True(t, ok)
	assert.Equal(t, "Upgrade", p.Title)

	kind, _, err = env.auth.GetRecord(address.GlobalRegistry())
	require.NoError(t, err)
	assert.Equal(t, "GlobalRegistry", kind.String())

	_, _, err = env.auth.GetRecord(address.Proposal(42))
	require.ErrorIs(t, err, governance.ErrAccountNotInitialized)
}

func TestListProposalsActiveOnly(t *testing.T) {
	env := newTestEnv(t)
	first := env.proposal(t, env.admin)
	env.clk.Add(30 * time.Minute)
	second := env.proposal(t, env.admin)
	env.clk.Add(45 * time.Minute)

	all, err := env.auth.ListProposals(false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first, all[0].Number)
	active, err := env.auth.ListProposals(true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second, active[0].Number)
}

func TestReindex(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	voter := identity("voter")
	proxy := identity("proxy")
	env.fund(t, voter, 400)
	require.NoError(t, env.auth.RegisterDelegate(ctx, env.admin, proxy))
	number := env.proposal(t, env.admin)
	require.NoError(t, env.auth.Vote(ctx, voter, number, true))
	require.NoError(t, env.auth.InitializeStake(ctx, voter))
	require.NoError(t, env.auth.DepositTokens(ctx, voter, 100, 30))

	require.NoError(t, env.db.Metadata().ResetIndex(nil))
	proposals, err := env.auth.ListProposals(false)
	require.NoError(t, err)
	assert.Empty(t, proposals)
	holders, err := env.auth.TopHolders(10)
	require.NoError(t, err)
	assert.Empty(t, holders)

	require.NoError(t, env.auth.Reindex(ctx))
	proposals, err = env.auth.ListProposals(false)
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, uint64(20), proposals[0].Yes)
	votes, err := env.auth.ListVotes(number)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, voter, votes[0].Voter)
	delegates, err := env.auth.ListDelegates()
	require.NoError(t, err)
	require.Len(t, delegates, 1)
	board, err := env.auth.Leaderboard(5)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, uint64(10), board[0].Score)
	holders, err = env.auth.TopHolders(10)
	require.NoError(t, err)
	require.Len(t, holders, 2)
	assert.Equal(t, voter, holders[0].Owner)
	assert.Equal(t, uint64(300), holders[0].Amount)
	assert.Equal(t, address.Vault(env.mint), holders[1].Owner)
}
