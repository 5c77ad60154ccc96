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

func TestClaimBadge(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	voter := identity("voter")
	env.fund(t, voter, 100)

	require.ErrorIs(t, env.auth.ClaimBadge(ctx, voter), governance.ErrAccountNotInitialized)
	for i := range 5 {
		number := env.proposal(t, env.admin)
		require.NoError(t, env.auth.Vote(ctx, voter, number, i%2 == 0))
		if i == 3 {
			require.ErrorIs(t, env.auth.ClaimBadge(ctx, voter), governance.ErrInsufficientScore)
		}
	}
	stats, err := env.auth.GetUserStats(voter)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), stats.Score)
	assert.Equal(t, uint64(5), stats.ProposalCount)

	require.NoError(t, env.auth.ClaimBadge(ctx, voter))
	mint := address.BadgeMint(voter)
	held, err := env.ledger.BalanceOf(nil, mint, voter)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), held)
	info, err := env.ledger.GetMint(nil, mint)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), info.Decimals)
	assert.Equal(t, uint64(1), info.Supply)
	assert.True(t, info.Authority.IsZero())

	require.ErrorIs(t, env.auth.ClaimBadge(ctx, voter), governance.ErrAlreadyClaimed)
	stats, err = env.auth.GetUserStats(voter)
	require.NoError(t, err)
	assert.True(t, stats.BadgeClaimed)
	board, err := env.auth.Leaderboard(10)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.True(t, board[0].BadgeClaimed)
}
