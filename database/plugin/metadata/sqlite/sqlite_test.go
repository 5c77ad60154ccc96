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

package sqlite_test

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/pulsar/database/models"
	"github.com/blinklabs-io/pulsar/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/pulsar/database/types"
)

func newTestStore(t *testing.T) *sqlite.MetadataStoreSqlite {
	t.Helper()
	store, err := sqlite.New("", nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func addr(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	store1 := newTestStore(t)
	store2 := newTestStore(t)
	require.NoError(t, store1.SetProposal(&models.Proposal{
		Number:  1,
		Address: addr(1),
		Author:  addr(2),
		Title:   "one",
	}, nil))
	proposals, err := store2.GetProposals(false, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, proposals)
}

func TestProposalUpsertAndActiveFilter(t *testing.T) {
	store := newTestStore(t)
	for i, deadline := range []int64{100, 200, 300} {
		require.NoError(t, store.SetProposal(&models.Proposal{
			Number:   uint64(i + 1),
			Address:  addr(byte(i + 1)),
			Author:   addr(9),
			Title:    "proposal",
			Deadline: deadline,
		}, nil))
	}
	require.NoError(t, store.SetProposal(&models.Proposal{
		Number:   1,
		Address:  addr(1),
		Author:   addr(9),
		Title:    "proposal",
		Deadline: 100,
		Yes:      types.Uint64(42),
	}, nil))
	all, err := store.GetProposals(false, 0, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, types.Uint64(42), all[0].Yes)
	active, err := store.GetProposals(true, 200, nil)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, uint64(3), active[0].Number)
}

func TestVotesTxnRollback(t *testing.T) {
	store := newTestStore(t)
	txn := store.Transaction()
	require.NoError(t, store.SetVote(&models.Vote{
		ProposalNumber: 1,
		Voter:          addr(1),
		Vote:           true,
		VotingPower:    10,
	}, txn))
	require.NoError(t, txn.Rollback())
	votes, err := store.GetVotes(1, nil)
	require.NoError(t, err)
	assert.Empty(t, votes)
	// Using a finished transaction fails
	require.ErrorIs(t, store.SetVote(&models.Vote{}, txn), types.ErrTxnFinished)

	txn = store.Transaction()
	require.NoError(t, store.SetVote(&models.Vote{
		ProposalNumber: 1,
		Voter:          addr(1),
		Vote:           true,
		VotingPower:    10,
	}, txn))
	require.NoError(t, store.SetVote(&models.Vote{
		ProposalNumber: 1,
		Voter:          addr(1),
		Vote:           false,
		VotingPower:    12,
	}, txn))
	require.NoError(t, txn.Commit())
	votes, err = store.GetVotes(1, nil)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.False(t, votes[0].Vote)
	assert.Equal(t, types.Uint64(12), votes[0].VotingPower)

	require.NoError(t, store.DeleteVote(1, addr(1), nil))
	votes, err = store.GetVotes(1, nil)
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func TestDelegationIndex(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetDelegateProfile(&models.DelegateProfile{
		Authority: addr(1),
		IsActive:  true,
	}, nil))
	require.NoError(t, store.SetDelegation(&models.Delegation{
		Delegator:      addr(2),
		DelegateTarget: addr(1),
	}, nil))
	require.NoError(t, store.SetDelegation(&models.Delegation{
		Delegator:      addr(3),
		DelegateTarget: addr(1),
	}, nil))
	delegates, err := store.GetDelegateProfiles(nil)
	require.NoError(t, err)
	assert.Len(t, delegates, 1)
	delegators, err := store.GetDelegators(addr(1), nil)
	require.NoError(t, err)
	assert.Len(t, delegators, 2)
	require.NoError(t, store.DeleteDelegation(addr(2), nil))
	require.NoError(t, store.DeleteDelegateProfile(addr(1), nil))
	delegators, err = store.GetDelegators(addr(1), nil)
	require.NoError(t, err)
	assert.Len(t, delegators, 1)
	delegates, err = store.GetDelegateProfiles(nil)
	require.NoError(t, err)
	assert.Empty(t, delegates)
}

func TestLeaderboardAndReset(t *testing.T) {
	store := newTestStore(t)
	for i, score := range []uint64{10, 50, 30} {
		require.NoError(t, store.SetUserStats(&models.UserStats{
			User:  addr(byte(i + 1)),
			Score: score,
		}, nil))
	}
	board, err := store.GetLeaderboard(2, nil)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, uint64(50), board[0].Score)
	assert.Equal(t, uint64(30), board[1].Score)

	require.NoError(t, store.SetTokenBalance(&models.TokenBalance{
		Mint:   addr(7),
		Owner:  addr(1),
		Amount: 5,
	}, nil))
	require.NoError(t, store.SetTokenBalance(&models.TokenBalance{
		Mint:   addr(7),
		Owner:  addr(1),
		Amount: 9,
	}, nil))
	holders, err := store.GetTokenHolders(addr(7), 10, nil)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, types.Uint64(9), holders[0].Amount)

	require.NoError(t, store.ResetIndex(nil))
	board, err = store.GetLeaderboard(10, nil)
	require.NoError(t, err)
	assert.Empty(t, board)
}

func TestCommitTimestamp(t *testing.T) {
	store := newTestStore(t)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Zero(t, ts)
	txn := store.Transaction()
	require.NoError(t, store.SetCommitTimestamp(99, txn))
	require.NoError(t, txn.Commit())
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(99), ts)
}

func TestFileStoreWithMetrics(t *testing.T) {
	dir := t.TempDir()
	store, err := sqlite.New(dir, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, store.SetStake(&models.Stake{
		Owner:        addr(1),
		StakedAmount: 100,
		Multiplier:   2,
	}, nil))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
	assert.FileExists(t, dir+"/metadata.sqlite")
}

func TestDBStatsCollectorRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	store, err := sqlite.New("", nil, registry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	families, err := registry.Gather()
	require.NoError(t, err)
	var found bool
	for _, family := range families {
		if family.GetName() != "go_sql_open_connections" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "db_name" && label.GetValue() == "metadata" {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "expected metadata db stats to be registered")
}
