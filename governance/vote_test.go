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
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/pulsar/event"
	"github.com/blinklabs-io/pulsar/governance"
)

func TestCreateProposalValidation(t *testing.T) {
	env := newTestEnv(t)
	author := identity("author")
	ctx := t.Context()
	_, err := env.auth.CreateProposal(ctx, author, "", "d", env.now()+60)
	require.ErrorIs(t, err, governance.ErrInvalidArgument)
	_, err = env.auth.CreateProposal(ctx, author, strings.Repeat("x", 101), "d", env.now()+60)
	require.ErrorIs(t, err, governance.ErrInvalidArgument)
	_, err = env.auth.CreateProposal(ctx, author, "t", strings.Repeat("x", 501), env.now()+60)
	require.ErrorIs(t, err, governance.ErrInvalidArgument)
	_, err = env.auth.CreateProposal(ctx, author, "t", "d", env.now())
	require.ErrorIs(t, err, governance.ErrInvalidDeadline)

	first := env.proposal(t, author)
	second := env.proposal(t, author)
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)
	reg, err := env.auth.GetGlobalRegistry()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), reg.ProposalCount)
	p, err := env.auth.GetProposal(second)
	require.NoError(t, err)
	assert.Equal(t, author, p.Author)
	assert.Equal(t, governance.TreasuryStateOpen, p.TreasuryState(env.now()))
}

func TestAdminOnlyProposals(t *testing.T) {
	policy := governance.DefaultPolicy()
	policy.AdminOnlyProposals = true
	env := newTestEnvWithConfig(t, testEnvConfig{
		opts: []governance.AuthorityOptionFunc{governance.WithPolicy(policy)},
	})
	_, err := env.auth.CreateProposal(t.Context(), identity("user"), "t", "d", env.now()+60)
	require.ErrorIs(t, err, governance.ErrUnauthorized)
	env.proposal(t, env.admin)
}

func TestVoteSwitchWithdrawScenario(t *testing.T) {
	env := newTestEnv(t)
	voter := identity("voter")
	env.fund(t, voter, 100)
	number := env.proposal(t, env.admin)
	ctx := t.Context()

	require.NoError(t, env.auth.Vote(ctx, voter, number, true))
	yes, no := env.tally(t, number)
	assert.Equal(t, uint64(10), yes)
	assert.Equal(t, uint64(0), no)

	require.ErrorIs(t, env.auth.Vote(ctx, voter, number, true), governance.ErrAlreadyVoted)

	require.NoError(t, env.auth.Vote(ctx, voter, number, false))
	yes, no = env.tally(t, number)
	assert.Equal(t, uint64(0), yes)
	assert.Equal(t, uint64(10), no)

	require.NoError(t, env.auth.WithdrawVote(ctx, voter, number))
	yes, no = env.tally(t, number)
	assert.Zero(t, yes)
	assert.Zero(t, no)
	_, err := env.auth.GetVoterRecord(number, voter)
	require.ErrorIs(t, err, governance.ErrAccountNotInitialized)
	require.ErrorIs(t, env.auth.WithdrawVote(ctx, voter, number), governance.ErrAccountNotInitialized)

	// One score credit for the first cast only
	stats, err := env.auth.GetUserStats(voter)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), stats.Score)
	assert.Equal(t, uint64(1), stats.ProposalCount)
	assert.Equal(t, env.now(), stats.LastVoteTime)
}

func TestSwitchRecomputesPower(t *testing.T) {
	env := newTestEnv(t)
	voter := identity("voter")
	env.fund(t, voter, 100)
	number := env.proposal(t, env.admin)
	require.NoError(t, env.auth.Vote(t.Context(), voter, number, true))
	env.fund(t, voter, 300)
	require.NoError(t, env.auth.Vote(t.Context(), voter, number, false))
	yes, no := env.tally(t, number)
	assert.Equal(t, uint64(0), yes)
	assert.Equal(t, uint64(20), no)
	rec, err := env.auth.GetVoterRecord(number, voter)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), rec.VotingPower)
	assert.False(t, rec.Vote)
}

func TestVoteUpdatesDisabled(t *testing.T) {
	policy := governance.DefaultPolicy()
	policy.AllowVoteSwitch = false
	env := newTestEnvWithConfig(t, testEnvConfig{
		opts: []governance.AuthorityOptionFunc{governance.WithPolicy(policy)},
	})
	voter := identity("voter")
	env.fund(t, voter, 100)
	number := env.proposal(t, env.admin)
	require.NoError(t, env.auth.Vote(t.Context(), voter, number, true))
	require.ErrorIs(
		t,
		env.auth.Vote(t.Context(), voter, number, false),
		governance.ErrVoteUpdatesDisabled,
	)
}

func TestVoteRejections(t *testing.T) {
	env := newTestEnv(t)
	voter := identity("voter")
	number := env.proposal(t, env.admin)
	ctx := t.Context()
	require.ErrorIs(t, env.auth.Vote(ctx, voter, number, true), governance.ErrNoVotingPower)
	require.ErrorIs(t, env.auth.Vote(ctx, voter, 99, true), governance.ErrAccountNotInitialized)
	env.fund(t, voter, 1)
	env.clk.Add(time.Hour)
	require.ErrorIs(t, env.auth.Vote(ctx, voter, number, true), governance.ErrPollExpired)
}

func TestTallyConservation(t *testing.T) {
	env := newTestEnv(t)
	number := env.proposal(t, env.admin)
	ctx := t.Context()
	voters := make([]string, 0, 6)
	for i, name := range []string{"a", "b", "c", "d", "e", "f"} {
		env.fund(t, identity(name), uint64((i+1)*(i+1)*25))
		voters = append(voters, name)
	}
	steps := []struct {
		voter    string
		withdraw bool
		yes      bool
	}{
		{voter: "a", yes: true},
		{voter: "b", yes: false},
		{voter: "c", yes: true},
		{voter: "a", yes: false},
		{voter: "d", yes: true},
		{voter: "b", withdraw: true},
		{voter: "e", yes: false},
		{voter: "c", yes: false},
		{voter: "f", yes: true},
		{voter: "e", withdraw: true},
		{voter: "b", yes: true},
	}
	for _, step := range steps {
		if step.withdraw {
			require.NoError(t, env.auth.WithdrawVote(ctx, identity(step.voter), number))
		} else {
			require.NoError(t, env.auth.Vote(ctx, identity(step.voter), number, step.yes))
		}
		var sumYes, sumNo uint64
		for _, name := range voters {
			rec, err := env.auth.GetVoterRecord(number, identity(name))
			if err != nil {
				require.ErrorIs(t, err, governance.ErrAccountNotInitialized)
				continue
			}
			if rec.Vote {
				sumYes += rec.VotingPower
			} else {
				sumNo += rec.VotingPower
			}
		}
		yes, no := env.tally(t, number)
		assert.Equal(t, sumYes, yes)
		assert.Equal(t, sumNo, no)
	}
	votes, err := env.auth.ListVotes(number)
	require.NoError(t, err)
	assert.Len(t, votes, 5)
}

func TestConcurrentFirstVotes(t *testing.T) {
	env := newTestEnv(t)
	voter := identity("voter")
	env.fund(t, voter, 100)
	number := env.proposal(t, env.admin)
	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = env.auth.Vote(t.Context(), voter, number, true)
		}()
	}
	wg.Wait()
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, governance.ErrAlreadyVoted)
	}
	assert.Equal(t, 1, succeeded)
	yes, _ := env.tally(t, number)
	assert.Equal(t, uint64(10), yes)
}

func TestVoteCastEvent(t *testing.T) {
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(bus.Stop)
	env := newTestEnvWithConfig(t, testEnvConfig{
		opts: []governance.AuthorityOptionFunc{governance.WithEventBus(bus)},
	})
	_, evtCh := bus.Subscribe(governance.VoteCastEventType)
	voter := identity("voter")
	env.fund(t, voter, 100)
	number := env.proposal(t, env.admin)
	require.NoError(t, env.auth.Vote(t.Context(), voter, number, true))
	select {
	case evt := <-evtCh:
		data, ok := evt.Data.(governance.VoteCastEvent)
		require.True(t, ok)
		assert.Equal(t, voter, data.Voter)
		assert.Equal(t, number, data.Proposal)
		assert.Equal(t, uint64(10), data.VotingPower)
		assert.Equal(t, uint64(1), data.Multiplier)
		assert.False(t, data.ByProxy)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for vote event")
	}
	// Rejected transitions publish nothing
	require.Error(t, env.auth.Vote(t.Context(), voter, number, true))
	select {
	case <-evtCh:
		t.Fatal("unexpected event for rejected vote")
	default:
	}
}
