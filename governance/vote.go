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

package governance

import (
	"context"
	"errors"
	"math"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/database"
)

// power describes a voter's weight at cast time
type power struct {
	votingPower  uint64
	stakedAmount uint64
	lockDays     uint64
	multiplier   uint64
}

func (a *Authority) votingPower(
	txn *database.Txn,
	mint address.Address,
	voter address.Address,
) (power, error) {
	liquid, err := a.ledger.BalanceOf(txn, mint, voter)
	if err != nil {
		return power{}, err
	}
	ret := power{multiplier: 1}
	var stake StakeRecord
	found, err := a.records.get(txn, address.StakeRecord(voter), RecordKindStakeRecord, &stake)
	if err != nil {
		return power{}, err
	}
	if found && stake.StakedAmount > 0 {
		ret.stakedAmount = stake.StakedAmount
		ret.lockDays = stake.OriginalLockDays
		ret.multiplier = min(max(stake.Multiplier, 1), MaxMultiplier)
	}
	ret.votingPower = VotingPower(liquid, ret.stakedAmount, ret.multiplier)
	return ret, nil
}

func checkedAdd(x uint64, y uint64) (uint64, error) {
	if x > math.MaxUint64-y {
		return 0, ErrArithmeticOverflow
	}
	return x + y, nil
}

// addTally adds power to the chosen side of a proposal
func addTally(p *Proposal, yes bool, amount uint64) error {
	var err error
	if yes {
		p.Yes, err = checkedAdd(p.Yes, amount)
	} else {
		p.No, err = checkedAdd(p.No, amount)
	}
	return err
}

// subTally removes power previously added to a side. The tally always holds
// at least the recorded power of every active vote on that side
func subTally(p *Proposal, yes bool, amount uint64) error {
	side := &p.No
	if yes {
		side = &p.Yes
	}
	if *side < amount {
		return reject(ErrArithmeticOverflow, "tally underflow on proposal %d", p.Number)
	}
	*side -= amount
	return nil
}

// openProposal loads a proposal that is still accepting votes
func (a *Authority) openProposal(st *txState, number uint64) (*GlobalRegistry, *Proposal, error) {
	reg, err := a.requireEnabled(st.txn)
	if err != nil {
		return nil, nil, err
	}
	p, err := a.proposal(st.txn, number)
	if err != nil {
		return nil, nil, err
	}
	if st.now >= p.Deadline {
		return nil, nil, reject(ErrPollExpired, "proposal %d closed at %d", number, p.Deadline)
	}
	return reg, p, nil
}

func (a *Authority) voterRecord(
	txn *database.Txn,
	number uint64,
	voter address.Address,
) (*VoterRecord, bool, error) {
	var rec VoterRecord
	found, err := a.records.get(
		txn,
		address.Voter(address.Proposal(number), voter),
		RecordKindVoterRecord,
		&rec,
	)
	if err != nil {
		return nil, false, err
	}
	return &rec, found, nil
}

func (a *Authority) delegation(
	txn *database.Txn,
	delegator address.Address,
) (*DelegationRecord, bool, error) {
	var rec DelegationRecord
	found, err := a.records.get(
		txn,
		address.DelegationRecord(delegator),
		RecordKindDelegationRecord,
		&rec,
	)
	if err != nil {
		return nil, false, err
	}
	return &rec, found, nil
}

// Vote casts or switches the caller's direct vote on a proposal
func (a *Authority) Vote(
	ctx context.Context,
	caller address.Address,
	number uint64,
	yes bool,
) error {
	return a.transition(ctx, "vote", caller, func(st *txState) error {
		return a.vote(st, caller, number, yes)
	})
}

func (a *Authority) vote(
	st *txState,
	caller address.Address,
	number uint64,
	yes bool,
) error {
	reg, p, err := a.openProposal(st, number)
	if err != nil {
		return err
	}
	if _, delegated, err := a.delegation(st.txn, caller); err != nil {
		return err
	} else if delegated {
		return ErrDelegatorsCannotVote
	}
	rec, found, err := a.voterRecord(st.txn, number, caller)
	if err != nil {
		return err
	}
	if found {
		if rec.VotedByProxy {
			return ErrProxyVoteLocked
		}
		if rec.Vote == yes {
			return ErrAlreadyVoted
		}
		if !a.policy.AllowVoteSwitch {
			return ErrVoteUpdatesDisabled
		}
	}
	pow, err := a.votingPower(st.txn, reg.TokenMint, caller)
	if err != nil {
		return err
	}
	if pow.votingPower == 0 {
		return ErrNoVotingPower
	}
	if found {
		if err := subTally(p, rec.Vote, rec.VotingPower); err != nil {
			return err
		}
	}
	if err := addTally(p, yes, pow.votingPower); err != nil {
		return err
	}
	newRec := &VoterRecord{
		Proposal:       address.Proposal(number),
		ProposalNumber: number,
		Voter:          caller,
		Voted:          true,
		Vote:           yes,
		VotingPower:    pow.votingPower,
		StakedAmount:   pow.stakedAmount,
		CastAt:         st.now,
	}
	voterAddr := address.Voter(address.Proposal(number), caller)
	if found {
		err = a.records.put(st.txn, voterAddr, RecordKindVoterRecord, newRec)
	} else {
		err = a.records.create(st.txn, voterAddr, RecordKindVoterRecord, newRec)
		if errors.Is(err, database.ErrBlobKeyExists) {
			return ErrAlreadyVoted
		}
	}
	if err != nil {
		return err
	}
	if err := a.indexVote(st.txn, newRec); err != nil {
		return err
	}
	if err := a.saveProposal(st.txn, p); err != nil {
		return err
	}
	// Switching an existing vote does not earn score again
	if !found {
		if err := a.creditVote(st, caller, a.policy.VoteScore); err != nil {
			return err
		}
	}
	st.emit(VoteCastEventType, VoteCastEvent{
		Voter:        caller,
		Proposal:     number,
		Amount:       pow.stakedAmount,
		LockDuration: pow.lockDays,
		VotingPower:  pow.votingPower,
		Multiplier:   pow.multiplier,
		Vote:         yes,
	})
	return nil
}

// WithdrawVote removes the caller's direct vote and its power from the tally
func (a *Authority) WithdrawVote(
	ctx context.Context,
	caller address.Address,
	number uint64,
) error {
	return a.transition(ctx, "withdraw_vote", caller, func(st *txState) error {
		return a.withdrawVote(st, caller, number)
	})
}

func (a *Authority) withdrawVote(st *txState, caller address.Address, number uint64) error {
	_, p, err := a.openProposal(st, number)
	if err != nil {
		return err
	}
	rec, found, err := a.voterRecord(st.txn, number, caller)
	if err != nil {
		return err
	}
	if !found {
		return reject(ErrAccountNotInitialized, "no vote on proposal %d", number)
	}
	if rec.VotedByProxy {
		return ErrProxyVoteLocked
	}
	return a.removeVote(st, p, rec)
}

func (a *Authority) removeVote(st *txState, p *Proposal, rec *VoterRecord) error {
	if err := subTally(p, rec.Vote, rec.VotingPower); err != nil {
		return err
	}
	if err := a.records.delete(st.txn, address.Voter(address.Proposal(p.Number), rec.Voter)); err != nil {
		return err
	}
	if err := a.unindexVote(st.txn, p.Number, rec.Voter); err != nil {
		return err
	}
	if err := a.saveProposal(st.txn, p); err != nil {
		return err
	}
	st.emit(VoteWithdrawnEventType, VoteWithdrawnEvent{
		Voter:       rec.Voter,
		Proposal:    p.Number,
		VotingPower: rec.VotingPower,
		ByProxy:     rec.VotedByProxy,
	})
	return nil
}

// VoteAsProxy casts a vote for a delegator using the delegator's own power.
// The caller must be an active delegate the delegator points at
func (a *Authority) VoteAsProxy(
	ctx context.Context,
	caller address.Address,
	number uint64,
	delegator address.Address,
	yes bool,
) error {
	return a.transition(ctx, "vote_as_proxy", caller, func(st *txState) error {
		return a.voteAsProxy(st, caller, number, delegator, yes)
	})
}

// VoteAsProxyBatch casts proxy votes for several delegators in one atomic
// transition. Any failure leaves every vote uncast
func (a *Authority) VoteAsProxyBatch(
	ctx context.Context,
	caller address.Address,
	number uint64,
	yes bool,
	delegators []address.Address,
) error {
	return a.transition(ctx, "vote_as_proxy_batch", caller, func(st *txState) error {
		return a.voteAsProxyBatch(st, caller, number, yes, delegators)
	})
}

func (a *Authority) voteAsProxyBatch(
	st *txState,
	caller address.Address,
	number uint64,
	yes bool,
	delegators []address.Address,
) error {
	if len(delegators) == 0 {
		return reject(ErrInvalidArgument, "no delegators given")
	}
	for _, delegator := range delegators {
		if err := a.voteAsProxy(st, caller, number, delegator, yes); err != nil {
			return err
		}
	}
	return nil
}

// requireProxy checks that caller is an active delegate and that delegator
// currently delegates to caller
func (a *Authority) requireProxy(
	txn *database.Txn,
	caller address.Address,
	delegator address.Address,
) error {
	var profile DelegateProfile
	found, err := a.records.get(txn, address.DelegateProfile(caller), RecordKindDelegateProfile, &profile)
	if err != nil {
		return err
	}
	if !found || !profile.IsActive {
		return reject(ErrInvalidDelegate, "%s is not an active delegate", caller)
	}
	rec, delegated, err := a.delegation(txn, delegator)
	if err != nil {
		return err
	}
	if !delegated || rec.DelegateTarget != caller {
		return reject(ErrInvalidDelegate, "%s does not delegate to %s", delegator, caller)
	}
	return nil
}

func (a *Authority) voteAsProxy(
	st *txState,
	caller address.Address,
	number uint64,
	delegator address.Address,
	yes bool,
) error {
	reg, p, err := a.openProposal(st, number)
	if err != nil {
		return err
	}
	if err := a.requireProxy(st.txn, caller, delegator); err != nil {
		return err
	}
	rec, found, err := a.voterRecord(st.txn, number, delegator)
	if err != nil {
		return err
	}
	if found {
		if !rec.VotedByProxy {
			return ErrDirectVoteExists
		}
		if rec.Vote == yes {
			return ErrAlreadyVoted
		}
	}
	pow, err := a.votingPower(st.txn, reg.TokenMint, delegator)
	if err != nil {
		return err
	}
	if pow.votingPower == 0 {
		return reject(ErrNoVotingPower, "delegator %s", delegator)
	}
	if found {
		if err := subTally(p, rec.Vote, rec.VotingPower); err != nil {
			return err
		}
	}
	if err := addTally(p, yes, pow.votingPower); err != nil {
		return err
	}
	newRec := &VoterRecord{
		Proposal:       address.Proposal(number),
		ProposalNumber: number,
		Voter:          delegator,
		Voted:          true,
		Vote:           yes,
		VotingPower:    pow.votingPower,
		StakedAmount:   pow.stakedAmount,
		VotedByProxy:   true,
		Proxy:          caller,
		CastAt:         st.now,
	}
	if err := a.records.put(st.txn, address.Voter(address.Proposal(number), delegator), RecordKindVoterRecord, newRec); err != nil {
		return err
	}
	if err := a.indexVote(st.txn, newRec); err != nil {
		return err
	}
	if err := a.saveProposal(st.txn, p); err != nil {
		return err
	}
	if !found {
		if err := a.creditVote(st, caller, a.policy.ProxyVoteScore); err != nil {
			return err
		}
	}
	st.emit(VoteCastEventType, VoteCastEvent{
		Voter:        delegator,
		Proxy:        caller,
		Proposal:     number,
		Amount:       pow.stakedAmount,
		LockDuration: pow.lockDays,
		VotingPower:  pow.votingPower,
		Multiplier:   pow.multiplier,
		Vote:         yes,
		ByProxy:      true,
	})
	return nil
}

// WithdrawAsProxy clears a proxy vote the caller cast for a delegator
func (a *Authority) WithdrawAsProxy(
	ctx context.Context,
	caller address.Address,
	number uint64,
	delegator address.Address,
) error {
	return a.transition(ctx, "withdraw_as_proxy", caller, func(st *txState) error {
		return a.withdrawAsProxy(st, caller, number, delegator)
	})
}

func (a *Authority) withdrawAsProxy(
	st *txState,
	caller address.Address,
	number uint64,
	delegator address.Address,
) error {
	_, p, err := a.openProposal(st, number)
	if err != nil {
		return err
	}
	rec, found, err := a.voterRecord(st.txn, number, delegator)
	if err != nil {
		return err
	}
	if !found {
		return reject(ErrAccountNotInitialized, "no vote by %s on proposal %d", delegator, number)
	}
	if !rec.VotedByProxy {
		return ErrDirectVoteExists
	}
	if rec.Proxy != caller {
		return reject(ErrUnauthorized, "vote was cast by proxy %s", rec.Proxy)
	}
	return a.removeVote(st, p, rec)
}

// creditVote records a cast vote in the user's stats
func (a *Authority) creditVote(st *txState, user address.Address, score uint64) error {
	stats, err := a.userStats(st.txn, user)
	if err != nil {
		return err
	}
	if stats.Score, err = checkedAdd(stats.Score, score); err != nil {
		return err
	}
	stats.ProposalCount++
	stats.LastVoteTime = st.now
	return a.saveUserStats(st.txn, stats)
}

// userStats loads the stats for user, returning zeroed stats if none exist
func (a *Authority) userStats(txn *database.Txn, user address.Address) (*UserStats, error) {
	stats := &UserStats{User: user}
	if _, err := a.records.get(txn, address.UserStats(user), RecordKindUserStats, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (a *Authority) saveUserStats(txn *database.Txn, stats *UserStats) error {
	if err := a.records.put(txn, address.UserStats(stats.User), RecordKindUserStats, stats); err != nil {
		return err
	}
	return a.indexUserStats(txn, stats)
}
