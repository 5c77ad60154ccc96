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

	"github.com/blinklabs-io/pulsar/address"
)

type TreasuryState string

const (
	TreasuryStateOpen            TreasuryState = "Open"
	TreasuryStatePendingTimelock TreasuryState = "PendingTimelock"
	TreasuryStateExecutable      TreasuryState = "Executable"
	TreasuryStateExecuted        TreasuryState = "Executed"
	TreasuryStateReclaimed       TreasuryState = "Reclaimed"
	// TreasuryStateClosed is reported for standard proposals past their
	// deadline
	TreasuryStateClosed TreasuryState = "Closed"
)

// TreasuryState reports where the proposal is in its resolution lifecycle
func (p *Proposal) TreasuryState(now int64) TreasuryState {
	switch {
	case p.Executed && p.Resolution == ResolutionReclaimed:
		return TreasuryStateReclaimed
	case p.Executed:
		return TreasuryStateExecuted
	case now < p.Deadline:
		return TreasuryStateOpen
	case !p.IsTreasury():
		return TreasuryStateClosed
	case now-p.Deadline < p.TimelockSeconds:
		return TreasuryStatePendingTimelock
	default:
		return TreasuryStateExecutable
	}
}

// resolvable loads a treasury proposal whose voting and timelock windows
// have both passed
func (a *Authority) resolvable(st *txState, number uint64) (*GlobalRegistry, *Proposal, error) {
	reg, err := a.requireEnabled(st.txn)
	if err != nil {
		return nil, nil, err
	}
	p, err := a.proposal(st.txn, number)
	if err != nil {
		return nil, nil, err
	}
	if !p.IsTreasury() {
		return nil, nil, ErrNotTreasuryProposal
	}
	if p.Executed {
		return nil, nil, ErrAlreadyExecuted
	}
	if st.now < p.Deadline {
		return nil, nil, ErrProposalVotingNotEnded
	}
	if st.now-p.Deadline < p.TimelockSeconds {
		return nil, nil, reject(
			ErrTimelockNotPassed,
			"executable at %d",
			p.Deadline+p.TimelockSeconds,
		)
	}
	return reg, p, nil
}

// ExecuteProposal releases an approved treasury proposal's escrow to its
// destination
func (a *Authority) ExecuteProposal(
	ctx context.Context,
	caller address.Address,
	number uint64,
) error {
	return a.transition(ctx, "execute_proposal", caller, func(st *txState) error {
		return a.executeProposal(st, number)
	})
}

func (a *Authority) executeProposal(st *txState, number uint64) error {
	reg, p, err := a.resolvable(st, number)
	if err != nil {
		return err
	}
	if p.Yes <= p.No {
		return ErrProposalNotApproved
	}
	amount, err := a.drainEscrow(st, reg.TokenMint, p.Number, p.TransferDestination)
	if err != nil {
		return err
	}
	p.Executed = true
	p.Resolution = ResolutionExecuted
	if err := a.saveProposal(st.txn, p); err != nil {
		return err
	}
	st.emit(ProposalExecutedEventType, ProposalExecutedEvent{
		Proposal:    p.Number,
		Amount:      amount,
		Destination: p.TransferDestination,
	})
	return nil
}

// ReclaimProposalFunds returns a failed treasury proposal's escrow to its
// author. Author only
func (a *Authority) ReclaimProposalFunds(
	ctx context.Context,
	caller address.Address,
	number uint64,
) error {
	return a.transition(ctx, "reclaim_proposal_funds", caller, func(st *txState) error {
		return a.reclaimProposalFunds(st, caller, number)
	})
}

func (a *Authority) reclaimProposalFunds(st *txState, caller address.Address, number uint64) error {
	reg, p, err := a.resolvable(st, number)
	if err != nil {
		return err
	}
	if caller != p.Author {
		return reject(ErrUnauthorized, "only the author may reclaim proposal %d", number)
	}
	if p.Yes > p.No {
		return ErrProposalPassed
	}
	amount, err := a.drainEscrow(st, reg.TokenMint, p.Number, p.Author)
	if err != nil {
		return err
	}
	p.Executed = true
	p.Resolution = ResolutionReclaimed
	if err := a.saveProposal(st.txn, p); err != nil {
		return err
	}
	st.emit(FundsReclaimedEventType, FundsReclaimedEvent{
		Proposal: p.Number,
		Amount:   amount,
		Author:   p.Author,
	})
	return nil
}

// drainEscrow moves the full escrow balance to dest
func (a *Authority) drainEscrow(
	st *txState,
	mint address.Address,
	number uint64,
	dest address.Address,
) (uint64, error) {
	escrow := address.ProposalEscrow(number)
	balance, err := a.ledger.BalanceOf(st.txn, mint, escrow)
	if err != nil {
		return 0, err
	}
	if balance == 0 {
		return 0, reject(ErrInsufficientFunds, "escrow for proposal %d is empty", number)
	}
	if err := a.ledger.Transfer(st.txn, mint, escrow, dest, balance); err != nil {
		return 0, mapLedgerError(err)
	}
	return balance, nil
}
