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

// TreasuryProposalArgs describes a proposal that escrows a token transfer
// until it is resolved
type TreasuryProposalArgs struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Deadline        int64           `json:"deadline"`
	Amount          uint64          `json:"amount"`
	Destination     address.Address `json:"destination"`
	TimelockSeconds int64           `json:"timelockSeconds"`
}

// CreateProposal creates a standard proposal and returns its number
func (a *Authority) CreateProposal(
	ctx context.Context,
	caller address.Address,
	title string,
	description string,
	deadline int64,
) (uint64, error) {
	var number uint64
	err := a.transition(ctx, "create_proposal", caller, func(st *txState) error {
		var err error
		number, err = a.createProposal(st, caller, title, description, deadline)
		return err
	})
	if err != nil {
		return 0, err
	}
	return number, nil
}

func (a *Authority) createProposal(
	st *txState,
	caller address.Address,
	title string,
	description string,
	deadline int64,
) (uint64, error) {
	p, _, err := a.newProposal(st, caller, title, description, deadline)
	if err != nil {
		return 0, err
	}
	if err := a.storeProposal(st, p); err != nil {
		return 0, err
	}
	return p.Number, nil
}

// CreateTreasuryProposal creates a treasury proposal, moving the transfer
// amount from the caller into the proposal escrow in the same transition
func (a *Authority) CreateTreasuryProposal(
	ctx context.Context,
	caller address.Address,
	args TreasuryProposalArgs,
) (uint64, error) {
	var number uint64
	err := a.transition(ctx, "create_treasury_proposal", caller, func(st *txState) error {
		var err error
		number, err = a.createTreasuryProposal(st, caller, args)
		return err
	})
	if err != nil {
		return 0, err
	}
	return number, nil
}

func (a *Authority) createTreasuryProposal(
	st *txState,
	caller address.Address,
	args TreasuryProposalArgs,
) (uint64, error) {
	if args.Amount == 0 {
		return 0, ErrInvalidAmount
	}
	if args.Destination.IsZero() {
		return 0, reject(ErrInvalidArgument, "transfer destination is required")
	}
	if args.TimelockSeconds < 0 ||
		(args.Deadline > 0 && args.TimelockSeconds > math.MaxInt64-args.Deadline) {
		return 0, reject(ErrInvalidArgument, "invalid timelock %d", args.TimelockSeconds)
	}
	p, reg, err := a.newProposal(st, caller, args.Title, args.Description, args.Deadline)
	if err != nil {
		return 0, err
	}
	p.ProposalType = ProposalTypeTreasury
	p.TransferAmount = args.Amount
	p.TransferDestination = args.Destination
	p.TimelockSeconds = args.TimelockSeconds
	balance, err := a.ledger.BalanceOf(st.txn, reg.TokenMint, caller)
	if err != nil {
		return 0, err
	}
	if balance < args.Amount {
		return 0, reject(
			ErrInsufficientFunds,
			"escrow needs %d, author holds %d",
			args.Amount,
			balance,
		)
	}
	if err := a.ledger.Transfer(st.txn, reg.TokenMint, caller, address.ProposalEscrow(p.Number), args.Amount); err != nil {
		return 0, mapLedgerError(err)
	}
	if err := a.storeProposal(st, p); err != nil {
		return 0, err
	}
	return p.Number, nil
}

// newProposal validates the common arguments and allocates the next
// proposal number in the registry
func (a *Authority) newProposal(
	st *txState,
	caller address.Address,
	title string,
	description string,
	deadline int64,
) (*Proposal, *GlobalRegistry, error) {
	reg, err := a.registry(st.txn)
	if err != nil {
		return nil, nil, err
	}
	if a.policy.AdminOnlyProposals && caller != reg.Admin {
		return nil, nil, reject(ErrUnauthorized, "only the admin may create proposals")
	}
	if title == "" || len(title) > a.policy.MaxTitleLength {
		return nil, nil, reject(
			ErrInvalidArgument,
			"title must be 1 to %d bytes",
			a.policy.MaxTitleLength,
		)
	}
	if len(description) > a.policy.MaxDescriptionLength {
		return nil, nil, reject(
			ErrInvalidArgument,
			"description exceeds %d bytes",
			a.policy.MaxDescriptionLength,
		)
	}
	if deadline <= st.now {
		return nil, nil, ErrInvalidDeadline
	}
	if reg.ProposalCount == math.MaxUint64 {
		return nil, nil, ErrArithmeticOverflow
	}
	reg.ProposalCount++
	if err := a.records.put(st.txn, address.GlobalRegistry(), RecordKindGlobalRegistry, reg); err != nil {
		return nil, nil, err
	}
	p := &Proposal{
		Number:      reg.ProposalCount,
		Author:      caller,
		Title:       title,
		Description: description,
		Deadline:    deadline,
		CreatedAt:   st.now,
	}
	return p, reg, nil
}

func (a *Authority) storeProposal(st *txState, p *Proposal) error {
	if err := a.records.create(st.txn, address.Proposal(p.Number), RecordKindProposal, p); err != nil {
		if errors.Is(err, database.ErrBlobKeyExists) {
			return reject(ErrAlreadyInitialized, "proposal %d", p.Number)
		}
		return err
	}
	if err := a.indexProposal(st.txn, p); err != nil {
		return err
	}
	st.emit(ProposalCreatedEventType, ProposalCreatedEvent{
		Author:         p.Author,
		Number:         p.Number,
		Deadline:       p.Deadline,
		ProposalType:   p.ProposalType,
		TransferAmount: p.TransferAmount,
	})
	return nil
}

// proposal loads a proposal by number
func (a *Authority) proposal(txn *database.Txn, number uint64) (*Proposal, error) {
	var p Proposal
	found, err := a.records.get(txn, address.Proposal(number), RecordKindProposal, &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, reject(ErrAccountNotInitialized, "proposal %d", number)
	}
	return &p, nil
}

func (a *Authority) saveProposal(txn *database.Txn, p *Proposal) error {
	if err := a.records.put(txn, address.Proposal(p.Number), RecordKindProposal, p); err != nil {
		return err
	}
	return a.indexProposal(txn, p)
}
