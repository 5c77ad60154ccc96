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
	"fmt"

	"github.com/blinklabs-io/pulsar/address"
)

type InstructionType string

const (
	InstructionInitialize             InstructionType = "initialize"
	InstructionToggleCircuitBreaker   InstructionType = "toggle_circuit_breaker"
	InstructionAdminMint              InstructionType = "admin_mint"
	InstructionRequestTokens          InstructionType = "request_tokens"
	InstructionCreateProposal         InstructionType = "create_proposal"
	InstructionCreateTreasuryProposal InstructionType = "create_treasury_proposal"
	InstructionVote                   InstructionType = "vote"
	InstructionWithdrawVote           InstructionType = "withdraw_vote"
	InstructionVoteAsProxy            InstructionType = "vote_as_proxy"
	InstructionVoteAsProxyBatch       InstructionType = "vote_as_proxy_batch"
	InstructionWithdrawAsProxy        InstructionType = "withdraw_as_proxy"
	InstructionExecuteProposal        InstructionType = "execute_proposal"
	InstructionReclaimProposalFunds   InstructionType = "reclaim_proposal_funds"
	InstructionInitializeStake        InstructionType = "initialize_stake"
	InstructionDepositTokens          InstructionType = "deposit_tokens"
	InstructionUnstakeTokens          InstructionType = "unstake_tokens"
	InstructionRegisterDelegate       InstructionType = "register_delegate"
	InstructionRemoveDelegate         InstructionType = "remove_delegate"
	InstructionDelegateVote           InstructionType = "delegate_vote"
	InstructionRevokeDelegation       InstructionType = "revoke_delegation"
	InstructionClaimBadge             InstructionType = "claim_badge"
)

// Instruction is one operation in a submitted batch. Only the fields used by
// Type are read
type Instruction struct {
	Type            InstructionType   `json:"type"`
	Proposal        uint64            `json:"proposal,omitempty"`
	Yes             bool              `json:"yes,omitempty"`
	Amount          uint64            `json:"amount,omitempty"`
	LockDays        uint64            `json:"lockDays,omitempty"`
	Deadline        int64             `json:"deadline,omitempty"`
	TimelockSeconds int64             `json:"timelockSeconds,omitempty"`
	Title           string            `json:"title,omitempty"`
	Description     string            `json:"description,omitempty"`
	TokenMint       address.Address   `json:"tokenMint,omitzero"`
	Target          address.Address   `json:"target,omitzero"`
	Delegator       address.Address   `json:"delegator,omitzero"`
	Destination     address.Address   `json:"destination,omitzero"`
	Delegators      []address.Address `json:"delegators,omitempty"`
}

// Submit applies a list of instructions from one caller atomically: either
// all of them take effect or none do. It returns the numbers of any
// proposals created, in order
func (a *Authority) Submit(
	ctx context.Context,
	caller address.Address,
	instructions []Instruction,
) ([]uint64, error) {
	var created []uint64
	err := a.transition(ctx, "submit", caller, func(st *txState) error {
		var err error
		created, err = a.applyAll(st, caller, instructions)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (a *Authority) applyAll(
	st *txState,
	caller address.Address,
	instructions []Instruction,
) ([]uint64, error) {
	if len(instructions) == 0 {
		return nil, reject(ErrInvalidArgument, "no instructions given")
	}
	var created []uint64
	for idx, ins := range instructions {
		number, err := a.apply(st, caller, ins)
		if err != nil {
			return nil, fmt.Errorf("instruction %d (%s): %w", idx, ins.Type, err)
		}
		if number != 0 {
			created = append(created, number)
		}
	}
	return created, nil
}

// apply dispatches a single instruction. The returned number is non-zero
// only for proposal creation
func (a *Authority) apply(st *txState, caller address.Address, ins Instruction) (uint64, error) {
	switch ins.Type {
	case InstructionInitialize:
		return 0, a.initialize(st, caller, ins.TokenMint)
	case InstructionToggleCircuitBreaker:
		return 0, a.toggleCircuitBreaker(st, caller)
	case InstructionAdminMint:
		return 0, a.adminMint(st, caller, ins.Target, ins.Amount)
	case InstructionRequestTokens:
		return 0, a.requestTokens(st, caller)
	case InstructionCreateProposal:
		return a.createProposal(st, caller, ins.Title, ins.Description, ins.Deadline)
	case InstructionCreateTreasuryProposal:
		return a.createTreasuryProposal(st, caller, TreasuryProposalArgs{
			Title:           ins.Title,
			Description:     ins.Description,
			Deadline:        ins.Deadline,
			Amount:          ins.Amount,
			Destination:     ins.Destination,
			TimelockSeconds: ins.TimelockSeconds,
		})
	case InstructionVote:
		return 0, a.vote(st, caller, ins.Proposal, ins.Yes)
	case InstructionWithdrawVote:
		return 0, a.withdrawVote(st, caller, ins.Proposal)
	case InstructionVoteAsProxy:
		return 0, a.voteAsProxy(st, caller, ins.Proposal, ins.Delegator, ins.Yes)
	case InstructionVoteAsProxyBatch:
		return 0, a.voteAsProxyBatch(st, caller, ins.Proposal, ins.Yes, ins.Delegators)
	case InstructionWithdrawAsProxy:
		return 0, a.withdrawAsProxy(st, caller, ins.Proposal, ins.Delegator)
	case InstructionExecuteProposal:
		return 0, a.executeProposal(st, ins.Proposal)
	case InstructionReclaimProposalFunds:
		return 0, a.reclaimProposalFunds(st, caller, ins.Proposal)
	case InstructionInitializeStake:
		return 0, a.initializeStake(st, caller)
	case InstructionDepositTokens:
		return 0, a.depositTokens(st, caller, ins.Amount, ins.LockDays)
	case InstructionUnstakeTokens:
		return 0, a.unstakeTokens(st, caller)
	case InstructionRegisterDelegate:
		return 0, a.registerDelegate(st, caller, ins.Target)
	case InstructionRemoveDelegate:
		return 0, a.removeDelegate(st, caller, ins.Target)
	case InstructionDelegateVote:
		return 0, a.delegateVote(st, caller, ins.Target)
	case InstructionRevokeDelegation:
		return 0, a.revokeDelegation(st, caller)
	case InstructionClaimBadge:
		return 0, a.claimBadge(st, caller)
	default:
		return 0, reject(ErrInvalidInstruction, "unknown instruction type %q", ins.Type)
	}
}
