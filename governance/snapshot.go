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
	"fmt"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/database"
	"github.com/blinklabs-io/pulsar/database/types"
)

// Reads below use a fresh snapshot and never mutate state. A missing record
// is reported as ErrAccountNotInitialized

func (a *Authority) GetGlobalRegistry() (*GlobalRegistry, error) {
	return a.registry(nil)
}

func (a *Authority) GetProposal(number uint64) (*Proposal, error) {
	return a.proposal(nil, number)
}

func (a *Authority) GetVoterRecord(number uint64, voter address.Address) (*VoterRecord, error) {
	rec, found, err := a.voterRecord(nil, number, voter)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, reject(ErrAccountNotInitialized, "no vote by %s on proposal %d", voter, number)
	}
	return rec, nil
}

func (a *Authority) GetStakeRecord(owner address.Address) (*StakeRecord, error) {
	return a.stakeRecord(nil, owner)
}

func (a *Authority) GetDelegateProfile(id address.Address) (*DelegateProfile, error) {
	profile, found, err := a.delegateProfile(nil, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, reject(ErrAccountNotInitialized, "delegate profile for %s", id)
	}
	return profile, nil
}

func (a *Authority) GetDelegationRecord(delegator address.Address) (*DelegationRecord, error) {
	rec, found, err := a.delegation(nil, delegator)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, reject(ErrAccountNotInitialized, "no delegation for %s", delegator)
	}
	return rec, nil
}

func (a *Authority) GetUserStats(user address.Address) (*UserStats, error) {
	var stats UserStats
	found, err := a.records.get(nil, address.UserStats(user), RecordKindUserStats, &stats)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, reject(ErrAccountNotInitialized, "no stats for %s", user)
	}
	return &stats, nil
}

// GetEscrowBalance returns the tokens held in escrow for a proposal
func (a *Authority) GetEscrowBalance(number uint64) (uint64, error) {
	return a.GetBalance(address.ProposalEscrow(number))
}

// GetBalance returns the governance token balance of owner
func (a *Authority) GetBalance(owner address.Address) (uint64, error) {
	reg, err := a.registry(nil)
	if err != nil {
		return 0, err
	}
	return a.ledger.BalanceOf(nil, reg.TokenMint, owner)
}

// GetRecord returns any governance record by its derived address
func (a *Authority) GetRecord(addr address.Address) (RecordKind, any, error) {
	data, err := a.db.BlobGet(types.RecordKey(addr[:]), nil)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil, reject(ErrAccountNotInitialized, "no record at %s", addr)
		}
		return 0, nil, err
	}
	return decodeRecord(data)
}

// ListProposals returns proposals in number order, optionally only those
// still accepting votes
func (a *Authority) ListProposals(activeOnly bool) ([]*Proposal, error) {
	rows, err := a.db.Metadata().GetProposals(activeOnly, a.clock.Now().Unix(), nil)
	if err != nil {
		return nil, err
	}
	ret := make([]*Proposal, 0, len(rows))
	for _, row := range rows {
		p, err := a.proposal(nil, row.Number)
		if err != nil {
			return nil, err
		}
		ret = append(ret, p)
	}
	return ret, nil
}

// ListVotes returns the active votes on a proposal
func (a *Authority) ListVotes(number uint64) ([]*VoterRecord, error) {
	rows, err := a.db.Metadata().GetVotes(number, nil)
	if err != nil {
		return nil, err
	}
	ret := make([]*VoterRecord, 0, len(rows))
	for _, row := range rows {
		voter, err := address.FromBytes(row.Voter)
		if err != nil {
			return nil, err
		}
		rec := &VoterRecord{
			Proposal:       address.Proposal(row.ProposalNumber),
			ProposalNumber: row.ProposalNumber,
			Voter:          voter,
			Voted:          true,
			Vote:           row.Vote,
			VotingPower:    uint64(row.VotingPower),
			VotedByProxy:   row.VotedByProxy,
			CastAt:         row.CastAt,
		}
		if row.VotedByProxy {
			if rec.Proxy, err = address.FromBytes(row.Proxy); err != nil {
				return nil, err
			}
		}
		ret = append(ret, rec)
	}
	return ret, nil
}

func (a *Authority) ListDelegates() ([]*DelegateProfile, error) {
	rows, err := a.db.Metadata().GetDelegateProfiles(nil)
	if err != nil {
		return nil, err
	}
	ret := make([]*DelegateProfile, 0, len(rows))
	for _, row := range rows {
		id, err := address.FromBytes(row.Authority)
		if err != nil {
			return nil, err
		}
		ret = append(ret, &DelegateProfile{
			Authority:    id,
			IsActive:     row.IsActive,
			RegisteredAt: row.RegisteredAt,
		})
	}
	return ret, nil
}

func (a *Authority) ListDelegators(delegate address.Address) ([]*DelegationRecord, error) {
	rows, err := a.db.Metadata().GetDelegators(delegate.Bytes(), nil)
	if err != nil {
		return nil, err
	}
	ret := make([]*DelegationRecord, 0, len(rows))
	for _, row := range rows {
		delegator, err := address.FromBytes(row.Delegator)
		if err != nil {
			return nil, err
		}
		ret = append(ret, &DelegationRecord{
			Delegator:      delegator,
			DelegateTarget: delegate,
			DelegatedAt:    row.DelegatedAt,
		})
	}
	return ret, nil
}

// Leaderboard returns the highest scoring users
func (a *Authority) Leaderboard(limit int) ([]*UserStats, error) {
	rows, err := a.db.Metadata().GetLeaderboard(limit, nil)
	if err != nil {
		return nil, err
	}
	ret := make([]*UserStats, 0, len(rows))
	for _, row := range rows {
		user, err := address.FromBytes(row.User)
		if err != nil {
			return nil, err
		}
		ret = append(ret, &UserStats{
			User:          user,
			ProposalCount: row.ProposalCount,
			LastVoteTime:  row.LastVoteTime,
			Score:         row.Score,
			BadgeClaimed:  row.BadgeClaimed,
		})
	}
	return ret, nil
}

type Holder struct {
	Owner  address.Address `json:"owner"`
	Amount uint64          `json:"amount"`
}

// TopHolders returns the largest governance token balances
func (a *Authority) TopHolders(limit int) ([]Holder, error) {
	reg, err := a.registry(nil)
	if err != nil {
		return nil, err
	}
	rows, err := a.db.Metadata().GetTokenHolders(reg.TokenMint.Bytes(), limit, nil)
	if err != nil {
		return nil, err
	}
	ret := make([]Holder, 0, len(rows))
	for _, row := range rows {
		owner, err := address.FromBytes(row.Owner)
		if err != nil {
			return nil, err
		}
		ret = append(ret, Holder{Owner: owner, Amount: uint64(row.Amount)})
	}
	return ret, nil
}

// Reindex rebuilds the metadata index from the stored records and from any
// collaborator that keeps its own index rows
func (a *Authority) Reindex(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	var count int
	err := a.db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := a.db.Metadata().ResetIndex(txn.Metadata()); err != nil {
			return err
		}
		err := a.db.BlobScan(
			[]byte(types.RecordKeyPrefix),
			txn,
			func(key []byte, val []byte) error {
				count++
				return a.reindexRecord(txn, key, val)
			},
		)
		if err != nil {
			return err
		}
		for _, collab := range []any{a.ledger, a.badges} {
			if r, ok := collab.(Reindexer); ok {
				if err := r.Reindex(txn); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	a.logger.Info(
		"rebuilt metadata index",
		"component", "governance",
		"records", count,
	)
	return nil
}

func (a *Authority) reindexRecord(txn *database.Txn, key []byte, val []byte) error {
	kind, rec, err := decodeRecord(val)
	if err != nil {
		return fmt.Errorf("record %x: %w", key, err)
	}
	switch kind {
	case RecordKindProposal:
		return a.indexProposal(txn, rec.(*Proposal))
	case RecordKindVoterRecord:
		return a.indexVote(txn, rec.(*VoterRecord))
	case RecordKindStakeRecord:
		return a.indexStake(txn, rec.(*StakeRecord))
	case RecordKindDelegateProfile:
		return a.indexDelegateProfile(txn, rec.(*DelegateProfile))
	case RecordKindDelegationRecord:
		return a.indexDelegation(txn, rec.(*DelegationRecord))
	case RecordKindUserStats:
		return a.indexUserStats(txn, rec.(*UserStats))
	}
	return nil
}
