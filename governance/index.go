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
	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/database"
	"github.com/blinklabs-io/pulsar/database/models"
	"github.com/blinklabs-io/pulsar/database/types"
)

// The helpers below mirror records into the metadata index inside the same
// transaction. They are no-ops for blob-only transactions

func (a *Authority) indexProposal(txn *database.Txn, p *Proposal) error {
	if txn.Metadata() == nil {
		return nil
	}
	return a.db.Metadata().SetProposal(proposalModel(p), txn.Metadata())
}

func proposalModel(p *Proposal) *models.Proposal {
	return &models.Proposal{
		Number:         p.Number,
		Address:        address.Proposal(p.Number).Bytes(),
		Author:         p.Author.Bytes(),
		Title:          p.Title,
		ProposalType:   p.ProposalType,
		Deadline:       p.Deadline,
		Yes:            types.Uint64(p.Yes),
		No:             types.Uint64(p.No),
		TransferAmount: types.Uint64(p.TransferAmount),
		Executed:       p.Executed,
		Resolution:     p.Resolution,
		CreatedAt:      p.CreatedAt,
	}
}

func (a *Authority) indexVote(txn *database.Txn, v *VoterRecord) error {
	if txn.Metadata() == nil {
		return nil
	}
	return a.db.Metadata().SetVote(voteModel(v), txn.Metadata())
}

func voteModel(v *VoterRecord) *models.Vote {
	ret := &models.Vote{
		ProposalNumber: v.ProposalNumber,
		Voter:          v.Voter.Bytes(),
		Vote:           v.Vote,
		VotingPower:    types.Uint64(v.VotingPower),
		VotedByProxy:   v.VotedByProxy,
		CastAt:         v.CastAt,
	}
	if v.VotedByProxy {
		ret.Proxy = v.Proxy.Bytes()
	}
	return ret
}

func (a *Authority) unindexVote(
	txn *database.Txn,
	number uint64,
	voter address.Address,
) error {
	if txn.Metadata() == nil {
		return nil
	}
	return a.db.Metadata().DeleteVote(number, voter.Bytes(), txn.Metadata())
}

func (a *Authority) indexStake(txn *database.Txn, s *StakeRecord) error {
	if txn.Metadata() == nil {
		return nil
	}
	return a.db.Metadata().SetStake(
		&models.Stake{
			Owner:        s.Owner.Bytes(),
			StakedAmount: types.Uint64(s.StakedAmount),
			LockEndTime:  s.LockEndTime,
			Multiplier:   s.Multiplier,
		},
		txn.Metadata(),
	)
}

func (a *Authority) indexDelegateProfile(txn *database.Txn, p *DelegateProfile) error {
	if txn.Metadata() == nil {
		return nil
	}
	return a.db.Metadata().SetDelegateProfile(
		&models.DelegateProfile{
			Authority:    p.Authority.Bytes(),
			IsActive:     p.IsActive,
			RegisteredAt: p.RegisteredAt,
		},
		txn.Metadata(),
	)
}

func (a *Authority) unindexDelegateProfile(txn *database.Txn, id address.Address) error {
	if txn.Metadata() == nil {
		return nil
	}
	return a.db.Metadata().DeleteDelegateProfile(id.Bytes(), txn.Metadata())
}

func (a *Authority) indexDelegation(txn *database.Txn, d *DelegationRecord) error {
	if txn.Metadata() == nil {
		return nil
	}
	return a.db.Metadata().SetDelegation(
		&models.Delegation{
			Delegator:      d.Delegator.Bytes(),
			DelegateTarget: d.DelegateTarget.Bytes(),
			DelegatedAt:    d.DelegatedAt,
		},
		txn.Metadata(),
	)
}

func (a *Authority) unindexDelegation(txn *database.Txn, delegator address.Address) error {
	if txn.Metadata() == nil {
		return nil
	}
	return a.db.Metadata().DeleteDelegation(delegator.Bytes(), txn.Metadata())
}

func (a *Authority) indexUserStats(txn *database.Txn, s *UserStats) error {
	if txn.Metadata() == nil {
		return nil
	}
	return a.db.Metadata().SetUserStats(
		&models.UserStats{
			User:          s.User.Bytes(),
			Score:         s.Score,
			ProposalCount: s.ProposalCount,
			LastVoteTime:  s.LastVoteTime,
			BadgeClaimed:  s.BadgeClaimed,
		},
		txn.Metadata(),
	)
}
