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

package api

import (
	"context"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/governance"
)

// Authority is the interface the API server uses to read governance state
// and submit signed transactions. *governance.Authority satisfies it
type Authority interface {
	GetGlobalRegistry() (*governance.GlobalRegistry, error)
	GetProposal(number uint64) (*governance.Proposal, error)
	GetVoterRecord(number uint64, voter address.Address) (*governance.VoterRecord, error)
	GetStakeRecord(owner address.Address) (*governance.StakeRecord, error)
	GetDelegateProfile(id address.Address) (*governance.DelegateProfile, error)
	GetDelegationRecord(delegator address.Address) (*governance.DelegationRecord, error)
	GetUserStats(user address.Address) (*governance.UserStats, error)
	GetEscrowBalance(number uint64) (uint64, error)
	GetBalance(owner address.Address) (uint64, error)
	GetRecord(addr address.Address) (governance.RecordKind, any, error)
	ListProposals(activeOnly bool) ([]*governance.Proposal, error)
	ListVotes(number uint64) ([]*governance.VoterRecord, error)
	ListDelegates() ([]*governance.DelegateProfile, error)
	ListDelegators(delegate address.Address) ([]*governance.DelegationRecord, error)
	Leaderboard(limit int) ([]*governance.UserStats, error)
	TopHolders(limit int) ([]governance.Holder, error)
	SubmitTransaction(ctx context.Context, tx *governance.SignedTransaction) (*governance.Receipt, error)
}

var _ Authority = (*governance.Authority)(nil)
