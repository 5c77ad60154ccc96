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
	"github.com/blinklabs-io/pulsar/event"
)

const (
	InitializedEventType       event.EventType = "governance.initialized"
	CircuitBreakerEventType    event.EventType = "governance.circuit_breaker"
	ProposalCreatedEventType   event.EventType = "governance.proposal_created"
	VoteCastEventType          event.EventType = "governance.vote_cast"
	VoteWithdrawnEventType     event.EventType = "governance.vote_withdrawn"
	ProposalExecutedEventType  event.EventType = "governance.proposal_executed"
	FundsReclaimedEventType    event.EventType = "governance.funds_reclaimed"
	StakeChangedEventType      event.EventType = "governance.stake_changed"
	DelegationChangedEventType event.EventType = "governance.delegation_changed"
	BadgeClaimedEventType      event.EventType = "governance.badge_claimed"
)

type InitializedEvent struct {
	Admin     address.Address
	TokenMint address.Address
}

type CircuitBreakerEvent struct {
	Admin         address.Address
	SystemEnabled bool
}

type ProposalCreatedEvent struct {
	Author         address.Address
	Number         uint64
	Deadline       int64
	ProposalType   uint8
	TransferAmount uint64
}

// VoteCastEvent is published for every direct, switched or proxy vote.
// Amount and LockDuration describe the voter's stake at cast time
type VoteCastEvent struct {
	Voter        address.Address
	Proxy        address.Address
	Proposal     uint64
	Amount       uint64
	LockDuration uint64
	VotingPower  uint64
	Multiplier   uint64
	Vote         bool
	ByProxy      bool
}

type VoteWithdrawnEvent struct {
	Voter       address.Address
	Proposal    uint64
	VotingPower uint64
	ByProxy     bool
}

type ProposalExecutedEvent struct {
	Proposal    uint64
	Amount      uint64
	Destination address.Address
}

type FundsReclaimedEvent struct {
	Proposal uint64
	Amount   uint64
	Author   address.Address
}

type StakeChangedEvent struct {
	Owner        address.Address
	StakedAmount uint64
	LockEndTime  int64
	Multiplier   uint64
}

type DelegationChangedEvent struct {
	Delegator address.Address
	// Target is zero when the delegation was revoked
	Target address.Address
}

type BadgeClaimedEvent struct {
	User  address.Address
	Mint  address.Address
	Score uint64
}

type pendingEvent struct {
	eventType event.EventType
	data      any
}
