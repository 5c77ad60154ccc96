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

package models

import "github.com/blinklabs-io/pulsar/database/types"

// Vote indexes the voter record for a (proposal, voter) pair
type Vote struct {
	ID             uint         `gorm:"primarykey"`
	ProposalNumber uint64       `gorm:"uniqueIndex:idx_vote_unique,priority:1;not null"`
	Voter          []byte       `gorm:"uniqueIndex:idx_vote_unique,priority:2;size:32;not null"`
	Vote           bool         `gorm:"not null"` // true=Yes
	VotingPower    types.Uint64 `gorm:"not null"`
	VotedByProxy   bool
	Proxy          []byte `gorm:"index;size:32"`
	CastAt         int64
}

func (Vote) TableName() string {
	return "vote"
}
