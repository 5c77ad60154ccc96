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

// Proposal type constants
const (
	ProposalTypeText     = 0
	ProposalTypeTreasury = 1
)

// Resolution values for treasury proposals
const (
	ResolutionNone      = ""
	ResolutionExecuted  = "executed"
	ResolutionReclaimed = "reclaimed"
)

type Proposal struct {
	Number         uint64       `gorm:"primaryKey;autoIncrement:false"`
	Address        []byte       `gorm:"uniqueIndex;size:32;not null"`
	Author         []byte       `gorm:"index;size:32;not null"`
	Title          string       `gorm:"size:100;not null"`
	ProposalType   uint8        `gorm:"not null"` // 0=Text, 1=Treasury
	Deadline       int64        `gorm:"index;not null"`
	Yes            types.Uint64 `gorm:"not null"`
	No             types.Uint64 `gorm:"not null"`
	TransferAmount types.Uint64
	Executed       bool   `gorm:"index"`
	Resolution     string `gorm:"size:16"`
	CreatedAt      int64
}

func (Proposal) TableName() string {
	return "proposal"
}
