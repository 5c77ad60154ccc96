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

type UserStats struct {
	User          []byte `gorm:"primaryKey;size:32"`
	Score         uint64 `gorm:"index"`
	ProposalCount uint64
	LastVoteTime  int64
	BadgeClaimed  bool
}

func (UserStats) TableName() string {
	return "user_stats"
}

type Badge struct {
	Mint     []byte `gorm:"primaryKey;size:32"`
	Owner    []byte `gorm:"uniqueIndex;size:32;not null"`
	IssuedAt int64
}

func (Badge) TableName() string {
	return "badge"
}
