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

import "time"

// Policy holds the configurable governance rules
type Policy struct {
	// VoteScore is added to a voter's score for each direct vote
	VoteScore uint64 `yaml:"voteScore"`
	// ProxyVoteScore is added to the proxy's score for each proxy vote
	ProxyVoteScore      uint64 `yaml:"proxyVoteScore"`
	BadgeScoreThreshold uint64 `yaml:"badgeScoreThreshold"`
	// AdminOnlyProposals restricts proposal creation to the admin
	AdminOnlyProposals bool `yaml:"adminOnlyProposals"`
	// AllowVoteSwitch permits changing an existing direct vote
	AllowVoteSwitch      bool `yaml:"allowVoteSwitch"`
	MaxTitleLength       int  `yaml:"maxTitleLength"`
	MaxDescriptionLength int  `yaml:"maxDescriptionLength"`
	// FaucetAmount is in whole tokens. Zero disables the faucet
	FaucetAmount   uint64        `yaml:"faucetAmount"`
	FaucetCooldown time.Duration `yaml:"faucetCooldown"`
	MaxLockDays    uint64        `yaml:"maxLockDays"`
}

func DefaultPolicy() Policy {
	return Policy{
		VoteScore:            10,
		ProxyVoteScore:       10,
		BadgeScoreThreshold:  50,
		AllowVoteSwitch:      true,
		MaxTitleLength:       100,
		MaxDescriptionLength: 500,
		FaucetAmount:         3000,
		FaucetCooldown:       24 * time.Hour,
		MaxLockDays:          MaxLockDays,
	}
}
