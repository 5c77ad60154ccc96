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

	"github.com/blinklabs-io/pulsar/address"
)

// ClaimBadge issues the caller's one-time badge once their score reaches the
// policy threshold
func (a *Authority) ClaimBadge(ctx context.Context, caller address.Address) error {
	return a.transition(ctx, "claim_badge", caller, func(st *txState) error {
		return a.claimBadge(st, caller)
	})
}

func (a *Authority) claimBadge(st *txState, caller address.Address) error {
	var stats UserStats
	found, err := a.records.get(st.txn, address.UserStats(caller), RecordKindUserStats, &stats)
	if err != nil {
		return err
	}
	if !found {
		return reject(ErrAccountNotInitialized, "no stats for %s", caller)
	}
	if stats.BadgeClaimed {
		return ErrAlreadyClaimed
	}
	if stats.Score < a.policy.BadgeScoreThreshold {
		return reject(
			ErrInsufficientScore,
			"score %d is below %d",
			stats.Score,
			a.policy.BadgeScoreThreshold,
		)
	}
	mint := address.BadgeMint(caller)
	if err := a.badges.IssueBadge(st.txn, mint, caller, address.UserStats(caller), st.now); err != nil {
		return err
	}
	stats.BadgeClaimed = true
	if err := a.saveUserStats(st.txn, &stats); err != nil {
		return err
	}
	st.emit(BadgeClaimedEventType, BadgeClaimedEvent{User: caller, Mint: mint, Score: stats.Score})
	return nil
}
