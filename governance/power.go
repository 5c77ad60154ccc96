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

import "math/bits"

const (
	SecondsPerDay = 86400
	// MaxLockDays is the longest accepted stake lock
	MaxLockDays = 3650
	// MaxMultiplier caps the stake lock multiplier
	MaxMultiplier = 5
)

// isqrt returns floor(sqrt(n)) using integer arithmetic only
func isqrt(n uint64) uint64 {
	if n < 2 {
		return n
	}
	// Initial guess is a power of two at or above the root
	x := uint64(1) << ((bits.Len64(n) + 1) / 2)
	for {
		y := (x + n/x) / 2
		if y >= x {
			return x
		}
		x = y
	}
}

// LockMultiplier returns the voting power multiplier for a stake lock
func LockMultiplier(lockDays uint64) uint64 {
	if lockDays < 30 {
		return 1
	}
	return min(1+lockDays/30, MaxMultiplier)
}

// VotingPower is isqrt(liquid) + isqrt(staked) * multiplier. The result
// cannot overflow for any uint64 inputs with multiplier at most
// MaxMultiplier
func VotingPower(liquid uint64, staked uint64, multiplier uint64) uint64 {
	return isqrt(liquid) + isqrt(staked)*multiplier
}
