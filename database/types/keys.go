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

package types

import (
	"slices"
)

// Blob key layout. Every key written by the system starts with one of these
// prefixes, which also delimits what a state snapshot contains.
const (
	RecordKeyPrefix       = "rec_"
	TokenMintKeyPrefix    = "tok_mint_"
	TokenBalanceKeyPrefix = "tok_bal_"
	BadgeKeyPrefix        = "bdg_"
)

// StateKeyPrefixes lists the prefixes holding authoritative state
var StateKeyPrefixes = []string{
	RecordKeyPrefix,
	TokenMintKeyPrefix,
	TokenBalanceKeyPrefix,
	BadgeKeyPrefix,
}

func RecordKey(addr []byte) []byte {
	return slices.Concat([]byte(RecordKeyPrefix), addr)
}

func TokenMintKey(mint []byte) []byte {
	return slices.Concat([]byte(TokenMintKeyPrefix), mint)
}

func TokenBalanceKey(mint []byte, owner []byte) []byte {
	return slices.Concat([]byte(TokenBalanceKeyPrefix), mint, owner)
}

func BadgeKey(mint []byte) []byte {
	return slices.Concat([]byte(BadgeKeyPrefix), mint)
}

// IsStateKey reports whether a blob key belongs to authoritative state
func IsStateKey(key []byte) bool {
	for _, prefix := range StateKeyPrefixes {
		if len(key) >= len(prefix) && string(key[:len(prefix)]) == prefix {
			return true
		}
	}
	return false
}
