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

package address

import (
	"encoding/binary"
	"math"

	"golang.org/x/crypto/blake2b"
)

const derivationDomain = "pulsar/derive/v1"

const (
	SeedGlobalAccount    = "global_account"
	SeedProposal         = "proposal"
	SeedProposalEscrow   = "proposal_escrow"
	SeedVoter            = "voter"
	SeedStakeRecord      = "stake_record"
	SeedVault            = "vault"
	SeedDelegateProfile  = "delegate_profile"
	SeedDelegationRecord = "delegation_record"
	SeedUserStats        = "user_stats_v2"
	SeedBadge            = "badge"
	SeedFaucet           = "faucet"
	SeedTransaction      = "tx_signature"
	SeedTokenMint        = "token_mint"
)

// Derive computes the canonical address for the given seeds. Each seed is
// length-prefixed so that ("ab", "c") and ("a", "bc") never collide.
func Derive(seeds ...[]byte) Address {
	// blake2b.New256 only fails for keys longer than 64 bytes
	h, _ := blake2b.New256(nil)
	h.Write([]byte(derivationDomain))
	var lenBuf [2]byte
	for _, seed := range seeds {
		seedLen := min(len(seed), math.MaxUint16)
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(seedLen)) // #nosec G115
		h.Write(lenBuf[:])
		h.Write(seed[:seedLen])
	}
	var ret Address
	copy(ret[:], h.Sum(nil))
	return ret
}

func u64LE(v uint64) []byte {
	ret := make([]byte, 8)
	binary.LittleEndian.PutUint64(ret, v)
	return ret
}

func GlobalRegistry() Address {
	return Derive([]byte(SeedGlobalAccount))
}

func Proposal(number uint64) Address {
	return Derive([]byte(SeedProposal), u64LE(number))
}

func ProposalEscrow(number uint64) Address {
	return Derive([]byte(SeedProposalEscrow), u64LE(number))
}

func Voter(proposal Address, voter Address) Address {
	return Derive([]byte(SeedVoter), proposal[:], voter[:])
}

func StakeRecord(owner Address) Address {
	return Derive([]byte(SeedStakeRecord), owner[:])
}

// Vault is the custodial token account holding staked tokens for a mint
func Vault(mint Address) Address {
	return Derive([]byte(SeedVault), mint[:])
}

func DelegateProfile(id Address) Address {
	return Derive([]byte(SeedDelegateProfile), id[:])
}

func DelegationRecord(delegator Address) Address {
	return Derive([]byte(SeedDelegationRecord), delegator[:])
}

func UserStats(user Address) Address {
	return Derive([]byte(SeedUserStats), user[:])
}

func BadgeMint(user Address) Address {
	return Derive([]byte(SeedBadge), user[:])
}

func Faucet(user Address) Address {
	return Derive([]byte(SeedFaucet), user[:])
}

// TransactionReceipt is the address claimed by an accepted signed transaction
func TransactionReceipt(signature []byte) Address {
	return Derive([]byte(SeedTransaction), signature)
}

// DefaultTokenMint is the governance token mint used when none is configured
func DefaultTokenMint() Address {
	return Derive([]byte(SeedTokenMint))
}
