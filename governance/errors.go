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
	"errors"
	"fmt"
)

// Error is a tagged rejection of a transition. Code is stable and machine
// matchable; Message is for humans
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func newError(code string, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

var (
	ErrUnauthorized          = newError("Unauthorized", "unauthorized access")
	ErrSystemOffline         = newError("SystemOffline", "system is offline (circuit breaker tripped)")
	ErrAlreadyInitialized    = newError("AlreadyInitialized", "account is already initialized")
	ErrAccountNotInitialized = newError("AccountNotInitialized", "account is not initialized")
	ErrInvalidArgument       = newError("InvalidArgument", "invalid argument")
	ErrInvalidInstruction    = newError("InvalidInstruction", "unknown or malformed instruction")

	ErrAlreadyVoted         = newError("AlreadyVoted", "you have already voted")
	ErrProxyVoteLocked      = newError("ProxyVoteLocked", "vote was cast by proxy and is locked")
	ErrDelegatorsCannotVote = newError("DelegatorsCannotVote", "you have delegated your voting power, revoke delegation to vote manually")
	ErrPollExpired          = newError("PollExpired", "proposal has expired")
	ErrNoVotingPower        = newError("NoVotingPower", "no voting power available")
	ErrVoteUpdatesDisabled  = newError("VoteUpdatesDisabled", "vote updates are disabled")

	ErrProposalVotingNotEnded = newError("ProposalVotingNotEnded", "proposal voting has not ended yet")
	ErrProposalNotApproved    = newError("ProposalNotApproved", "proposal was not approved (yes > no required)")
	ErrProposalPassed         = newError("ProposalPassed", "proposal passed, cannot reclaim funds")
	ErrTimelockNotPassed      = newError("TimelockNotPassed", "timelock period has not passed yet")
	ErrAlreadyExecuted        = newError("AlreadyExecuted", "proposal has already been executed")
	ErrNotTreasuryProposal    = newError("NotTreasuryProposal", "target is not a treasury proposal")
	ErrInvalidDeadline        = newError("InvalidDeadline", "deadline must be in the future")

	ErrTokensLocked          = newError("TokensLocked", "tokens are still locked")
	ErrLockDurationDowngrade = newError("LockDurationDowngrade", "lock duration cannot be less than previous stake")
	ErrInvalidLockDuration   = newError("InvalidLockDuration", "invalid lock duration")
	ErrNoTokensToUnstake     = newError("NoTokensToUnstake", "no tokens to unstake")

	ErrInsufficientFunds  = newError("InsufficientFunds", "insufficient funds")
	ErrInvalidAmount      = newError("InvalidAmount", "amount must be greater than 0")
	ErrArithmeticOverflow = newError("ArithmeticOverflow", "arithmetic overflow")

	ErrInvalidDelegate           = newError("InvalidDelegate", "delegate is not authorized or inactive")
	ErrDelegationLoop            = newError("DelegationLoop", "delegation loop detected")
	ErrDelegateCannotDelegate    = newError("DelegateCannotDelegate", "delegates cannot delegate")
	ErrDelegatorCannotBeDelegate = newError("DelegatorCannotBeDelegate", "delegators cannot become delegates")
	ErrDirectVoteExists          = newError("DirectVoteExists", "user has already voted directly, proxy cannot override")

	ErrInsufficientScore = newError("InsufficientScore", "insufficient score to claim badge")
	ErrAlreadyClaimed    = newError("AlreadyClaimed", "badge already claimed")
	ErrFaucetCooldown    = newError("FaucetCooldown", "faucet cooldown has not elapsed")
	ErrFaucetDisabled    = newError("FaucetDisabled", "faucet is disabled")

	ErrInvalidSignature     = newError("InvalidSignature", "transaction signature is invalid")
	ErrTransactionExpired   = newError("TransactionExpired", "transaction has expired")
	ErrDuplicateTransaction = newError("DuplicateTransaction", "transaction was already processed")
)

// ErrorCode returns the tag of the first governance error in err's chain, or
// an empty string if there is none
func ErrorCode(err error) string {
	var govErr *Error
	if errors.As(err, &govErr) {
		return govErr.Code
	}
	return ""
}

// reject wraps a tagged error with context while keeping errors.Is working
func reject(tag *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", tag, fmt.Sprintf(format, args...))
}
