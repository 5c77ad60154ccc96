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
	"errors"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/database"
)

// InitializeStake creates an empty stake record for the caller
func (a *Authority) InitializeStake(ctx context.Context, caller address.Address) error {
	return a.transition(ctx, "initialize_stake", caller, func(st *txState) error {
		return a.initializeStake(st, caller)
	})
}

func (a *Authority) initializeStake(st *txState, caller address.Address) error {
	if _, err := a.registry(st.txn); err != nil {
		return err
	}
	rec := &StakeRecord{Owner: caller, Multiplier: 1}
	if err := a.records.create(st.txn, address.StakeRecord(caller), RecordKindStakeRecord, rec); err != nil {
		if errors.Is(err, database.ErrBlobKeyExists) {
			return reject(ErrAlreadyInitialized, "stake record for %s", caller)
		}
		return err
	}
	return a.indexStake(st.txn, rec)
}

func (a *Authority) stakeRecord(txn *database.Txn, owner address.Address) (*StakeRecord, error) {
	var rec StakeRecord
	found, err := a.records.get(txn, address.StakeRecord(owner), RecordKindStakeRecord, &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, reject(ErrAccountNotInitialized, "stake record for %s", owner)
	}
	return &rec, nil
}

// DepositTokens moves amount base units from the caller into the stake
// vault and sets a new lock of lockDays from now. While a lock is active it
// may only be extended
func (a *Authority) DepositTokens(
	ctx context.Context,
	caller address.Address,
	amount uint64,
	lockDays uint64,
) error {
	return a.transition(ctx, "deposit_tokens", caller, func(st *txState) error {
		return a.depositTokens(st, caller, amount, lockDays)
	})
}

func (a *Authority) depositTokens(
	st *txState,
	caller address.Address,
	amount uint64,
	lockDays uint64,
) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if lockDays > min(a.policy.MaxLockDays, MaxLockDays) {
		return reject(ErrInvalidLockDuration, "lock of %d days exceeds the maximum", lockDays)
	}
	reg, err := a.registry(st.txn)
	if err != nil {
		return err
	}
	rec, err := a.stakeRecord(st.txn, caller)
	if err != nil {
		return err
	}
	if st.now < rec.LockEndTime && lockDays < rec.OriginalLockDays {
		return reject(
			ErrLockDurationDowngrade,
			"active lock is %d days",
			rec.OriginalLockDays,
		)
	}
	balance, err := a.ledger.BalanceOf(st.txn, reg.TokenMint, caller)
	if err != nil {
		return err
	}
	if balance < amount {
		return reject(ErrInsufficientFunds, "deposit needs %d, owner holds %d", amount, balance)
	}
	staked, err := checkedAdd(rec.StakedAmount, amount)
	if err != nil {
		return err
	}
	if err := a.ledger.Transfer(st.txn, reg.TokenMint, caller, address.Vault(reg.TokenMint), amount); err != nil {
		return mapLedgerError(err)
	}
	rec.StakedAmount = staked
	// lockDays is bounded by MaxLockDays, so this cannot overflow
	rec.LockEndTime = st.now + int64(lockDays)*SecondsPerDay // #nosec G115
	rec.OriginalLockDays = lockDays
	rec.Multiplier = LockMultiplier(lockDays)
	return a.saveStake(st, rec)
}

// UnstakeTokens returns the full stake to the caller once the lock expired
func (a *Authority) UnstakeTokens(ctx context.Context, caller address.Address) error {
	return a.transition(ctx, "unstake_tokens", caller, func(st *txState) error {
		return a.unstakeTokens(st, caller)
	})
}

func (a *Authority) unstakeTokens(st *txState, caller address.Address) error {
	reg, err := a.registry(st.txn)
	if err != nil {
		return err
	}
	rec, err := a.stakeRecord(st.txn, caller)
	if err != nil {
		return err
	}
	if rec.StakedAmount == 0 {
		return ErrNoTokensToUnstake
	}
	if st.now < rec.LockEndTime {
		return reject(ErrTokensLocked, "locked until %d", rec.LockEndTime)
	}
	if err := a.ledger.Transfer(st.txn, reg.TokenMint, address.Vault(reg.TokenMint), caller, rec.StakedAmount); err != nil {
		return mapLedgerError(err)
	}
	rec.StakedAmount = 0
	rec.LockEndTime = 0
	rec.OriginalLockDays = 0
	rec.Multiplier = 1
	return a.saveStake(st, rec)
}

func (a *Authority) saveStake(st *txState, rec *StakeRecord) error {
	if err := a.records.put(st.txn, address.StakeRecord(rec.Owner), RecordKindStakeRecord, rec); err != nil {
		return err
	}
	if err := a.indexStake(st.txn, rec); err != nil {
		return err
	}
	st.emit(StakeChangedEventType, StakeChangedEvent{
		Owner:        rec.Owner,
		StakedAmount: rec.StakedAmount,
		LockEndTime:  rec.LockEndTime,
		Multiplier:   rec.Multiplier,
	})
	return nil
}
