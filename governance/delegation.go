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

func (a *Authority) delegateProfile(
	txn *database.Txn,
	id address.Address,
) (*DelegateProfile, bool, error) {
	var profile DelegateProfile
	found, err := a.records.get(txn, address.DelegateProfile(id), RecordKindDelegateProfile, &profile)
	if err != nil {
		return nil, false, err
	}
	return &profile, found, nil
}

// RegisterDelegate marks target as eligible to vote as a proxy. Admin only.
// An identity that currently delegates cannot become a delegate
func (a *Authority) RegisterDelegate(
	ctx context.Context,
	caller address.Address,
	target address.Address,
) error {
	return a.transition(ctx, "register_delegate", caller, func(st *txState) error {
		return a.registerDelegate(st, caller, target)
	})
}

func (a *Authority) registerDelegate(st *txState, caller address.Address, target address.Address) error {
	if _, err := a.requireAdmin(st.txn, caller); err != nil {
		return err
	}
	if target.IsZero() {
		return reject(ErrInvalidArgument, "delegate is required")
	}
	if _, delegating, err := a.delegation(st.txn, target); err != nil {
		return err
	} else if delegating {
		return ErrDelegatorCannotBeDelegate
	}
	profile := &DelegateProfile{
		Authority:    target,
		IsActive:     true,
		RegisteredAt: st.now,
	}
	if err := a.records.create(st.txn, address.DelegateProfile(target), RecordKindDelegateProfile, profile); err != nil {
		if errors.Is(err, database.ErrBlobKeyExists) {
			return reject(ErrAlreadyInitialized, "delegate profile for %s", target)
		}
		return err
	}
	return a.indexDelegateProfile(st.txn, profile)
}

// RemoveDelegate closes a delegate profile. Admin only. Existing proxy votes
// stay recorded
func (a *Authority) RemoveDelegate(
	ctx context.Context,
	caller address.Address,
	target address.Address,
) error {
	return a.transition(ctx, "remove_delegate", caller, func(st *txState) error {
		return a.removeDelegate(st, caller, target)
	})
}

func (a *Authority) removeDelegate(st *txState, caller address.Address, target address.Address) error {
	if _, err := a.requireAdmin(st.txn, caller); err != nil {
		return err
	}
	if _, found, err := a.delegateProfile(st.txn, target); err != nil {
		return err
	} else if !found {
		return reject(ErrAccountNotInitialized, "delegate profile for %s", target)
	}
	if err := a.records.delete(st.txn, address.DelegateProfile(target)); err != nil {
		return err
	}
	return a.unindexDelegateProfile(st.txn, target)
}

// DelegateVote points the caller's voting power at an active delegate,
// replacing any previous delegation
func (a *Authority) DelegateVote(
	ctx context.Context,
	caller address.Address,
	target address.Address,
) error {
	return a.transition(ctx, "delegate_vote", caller, func(st *txState) error {
		return a.delegateVote(st, caller, target)
	})
}

func (a *Authority) delegateVote(st *txState, caller address.Address, target address.Address) error {
	if _, err := a.registry(st.txn); err != nil {
		return err
	}
	if target == caller {
		return ErrDelegationLoop
	}
	if profile, found, err := a.delegateProfile(st.txn, caller); err != nil {
		return err
	} else if found && profile.IsActive {
		return ErrDelegateCannotDelegate
	}
	if profile, found, err := a.delegateProfile(st.txn, target); err != nil {
		return err
	} else if !found || !profile.IsActive {
		return reject(ErrInvalidDelegate, "%s is not an active delegate", target)
	}
	rec := &DelegationRecord{
		Delegator:      caller,
		DelegateTarget: target,
		DelegatedAt:    st.now,
	}
	if err := a.records.put(st.txn, address.DelegationRecord(caller), RecordKindDelegationRecord, rec); err != nil {
		return err
	}
	if err := a.indexDelegation(st.txn, rec); err != nil {
		return err
	}
	st.emit(DelegationChangedEventType, DelegationChangedEvent{Delegator: caller, Target: target})
	return nil
}

// RevokeDelegation closes the caller's delegation. Proxy votes already cast
// for the caller stay locked
func (a *Authority) RevokeDelegation(ctx context.Context, caller address.Address) error {
	return a.transition(ctx, "revoke_delegation", caller, func(st *txState) error {
		return a.revokeDelegation(st, caller)
	})
}

func (a *Authority) revokeDelegation(st *txState, caller address.Address) error {
	if _, found, err := a.delegation(st.txn, caller); err != nil {
		return err
	} else if !found {
		return reject(ErrAccountNotInitialized, "no delegation for %s", caller)
	}
	if err := a.records.delete(st.txn, address.DelegationRecord(caller)); err != nil {
		return err
	}
	if err := a.unindexDelegation(st.txn, caller); err != nil {
		return err
	}
	st.emit(DelegationChangedEventType, DelegationChangedEvent{Delegator: caller})
	return nil
}
