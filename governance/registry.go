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
	"math/bits"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/token"
)

// Initialize creates the global registry with the caller as admin and moves
// the token mint authority to the registry address, so that only the
// authority can mint afterwards
func (a *Authority) Initialize(
	ctx context.Context,
	caller address.Address,
	tokenMint address.Address,
) error {
	return a.transition(ctx, "initialize", caller, func(st *txState) error {
		return a.initialize(st, caller, tokenMint)
	})
}

func (a *Authority) initialize(
	st *txState,
	caller address.Address,
	tokenMint address.Address,
) error {
	if caller.IsZero() || tokenMint.IsZero() {
		return reject(ErrInvalidArgument, "caller and token mint are required")
	}
	var existing GlobalRegistry
	found, err := a.records.get(
		st.txn,
		address.GlobalRegistry(),
		RecordKindGlobalRegistry,
		&existing,
	)
	if err != nil {
		return err
	}
	if found {
		return reject(ErrAlreadyInitialized, "global registry")
	}
	mintAuthority, _, err := a.ledger.MintInfo(st.txn, tokenMint)
	if err != nil {
		if errors.Is(err, token.ErrMintNotFound) {
			return reject(ErrAccountNotInitialized, "token mint %s", tokenMint)
		}
		return err
	}
	if mintAuthority != caller {
		return reject(ErrUnauthorized, "caller is not the mint authority")
	}
	if err := a.ledger.SetMintAuthority(st.txn, tokenMint, caller, address.GlobalRegistry()); err != nil {
		return mapLedgerError(err)
	}
	reg := &GlobalRegistry{
		Admin:         caller,
		TokenMint:     tokenMint,
		SystemEnabled: true,
	}
	if err := a.records.put(st.txn, address.GlobalRegistry(), RecordKindGlobalRegistry, reg); err != nil {
		return err
	}
	st.emit(InitializedEventType, InitializedEvent{Admin: caller, TokenMint: tokenMint})
	return nil
}

// ToggleCircuitBreaker flips the system-enabled flag. Admin only
func (a *Authority) ToggleCircuitBreaker(
	ctx context.Context,
	caller address.Address,
) error {
	return a.transition(ctx, "toggle_circuit_breaker", caller, func(st *txState) error {
		return a.toggleCircuitBreaker(st, caller)
	})
}

func (a *Authority) toggleCircuitBreaker(st *txState, caller address.Address) error {
	reg, err := a.requireAdmin(st.txn, caller)
	if err != nil {
		return err
	}
	reg.SystemEnabled = !reg.SystemEnabled
	if err := a.records.put(st.txn, address.GlobalRegistry(), RecordKindGlobalRegistry, reg); err != nil {
		return err
	}
	st.emit(CircuitBreakerEventType, CircuitBreakerEvent{Admin: caller, SystemEnabled: reg.SystemEnabled})
	return nil
}

// AdminMint mints amount whole tokens to target. Admin only
func (a *Authority) AdminMint(
	ctx context.Context,
	caller address.Address,
	target address.Address,
	amount uint64,
) error {
	return a.transition(ctx, "admin_mint", caller, func(st *txState) error {
		return a.adminMint(st, caller, target, amount)
	})
}

func (a *Authority) adminMint(
	st *txState,
	caller address.Address,
	target address.Address,
	amount uint64,
) error {
	reg, err := a.requireAdmin(st.txn, caller)
	if err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	if target.IsZero() {
		return reject(ErrInvalidArgument, "mint target is required")
	}
	return a.mintWhole(st, reg.TokenMint, target, amount)
}

// RequestTokens mints the faucet amount to the caller, at most once per
// faucet cooldown
func (a *Authority) RequestTokens(ctx context.Context, caller address.Address) error {
	return a.transition(ctx, "request_tokens", caller, func(st *txState) error {
		return a.requestTokens(st, caller)
	})
}

func (a *Authority) requestTokens(st *txState, caller address.Address) error {
	if a.policy.FaucetAmount == 0 {
		return ErrFaucetDisabled
	}
	reg, err := a.registry(st.txn)
	if err != nil {
		return err
	}
	faucetAddr := address.Faucet(caller)
	rec := FaucetRecord{Owner: caller}
	found, err := a.records.get(st.txn, faucetAddr, RecordKindFaucetRecord, &rec)
	if err != nil {
		return err
	}
	cooldown := int64(a.policy.FaucetCooldown.Seconds())
	if found && st.now < rec.LastRequestTime+cooldown {
		return reject(
			ErrFaucetCooldown,
			"next request allowed at %d",
			rec.LastRequestTime+cooldown,
		)
	}
	if err := a.mintWhole(st, reg.TokenMint, caller, a.policy.FaucetAmount); err != nil {
		return err
	}
	rec.LastRequestTime = st.now
	return a.records.put(st.txn, faucetAddr, RecordKindFaucetRecord, &rec)
}

// mintWhole mints whole tokens, scaled by the mint's decimals, using the
// registry as mint authority
func (a *Authority) mintWhole(
	st *txState,
	mint address.Address,
	to address.Address,
	amount uint64,
) error {
	_, decimals, err := a.ledger.MintInfo(st.txn, mint)
	if err != nil {
		return err
	}
	scaled, err := scaleAmount(amount, decimals)
	if err != nil {
		return err
	}
	if err := a.ledger.Mint(st.txn, mint, address.GlobalRegistry(), to, scaled); err != nil {
		return mapLedgerError(err)
	}
	return nil
}

// scaleAmount returns amount * 10^decimals with overflow checking
func scaleAmount(amount uint64, decimals uint8) (uint64, error) {
	ret := amount
	for range decimals {
		hi, lo := bits.Mul64(ret, 10)
		if hi != 0 {
			return 0, reject(ErrArithmeticOverflow, "scaling %d by %d decimals", amount, decimals)
		}
		ret = lo
	}
	return ret, nil
}

// mapLedgerError translates token ledger failures into governance tags
func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, token.ErrInsufficientFunds):
		return reject(ErrInsufficientFunds, "%s", err)
	case errors.Is(err, token.ErrSupplyOverflow):
		return reject(ErrArithmeticOverflow, "%s", err)
	case errors.Is(err, token.ErrUnauthorized):
		return reject(ErrUnauthorized, "%s", err)
	default:
		return err
	}
}
