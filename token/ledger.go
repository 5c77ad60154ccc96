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

// Package token implements the fungible token ledger used by the governance
// authority. Balances live in the same database transaction as governance
// records, so token movements commit or roll back with them.
package token

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/blinklabs-io/gouroboros/cbor"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/database"
	"github.com/blinklabs-io/pulsar/database/models"
	"github.com/blinklabs-io/pulsar/database/types"
)

var (
	ErrMintNotFound      = errors.New("token mint not found")
	ErrMintExists        = errors.New("token mint already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnauthorized      = errors.New("signer is not the mint authority")
	ErrSupplyOverflow    = errors.New("mint would overflow token supply")
)

// Mint describes a token. A zero Authority means the supply is fixed
type Mint struct {
	cbor.StructAsArray
	Address   address.Address `json:"address"`
	Authority address.Address `json:"authority"`
	Decimals  uint8           `json:"decimals"`
	Supply    uint64          `json:"supply"`
}

type Ledger struct {
	db     *database.Database
	logger *slog.Logger
}

type LedgerOptionFunc func(*Ledger)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) LedgerOptionFunc {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func New(db *database.Database, opts ...LedgerOptionFunc) *Ledger {
	l := &Ledger{db: db}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return l
}

// CreateMint registers a new token
func (l *Ledger) CreateMint(
	txn *database.Txn,
	mint address.Address,
	authority address.Address,
	decimals uint8,
) error {
	data, err := cbor.Encode(&Mint{
		Address:   mint,
		Authority: authority,
		Decimals:  decimals,
	})
	if err != nil {
		return err
	}
	if err := l.db.BlobCreate(types.TokenMintKey(mint[:]), data, txn); err != nil {
		if errors.Is(err, database.ErrBlobKeyExists) {
			return fmt.Errorf("%w: %s", ErrMintExists, mint)
		}
		return err
	}
	l.logger.Debug(
		"created token mint",
		"component", "token",
		"mint", mint.String(),
		"decimals", decimals,
	)
	return nil
}

// GetMint returns the mint state. A nil txn reads from a fresh snapshot
func (l *Ledger) GetMint(txn *database.Txn, mint address.Address) (*Mint, error) {
	data, err := l.db.BlobGet(types.TokenMintKey(mint[:]), txn)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMintNotFound, mint)
		}
		return nil, err
	}
	var ret Mint
	if _, err := cbor.Decode(data, &ret); err != nil {
		return nil, fmt.Errorf("decode mint: %w", err)
	}
	return &ret, nil
}

// MintInfo returns the current mint authority and decimals
func (l *Ledger) MintInfo(
	txn *database.Txn,
	mint address.Address,
) (address.Address, uint8, error) {
	tmpMint, err := l.GetMint(txn, mint)
	if err != nil {
		return address.Zero, 0, err
	}
	return tmpMint.Authority, tmpMint.Decimals, nil
}

func (l *Ledger) putMint(txn *database.Txn, tmpMint *Mint) error {
	data, err := cbor.Encode(tmpMint)
	if err != nil {
		return err
	}
	return l.db.BlobSet(types.TokenMintKey(tmpMint.Address[:]), data, txn)
}

// SetMintAuthority hands mint authority from current to next. Passing the
// zero address as next fixes the supply permanently
func (l *Ledger) SetMintAuthority(
	txn *database.Txn,
	mint address.Address,
	current address.Address,
	next address.Address,
) error {
	tmpMint, err := l.GetMint(txn, mint)
	if err != nil {
		return err
	}
	if tmpMint.Authority.IsZero() || tmpMint.Authority != current {
		return ErrUnauthorized
	}
	tmpMint.Authority = next
	return l.putMint(txn, tmpMint)
}

// Mint creates amount base units and credits them to the owner
func (l *Ledger) Mint(
	txn *database.Txn,
	mint address.Address,
	authority address.Address,
	to address.Address,
	amount uint64,
) error {
	tmpMint, err := l.GetMint(txn, mint)
	if err != nil {
		return err
	}
	if tmpMint.Authority.IsZero() || tmpMint.Authority != authority {
		return ErrUnauthorized
	}
	if amount > math.MaxUint64-tmpMint.Supply {
		return ErrSupplyOverflow
	}
	tmpMint.Supply += amount
	if err := l.putMint(txn, tmpMint); err != nil {
		return err
	}
	balance, err := l.BalanceOf(txn, mint, to)
	if err != nil {
		return err
	}
	// Balances never exceed the supply, so this can't overflow
	return l.setBalance(txn, mint, to, balance+amount)
}

// BalanceOf returns the owner balance in base units. Unknown owners have a
// zero balance
func (l *Ledger) BalanceOf(
	txn *database.Txn,
	mint address.Address,
	owner address.Address,
) (uint64, error) {
	data, err := l.db.BlobGet(types.TokenBalanceKey(mint[:], owner[:]), txn)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid balance record length %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func (l *Ledger) setBalance(
	txn *database.Txn,
	mint address.Address,
	owner address.Address,
	amount uint64,
) error {
	key := types.TokenBalanceKey(mint[:], owner[:])
	if amount == 0 {
		if err := l.db.BlobDelete(key, txn); err != nil {
			return err
		}
	} else {
		data := make([]byte, 8)
		binary.BigEndian.PutUint64(data, amount)
		if err := l.db.BlobSet(key, data, txn); err != nil {
			return err
		}
	}
	if txn.Metadata() == nil {
		return nil
	}
	return l.db.Metadata().SetTokenBalance(
		&models.TokenBalance{
			Mint:   mint.Bytes(),
			Owner:  owner.Bytes(),
			Amount: types.Uint64(amount),
		},
		txn.Metadata(),
	)
}

// Transfer moves amount base units between owners
func (l *Ledger) Transfer(
	txn *database.Txn,
	mint address.Address,
	from address.Address,
	to address.Address,
	amount uint64,
) error {
	if _, err := l.GetMint(txn, mint); err != nil {
		return err
	}
	fromBalance, err := l.BalanceOf(txn, mint, from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fmt.Errorf(
			"%w: %s holds %d, needs %d",
			ErrInsufficientFunds,
			from,
			fromBalance,
			amount,
		)
	}
	if amount == 0 || from == to {
		return nil
	}
	toBalance, err := l.BalanceOf(txn, mint, to)
	if err != nil {
		return err
	}
	if err := l.setBalance(txn, mint, from, fromBalance-amount); err != nil {
		return err
	}
	return l.setBalance(txn, mint, to, toBalance+amount)
}

// Reindex writes every stored balance to the metadata index
func (l *Ledger) Reindex(txn *database.Txn) error {
	prefixLen := len(types.TokenBalanceKeyPrefix)
	return l.db.BlobScan(
		[]byte(types.TokenBalanceKeyPrefix),
		txn,
		func(key []byte, val []byte) error {
			if len(key) != prefixLen+2*address.Size || len(val) != 8 {
				return fmt.Errorf("invalid balance entry %x", key)
			}
			return l.db.Metadata().SetTokenBalance(
				&models.TokenBalance{
					Mint:   key[prefixLen : prefixLen+address.Size],
					Owner:  key[prefixLen+address.Size:],
					Amount: types.Uint64(binary.BigEndian.Uint64(val)),
				},
				txn.Metadata(),
			)
		},
	)
}
