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

package token_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/database"
	"github.com/blinklabs-io/pulsar/token"
)

var (
	testMint      = address.DefaultTokenMint()
	testAuthority = address.Derive([]byte("authority"))
	alice         = address.Derive([]byte("alice"))
	bob           = address.Derive([]byte("bob"))
)

func newTestLedger(t *testing.T) (*database.Database, *token.Ledger) {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ledger := token.New(db)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return ledger.CreateMint(txn, testMint, testAuthority, 6)
	}))
	return db, ledger
}

func TestCreateMint(t *testing.T) {
	db, ledger := newTestLedger(t)
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		return ledger.CreateMint(txn, testMint, testAuthority, 0)
	})
	require.ErrorIs(t, err, token.ErrMintExists)
	authority, decimals, err := ledger.MintInfo(nil, testMint)
	require.NoError(t, err)
	assert.Equal(t, testAuthority, authority)
	assert.Equal(t, uint8(6), decimals)
	_, err = ledger.GetMint(nil, alice)
	require.ErrorIs(t, err, token.ErrMintNotFound)
}

func TestMintAndTransfer(t *testing.T) {
	db, ledger := newTestLedger(t)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return ledger.Mint(txn, testMint, testAuthority, alice, 100)
	}))
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		return ledger.Mint(txn, testMint, alice, alice, 100)
	})
	require.ErrorIs(t, err, token.ErrUnauthorized)

	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return ledger.Transfer(txn, testMint, alice, bob, 40)
	}))
	balance, err := ledger.BalanceOf(nil, testMint, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), balance)
	balance, err = ledger.BalanceOf(nil, testMint, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), balance)

	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		return ledger.Transfer(txn, testMint, bob, alice, 41)
	})
	require.ErrorIs(t, err, token.ErrInsufficientFunds)

	holders, err := db.Metadata().GetTokenHolders(testMint.Bytes(), 10, nil)
	require.NoError(t, err)
	require.Len(t, holders, 2)
	assert.Equal(t, alice.Bytes(), holders[0].Owner)
}

func TestTransferRollsBackWithTxn(t *testing.T) {
	db, ledger := newTestLedger(t)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return ledger.Mint(txn, testMint, testAuthority, alice, 10)
	}))
	txn := db.Transaction(true)
	require.NoError(t, ledger.Transfer(txn, testMint, alice, bob, 10))
	require.NoError(t, txn.Rollback())
	balance, err := ledger.BalanceOf(nil, testMint, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), balance)
}

func TestSupplyOverflowAndLockedAuthority(t *testing.T) {
	db, ledger := newTestLedger(t)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return ledger.Mint(txn, testMint, testAuthority, alice, math.MaxUint64)
	}))
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		return ledger.Mint(txn, testMint, testAuthority, bob, 1)
	})
	require.ErrorIs(t, err, token.ErrSupplyOverflow)

	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return ledger.SetMintAuthority(txn, testMint, testAuthority, address.Zero)
	}))
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		return ledger.SetMintAuthority(txn, testMint, address.Zero, testAuthority)
	})
	require.ErrorIs(t, err, token.ErrUnauthorized)
}

func TestReindex(t *testing.T) {
	db, ledger := newTestLedger(t)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return ledger.Mint(txn, testMint, testAuthority, alice, 5)
	}))
	require.NoError(t, db.Metadata().ResetIndex(nil))
	require.NoError(t, db.Transaction(true).Do(ledger.Reindex))
	holders, err := db.Metadata().GetTokenHolders(testMint.Bytes(), 10, nil)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, uint64(5), uint64(holders[0].Amount))
}
