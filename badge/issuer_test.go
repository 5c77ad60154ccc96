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

package badge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/badge"
	"github.com/blinklabs-io/pulsar/database"
	"github.com/blinklabs-io/pulsar/token"
)

func TestIssueBadge(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ledger := token.New(db)
	issuer := badge.New(db, ledger)

	owner := address.Derive([]byte("owner"))
	mint := address.BadgeMint(owner)
	authority := address.UserStats(owner)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return issuer.IssueBadge(txn, mint, owner, authority, 1700000000)
	}))

	balance, err := ledger.BalanceOf(nil, mint, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), balance)
	tmpMint, err := ledger.GetMint(nil, mint)
	require.NoError(t, err)
	assert.True(t, tmpMint.Authority.IsZero())
	assert.Equal(t, uint64(1), tmpMint.Supply)
	assert.Equal(t, uint8(0), tmpMint.Decimals)

	tmpBadge, err := issuer.GetBadge(nil, mint)
	require.NoError(t, err)
	assert.Equal(t, owner, tmpBadge.Owner)
	assert.Equal(t, badge.DefaultSymbol, tmpBadge.Metadata.Symbol)
	assert.Equal(t, uint64(0), tmpBadge.MaxSupply)

	// Revoked authority blocks further minting
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		return ledger.Mint(txn, mint, authority, owner, 1)
	})
	require.ErrorIs(t, err, token.ErrUnauthorized)

	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		return issuer.IssueBadge(txn, mint, owner, authority, 1700000001)
	})
	require.ErrorIs(t, err, badge.ErrBadgeExists)

	var count int64
	require.NoError(t, db.Metadata().DB().Table("badge").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetBadgeMissing(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	issuer := badge.New(db, token.New(db), badge.WithMetadata("n", "s", "u"))
	_, err = issuer.GetBadge(nil, address.BadgeMint(address.Zero))
	require.ErrorIs(t, err, badge.ErrBadgeNotFound)
}
