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

// Package badge issues the non-transferable commander badge. A badge is a
// single-unit token whose mint authority is revoked right after issue.
package badge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/gouroboros/cbor"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/database"
	"github.com/blinklabs-io/pulsar/database/models"
	"github.com/blinklabs-io/pulsar/database/types"
	"github.com/blinklabs-io/pulsar/token"
)

const (
	DefaultName   = "Pulsar Commander"
	DefaultSymbol = "PLSR-CMD"
	DefaultURI    = "https://pulsar-dao.vercel.app/badge.json"
)

var (
	ErrBadgeExists   = errors.New("badge already issued")
	ErrBadgeNotFound = errors.New("badge not found")
)

type Metadata struct {
	cbor.StructAsArray
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`
}

// Badge is the stored record for an issued badge. MaxSupply is always 0,
// meaning no further units can be minted
type Badge struct {
	cbor.StructAsArray
	Mint      address.Address `json:"mint"`
	Owner     address.Address `json:"owner"`
	Authority address.Address `json:"authority"`
	Metadata  Metadata        `json:"metadata"`
	MaxSupply uint64          `json:"maxSupply"`
	IssuedAt  int64           `json:"issuedAt"`
}

type Issuer struct {
	db       *database.Database
	ledger   *token.Ledger
	metadata Metadata
	logger   *slog.Logger
}

type IssuerOptionFunc func(*Issuer)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) IssuerOptionFunc {
	return func(i *Issuer) {
		i.logger = logger
	}
}

// WithMetadata overrides the descriptive metadata attached to new badges
func WithMetadata(name string, symbol string, uri string) IssuerOptionFunc {
	return func(i *Issuer) {
		i.metadata = Metadata{Name: name, Symbol: symbol, URI: uri}
	}
}

func New(
	db *database.Database,
	ledger *token.Ledger,
	opts ...IssuerOptionFunc,
) *Issuer {
	i := &Issuer{
		db:     db,
		ledger: ledger,
		metadata: Metadata{
			Name:   DefaultName,
			Symbol: DefaultSymbol,
			URI:    DefaultURI,
		},
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return i
}

// IssueBadge creates the badge mint, mints one unit to owner and then
// revokes the mint authority so the supply stays fixed at one
func (i *Issuer) IssueBadge(
	txn *database.Txn,
	mint address.Address,
	owner address.Address,
	authority address.Address,
	issuedAt int64,
) error {
	key := types.BadgeKey(mint[:])
	if _, err := i.db.BlobGet(key, txn); err == nil {
		return fmt.Errorf("%w: %s", ErrBadgeExists, mint)
	} else if !errors.Is(err, types.ErrBlobKeyNotFound) {
		return err
	}
	if err := i.ledger.CreateMint(txn, mint, authority, 0); err != nil {
		if errors.Is(err, token.ErrMintExists) {
			return fmt.Errorf("%w: %s", ErrBadgeExists, mint)
		}
		return err
	}
	if err := i.ledger.Mint(txn, mint, authority, owner, 1); err != nil {
		return err
	}
	if err := i.ledger.SetMintAuthority(txn, mint, authority, address.Zero); err != nil {
		return err
	}
	tmpBadge := &Badge{
		Mint:      mint,
		Owner:     owner,
		Authority: authority,
		Metadata:  i.metadata,
		IssuedAt:  issuedAt,
	}
	data, err := cbor.Encode(tmpBadge)
	if err != nil {
		return err
	}
	if err := i.db.BlobSet(key, data, txn); err != nil {
		return err
	}
	if err := i.index(tmpBadge, txn); err != nil {
		return err
	}
	i.logger.Info(
		"issued badge",
		"component", "badge",
		"mint", mint.String(),
		"owner", owner.String(),
	)
	return nil
}

// GetBadge returns the badge record for a mint. A nil txn reads from a fresh
// snapshot
func (i *Issuer) GetBadge(txn *database.Txn, mint address.Address) (*Badge, error) {
	data, err := i.db.BlobGet(types.BadgeKey(mint[:]), txn)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBadgeNotFound, mint)
		}
		return nil, err
	}
	var ret Badge
	if _, err := cbor.Decode(data, &ret); err != nil {
		return nil, fmt.Errorf("decode badge: %w", err)
	}
	return &ret, nil
}

// Reindex writes every stored badge to the metadata index
func (i *Issuer) Reindex(txn *database.Txn) error {
	return i.db.BlobScan(
		[]byte(types.BadgeKeyPrefix),
		txn,
		func(_ []byte, val []byte) error {
			var tmpBadge Badge
			if _, err := cbor.Decode(val, &tmpBadge); err != nil {
				return fmt.Errorf("decode badge: %w", err)
			}
			return i.index(&tmpBadge, txn)
		},
	)
}

func (i *Issuer) index(tmpBadge *Badge, txn *database.Txn) error {
	if txn.Metadata() == nil {
		return nil
	}
	return i.db.Metadata().SetBadge(
		&models.Badge{
			Mint:     tmpBadge.Mint.Bytes(),
			Owner:    tmpBadge.Owner.Bytes(),
			IssuedAt: tmpBadge.IssuedAt,
		},
		txn.Metadata(),
	)
}
