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

// Package address provides the 32-byte identities used for both signers
// (ed25519 public keys) and deterministically derived record addresses.
package address

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
)

const Size = 32

var ErrInvalidLength = errors.New("invalid address length")

//nolint:recvcheck
type Address [Size]byte

// Zero is the empty address. It never identifies a signer or a record.
var Zero Address

func FromBytes(data []byte) (Address, error) {
	var ret Address
	if len(data) != Size {
		return ret, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidLength,
			Size,
			len(data),
		)
	}
	copy(ret[:], data)
	return ret, nil
}

func FromHex(s string) (Address, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return Zero, fmt.Errorf("decode address: %w", err)
	}
	return FromBytes(data)
}

// FromPublicKey returns the identity for an ed25519 public key
func FromPublicKey(pub ed25519.PublicKey) (Address, error) {
	return FromBytes(pub)
}

// PublicKey returns the address interpreted as an ed25519 public key
func (a Address) PublicKey() ed25519.PublicKey {
	return ed25519.PublicKey(a.Bytes())
}

func (a Address) Bytes() []byte {
	ret := make([]byte, Size)
	copy(ret, a[:])
	return ret
}

func (a Address) IsZero() bool {
	return a == Zero
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(data []byte) error {
	tmp, err := FromHex(string(data))
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

func (a Address) MarshalCBOR() ([]byte, error) {
	return cbor.Encode(a[:])
}

func (a *Address) UnmarshalCBOR(data []byte) error {
	var tmp []byte
	if _, err := cbor.Decode(data, &tmp); err != nil {
		return err
	}
	// An empty byte string decodes to the zero address
	if len(tmp) == 0 {
		*a = Zero
		return nil
	}
	ret, err := FromBytes(tmp)
	if err != nil {
		return err
	}
	*a = ret
	return nil
}
