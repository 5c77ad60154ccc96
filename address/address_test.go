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

package address_test

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/pulsar/address"
)

func TestDeriveDeterministic(t *testing.T) {
	a := address.Derive([]byte("proposal"), []byte{1, 0, 0, 0, 0, 0, 0, 0})
	b := address.Proposal(1)
	assert.Equal(t, a, b)
	assert.NotEqual(t, address.Proposal(1), address.Proposal(2))
	assert.NotEqual(t, address.Proposal(1), address.ProposalEscrow(1))
}

func TestDeriveLengthPrefix(t *testing.T) {
	a := address.Derive([]byte("ab"), []byte("c"))
	b := address.Derive([]byte("a"), []byte("bc"))
	assert.NotEqual(t, a, b)
}

func TestVoterAddressDependsOnBothKeys(t *testing.T) {
	voter1 := address.Derive([]byte("voter-1"))
	voter2 := address.Derive([]byte("voter-2"))
	p1 := address.Proposal(1)
	p2 := address.Proposal(2)
	seen := map[address.Address]bool{
		address.Voter(p1, voter1): true,
		address.Voter(p1, voter2): true,
		address.Voter(p2, voter1): true,
		address.Voter(p2, voter2): true,
	}
	assert.Len(t, seen, 4)
}

func TestHexText(t *testing.T) {
	orig := address.GlobalRegistry()
	text, err := orig.MarshalText()
	require.NoError(t, err)
	assert.Len(t, text, address.Size*2)
	var parsed address.Address
	require.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, orig, parsed)
	_, err = address.FromHex("abcd")
	require.ErrorIs(t, err, address.ErrInvalidLength)
	_, err = address.FromHex("zz")
	require.Error(t, err)
}

func TestJSONAndCBOR(t *testing.T) {
	type wrapper struct {
		cbor.StructAsArray
		Addr address.Address `json:"addr"`
	}
	orig := wrapper{Addr: address.Vault(address.DefaultTokenMint())}
	jsonData, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), orig.Addr.String())
	cborData, err := cbor.Encode(&orig)
	require.NoError(t, err)
	var decoded wrapper
	_, err = cbor.Decode(cborData, &decoded)
	require.NoError(t, err)
	assert.Equal(t, orig.Addr, decoded.Addr)
}

func TestFromPublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	addr, err := address.FromPublicKey(pub)
	require.NoError(t, err)
	assert.Equal(t, pub, addr.PublicKey())
	assert.False(t, addr.IsZero())
	assert.True(t, address.Zero.IsZero())
}
