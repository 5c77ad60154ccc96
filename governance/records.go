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

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/google/uuid"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/database"
	"github.com/blinklabs-io/pulsar/database/types"
)

// RecordKind is the leading byte of every stored governance record
type RecordKind uint8

const (
	RecordKindGlobalRegistry RecordKind = iota + 1
	RecordKindProposal
	RecordKindVoterRecord
	RecordKindStakeRecord
	RecordKindDelegateProfile
	RecordKindDelegationRecord
	RecordKindUserStats
	RecordKindFaucetRecord
	RecordKindReceipt
)

var recordKindNames = map[RecordKind]string{
	RecordKindGlobalRegistry:   "GlobalRegistry",
	RecordKindProposal:         "Proposal",
	RecordKindVoterRecord:      "VoterRecord",
	RecordKindStakeRecord:      "StakeRecord",
	RecordKindDelegateProfile:  "DelegateProfile",
	RecordKindDelegationRecord: "DelegationRecord",
	RecordKindUserStats:        "UserStats",
	RecordKindFaucetRecord:     "FaucetRecord",
	RecordKindReceipt:          "Receipt",
}

func (k RecordKind) String() string {
	if name, ok := recordKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("RecordKind(%d)", uint8(k))
}

const (
	ProposalTypeStandard uint8 = 0
	ProposalTypeTreasury uint8 = 1
)

const (
	ResolutionNone      = ""
	ResolutionExecuted  = "executed"
	ResolutionReclaimed = "reclaimed"
)

type GlobalRegistry struct {
	cbor.StructAsArray
	Admin         address.Address `json:"admin"`
	TokenMint     address.Address `json:"tokenMint"`
	ProposalCount uint64          `json:"proposalCount"`
	SystemEnabled bool            `json:"systemEnabled"`
}

type Proposal struct {
	cbor.StructAsArray
	Number              uint64          `json:"number"`
	Author              address.Address `json:"author"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	Deadline            int64           `json:"deadline"`
	Yes                 uint64          `json:"yes"`
	No                  uint64          `json:"no"`
	ProposalType        uint8           `json:"proposalType"`
	TransferAmount      uint64          `json:"transferAmount"`
	TransferDestination address.Address `json:"transferDestination"`
	TimelockSeconds     int64           `json:"timelockSeconds"`
	Executed            bool            `json:"executed"`
	Resolution          string          `json:"resolution"`
	CreatedAt           int64           `json:"createdAt"`
}

func (p *Proposal) IsTreasury() bool {
	return p.ProposalType == ProposalTypeTreasury
}

type VoterRecord struct {
	cbor.StructAsArray
	Proposal       address.Address `json:"proposal"`
	ProposalNumber uint64          `json:"proposalNumber"`
	Voter          address.Address `json:"voter"`
	Voted          bool            `json:"voted"`
	Vote           bool            `json:"vote"`
	VotingPower    uint64          `json:"votingPower"`
	StakedAmount   uint64          `json:"stakedAmount"`
	VotedByProxy   bool            `json:"votedByProxy"`
	Proxy          address.Address `json:"proxy"`
	CastAt         int64           `json:"castAt"`
}

type StakeRecord struct {
	cbor.StructAsArray
	Owner            address.Address `json:"owner"`
	StakedAmount     uint64          `json:"stakedAmount"`
	LockEndTime      int64           `json:"lockEndTime"`
	OriginalLockDays uint64          `json:"originalLockDays"`
	Multiplier       uint64          `json:"multiplier"`
}

type DelegateProfile struct {
	cbor.StructAsArray
	Authority    address.Address `json:"authority"`
	IsActive     bool            `json:"isActive"`
	RegisteredAt int64           `json:"registeredAt"`
}

type DelegationRecord struct {
	cbor.StructAsArray
	Delegator      address.Address `json:"delegator"`
	DelegateTarget address.Address `json:"delegateTarget"`
	DelegatedAt    int64           `json:"delegatedAt"`
}

type UserStats struct {
	cbor.StructAsArray
	User          address.Address `json:"user"`
	ProposalCount uint64          `json:"proposalCount"`
	LastVoteTime  int64           `json:"lastVoteTime"`
	Score         uint64          `json:"score"`
	BadgeClaimed  bool            `json:"badgeClaimed"`
}

type FaucetRecord struct {
	cbor.StructAsArray
	Owner           address.Address `json:"owner"`
	LastRequestTime int64           `json:"lastRequestTime"`
}

// Receipt records an accepted signed transaction. Its address is derived
// from the signature, so a replay collides with it
type Receipt struct {
	cbor.StructAsArray
	ID           string          `json:"id"`
	Signer       address.Address `json:"signer"`
	Signature    []byte          `json:"signature"`
	Instructions uint64          `json:"instructions"`
	Proposals    []uint64        `json:"proposals,omitempty"`
	AcceptedAt   int64           `json:"acceptedAt"`
}

func newReceipt(
	signer address.Address,
	signature []byte,
	instructions int,
	acceptedAt int64,
) *Receipt {
	return &Receipt{
		ID:           uuid.NewString(),
		Signer:       signer,
		Signature:    signature,
		Instructions: uint64(instructions), // #nosec G115
		AcceptedAt:   acceptedAt,
	}
}

func encodeRecord(kind RecordKind, v any) ([]byte, error) {
	body, err := cbor.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return append([]byte{byte(kind)}, body...), nil
}

// newRecord returns an empty value for a record kind
func newRecord(kind RecordKind) (any, error) {
	switch kind {
	case RecordKindGlobalRegistry:
		return &GlobalRegistry{}, nil
	case RecordKindProposal:
		return &Proposal{}, nil
	case RecordKindVoterRecord:
		return &VoterRecord{}, nil
	case RecordKindStakeRecord:
		return &StakeRecord{}, nil
	case RecordKindDelegateProfile:
		return &DelegateProfile{}, nil
	case RecordKindDelegationRecord:
		return &DelegationRecord{}, nil
	case RecordKindUserStats:
		return &UserStats{}, nil
	case RecordKindFaucetRecord:
		return &FaucetRecord{}, nil
	case RecordKindReceipt:
		return &Receipt{}, nil
	default:
		return nil, fmt.Errorf("unknown record kind %d", uint8(kind))
	}
}

// decodeRecord decodes a stored record into a value of its kind
func decodeRecord(data []byte) (RecordKind, any, error) {
	if len(data) < 2 {
		return 0, nil, errors.New("record too short")
	}
	kind := RecordKind(data[0])
	ret, err := newRecord(kind)
	if err != nil {
		return 0, nil, err
	}
	if _, err := cbor.Decode(data[1:], ret); err != nil {
		return 0, nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return kind, ret, nil
}

// recordStore reads and writes kind-prefixed records at derived addresses
type recordStore struct {
	db *database.Database
}

// get loads the record at addr into dest. It returns false if no record
// exists. A record of another kind at addr is an error
func (s recordStore) get(
	txn *database.Txn,
	addr address.Address,
	kind RecordKind,
	dest any,
) (bool, error) {
	data, err := s.db.BlobGet(types.RecordKey(addr[:]), txn)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if len(data) < 1 || RecordKind(data[0]) != kind {
		return false, fmt.Errorf(
			"record at %s is not a %s",
			addr,
			kind,
		)
	}
	if _, err := cbor.Decode(data[1:], dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", kind, err)
	}
	return true, nil
}

func (s recordStore) put(
	txn *database.Txn,
	addr address.Address,
	kind RecordKind,
	v any,
) error {
	data, err := encodeRecord(kind, v)
	if err != nil {
		return err
	}
	return s.db.BlobSet(types.RecordKey(addr[:]), data, txn)
}

// create stores a record that must not exist yet. It returns
// database.ErrBlobKeyExists if the address is occupied
func (s recordStore) create(
	txn *database.Txn,
	addr address.Address,
	kind RecordKind,
	v any,
) error {
	data, err := encodeRecord(kind, v)
	if err != nil {
		return err
	}
	return s.db.BlobCreate(types.RecordKey(addr[:]), data, txn)
}

func (s recordStore) delete(txn *database.Txn, addr address.Address) error {
	return s.db.BlobDelete(types.RecordKey(addr[:]), txn)
}
