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
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/database"
)

// SignedTransaction carries an ed25519 signature by Signer over the exact
// Payload bytes
type SignedTransaction struct {
	Signer    address.Address `json:"signer"`
	Signature []byte          `json:"signature"`
	Payload   json.RawMessage `json:"payload"`
}

type TransactionPayload struct {
	// ExpiresAt is a unix time after which the transaction is rejected
	ExpiresAt int64 `json:"expiresAt"`
	// Nonce lets a signer submit the same instructions twice
	Nonce        string        `json:"nonce,omitempty"`
	Instructions []Instruction `json:"instructions"`
}

// SignTransaction encodes and signs a payload
func SignTransaction(
	key ed25519.PrivateKey,
	payload *TransactionPayload,
) (*SignedTransaction, error) {
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key")
	}
	signer, err := address.FromPublicKey(pub)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return &SignedTransaction{
		Signer:    signer,
		Signature: ed25519.Sign(key, data),
		Payload:   data,
	}, nil
}

// decodePayload verifies the signature and decodes the payload
func decodePayload(tx *SignedTransaction) (*TransactionPayload, error) {
	if tx == nil || tx.Signer.IsZero() || len(tx.Signature) != ed25519.SignatureSize {
		return nil, ErrInvalidSignature
	}
	if !ed25519.Verify(tx.Signer.PublicKey(), tx.Payload, tx.Signature) {
		return nil, ErrInvalidSignature
	}
	dec := json.NewDecoder(bytes.NewReader(tx.Payload))
	dec.DisallowUnknownFields()
	var payload TransactionPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, reject(ErrInvalidInstruction, "decode payload: %s", err)
	}
	return &payload, nil
}

// SubmitTransaction verifies a signed transaction and applies its
// instructions atomically as the signer. Each signature is accepted at most
// once
func (a *Authority) SubmitTransaction(
	ctx context.Context,
	tx *SignedTransaction,
) (*Receipt, error) {
	payload, err := decodePayload(tx)
	if err != nil {
		return nil, err
	}
	var receipt *Receipt
	err = a.transition(ctx, "submit_transaction", tx.Signer, func(st *txState) error {
		if st.now >= payload.ExpiresAt {
			return reject(ErrTransactionExpired, "expired at %d", payload.ExpiresAt)
		}
		tmpReceipt := newReceipt(tx.Signer, tx.Signature, len(payload.Instructions), st.now)
		err := a.records.create(
			st.txn,
			address.TransactionReceipt(tx.Signature),
			RecordKindReceipt,
			tmpReceipt,
		)
		if err != nil {
			if errors.Is(err, database.ErrBlobKeyExists) {
				return ErrDuplicateTransaction
			}
			return err
		}
		created, err := a.applyAll(st, tx.Signer, payload.Instructions)
		if err != nil {
			return err
		}
		if len(created) > 0 {
			tmpReceipt.Proposals = created
			if err := a.records.put(st.txn, address.TransactionReceipt(tx.Signature), RecordKindReceipt, tmpReceipt); err != nil {
				return err
			}
		}
		receipt = tmpReceipt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
