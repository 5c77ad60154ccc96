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

package database

import (
	"errors"

	"github.com/blinklabs-io/pulsar/database/types"
)

var ErrBlobKeyExists = errors.New("blob key already exists")

// BlobGet returns the value stored at key. A nil txn reads from a fresh
// read-only snapshot
func (d *Database) BlobGet(key []byte, txn *Txn) ([]byte, error) {
	if txn == nil {
		txn = NewBlobOnlyTxn(d, false)
		defer txn.Release()
	}
	if txn.Blob() == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	return d.Blob().Get(txn.Blob(), key)
}

func (d *Database) BlobSet(key []byte, val []byte, txn *Txn) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	if txn.Blob() == nil {
		return types.ErrBlobStoreUnavailable
	}
	return d.Blob().Set(txn.Blob(), key, val)
}

// BlobCreate stores a value at key, failing with ErrBlobKeyExists if the key
// is already present
func (d *Database) BlobCreate(key []byte, val []byte, txn *Txn) error {
	_, err := d.BlobGet(key, txn)
	if err == nil {
		return ErrBlobKeyExists
	}
	if !errors.Is(err, types.ErrBlobKeyNotFound) {
		return err
	}
	return d.BlobSet(key, val, txn)
}

func (d *Database) BlobDelete(key []byte, txn *Txn) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	if txn.Blob() == nil {
		return types.ErrBlobStoreUnavailable
	}
	return d.Blob().Delete(txn.Blob(), key)
}

// BlobScan calls fn for every key with the given prefix, in key order
func (d *Database) BlobScan(
	prefix []byte,
	txn *Txn,
	fn func(key []byte, val []byte) error,
) error {
	if txn == nil {
		txn = NewBlobOnlyTxn(d, false)
		defer txn.Release()
	}
	if txn.Blob() == nil {
		return types.ErrBlobStoreUnavailable
	}
	iter := d.Blob().NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{Prefix: prefix},
	)
	defer iter.Close()
	for iter.Rewind(); iter.ValidForPrefix(prefix); iter.Next() {
		item := iter.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(item.Key(), val); err != nil {
			return err
		}
	}
	return iter.Err()
}

// IsEmpty reports whether the blob store holds no governance state
func (d *Database) IsEmpty() (bool, error) {
	errFound := errors.New("found")
	for _, prefix := range types.StateKeyPrefixes {
		err := d.BlobScan([]byte(prefix), nil, func(_, _ []byte) error {
			return errFound
		})
		if errors.Is(err, errFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
	return true, nil
}
