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

// Package archive exports the authoritative blob state to a compressed,
// optionally encrypted snapshot and imports it into an empty database.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/klauspost/compress/zstd"
	"github.com/raulk/clock"

	"github.com/blinklabs-io/pulsar/database"
	"github.com/blinklabs-io/pulsar/database/sops"
	"github.com/blinklabs-io/pulsar/database/types"
)

const SnapshotVersion = 1

// Decoded snapshots larger than this are rejected
const maxSnapshotSize = 4 << 30

var (
	ErrDatabaseNotEmpty   = errors.New("database is not empty")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	ErrInvalidEntry       = errors.New("snapshot entry outside of state keyspace")
)

// zstd frame magic number, little endian
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type Entry struct {
	cbor.StructAsArray
	Key   []byte
	Value []byte
}

type Snapshot struct {
	cbor.StructAsArray
	Version   uint
	CreatedAt int64
	Entries   []Entry
}

type Result struct {
	Name      string
	Entries   int
	Size      int
	Encrypted bool
}

type options struct {
	logger  *slog.Logger
	clock   clock.Clock
	encrypt bool
}

type OptionFunc func(*options)

func WithLogger(logger *slog.Logger) OptionFunc {
	return func(o *options) {
		o.logger = logger
	}
}

func WithClock(clk clock.Clock) OptionFunc {
	return func(o *options) {
		o.clock = clk
	}
}

// WithEncryption overrides whether exported snapshots are SOPS encrypted.
// By default they are whenever a SOPS master key is configured.
func WithEncryption(encrypt bool) OptionFunc {
	return func(o *options) {
		o.encrypt = encrypt
	}
}

func newOptions(opts []OptionFunc) *options {
	o := &options{
		clock:   clock.New(),
		encrypt: sops.Enabled(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return o
}

// Export writes every state key to the sink under name. All keys are read
// from a single snapshot of the blob store.
func Export(
	ctx context.Context,
	db *database.Database,
	sink Sink,
	name string,
	opts ...OptionFunc,
) (*Result, error) {
	o := newOptions(opts)
	snap := Snapshot{
		Version:   SnapshotVersion,
		CreatedAt: o.clock.Now().Unix(),
	}
	txn := database.NewBlobOnlyTxn(db, false)
	defer txn.Release()
	for _, prefix := range types.StateKeyPrefixes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := db.BlobScan([]byte(prefix), txn, func(key []byte, val []byte) error {
			snap.Entries = append(snap.Entries, Entry{
				Key:   bytes.Clone(key),
				Value: val,
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %q: %w", prefix, err)
		}
	}
	data, err := encode(&snap, o.encrypt)
	if err != nil {
		return nil, err
	}
	if err := sink.Put(ctx, name, data); err != nil {
		return nil, fmt.Errorf("write snapshot %q: %w", name, err)
	}
	o.logger.Info(
		"exported state snapshot",
		"component", "archive",
		"name", name,
		"entries", len(snap.Entries),
		"bytes", len(data),
		"encrypted", o.encrypt,
	)
	return &Result{
		Name:      name,
		Entries:   len(snap.Entries),
		Size:      len(data),
		Encrypted: o.encrypt,
	}, nil
}

// Import loads a snapshot written by Export into an empty database. All
// entries are written in one transaction. The metadata index is not
// touched; callers rebuild it afterwards.
func Import(
	ctx context.Context,
	db *database.Database,
	sink Sink,
	name string,
	opts ...OptionFunc,
) (*Result, error) {
	o := newOptions(opts)
	empty, err := db.IsEmpty()
	if err != nil {
		return nil, err
	}
	if !empty {
		return nil, ErrDatabaseNotEmpty
	}
	data, err := sink.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", name, err)
	}
	snap, encrypted, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", name, err)
	}
	for _, entry := range snap.Entries {
		if !types.IsStateKey(entry.Key) {
			return nil, fmt.Errorf("%w: %x", ErrInvalidEntry, entry.Key)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		for _, entry := range snap.Entries {
			if err := db.BlobSet(entry.Key, entry.Value, txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("write snapshot entries: %w", err)
	}
	o.logger.Info(
		"imported state snapshot",
		"component", "archive",
		"name", name,
		"entries", len(snap.Entries),
		"created_at", time.Unix(snap.CreatedAt, 0).UTC().Format(time.RFC3339),
		"encrypted", encrypted,
	)
	return &Result{
		Name:      name,
		Entries:   len(snap.Entries),
		Size:      len(data),
		Encrypted: encrypted,
	}, nil
}

func encode(snap *Snapshot, encrypt bool) ([]byte, error) {
	raw, err := cbor.Encode(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	ret := enc.EncodeAll(raw, nil)
	if encrypt {
		ret, err = sops.Encrypt(ret)
		if err != nil {
			return nil, fmt.Errorf("encrypt snapshot: %w", err)
		}
	}
	return ret, nil
}

func decode(data []byte) (*Snapshot, bool, error) {
	var encrypted bool
	if !bytes.HasPrefix(data, zstdMagic) {
		plain, err := sops.Decrypt(data)
		if err != nil {
			return nil, false, fmt.Errorf("decrypt: %w", err)
		}
		data = plain
		encrypted = true
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxSnapshotSize))
	if err != nil {
		return nil, false, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompress: %w", err)
	}
	var snap Snapshot
	if _, err := cbor.Decode(raw, &snap); err != nil {
		return nil, false, err
	}
	if snap.Version != SnapshotVersion {
		return nil, false, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	return &snap, encrypted, nil
}
