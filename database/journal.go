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
	"fmt"

	"github.com/blinklabs-io/certledger/database/models"
	"github.com/blinklabs-io/certledger/database/types"
	"github.com/fxamacker/cbor/v2"
)

// JournalEntry is an immutable record of a committed ledger operation
type JournalEntry struct {
	Type      string `cbor:"1,keyasint"`
	Actor     string `cbor:"2,keyasint,omitempty"`
	Subject   string `cbor:"3,keyasint,omitempty"`
	Payload   []byte `cbor:"4,keyasint,omitempty"`
	Seq       uint64 `cbor:"0,keyasint"`
	Timestamp int64  `cbor:"5,keyasint"`
}

var ErrJournalUnavailable = errors.New("journal requires a blob store")

// AppendJournal assigns the next journal sequence number to the entry and
// writes it in the given transaction
func (d *Database) AppendJournal(txn *Txn, entry *JournalEntry) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	if txn.Blob() == nil {
		return ErrJournalUnavailable
	}
	seq, err := d.metadata.NextSequence(models.SequenceJournal, txn.Metadata())
	if err != nil {
		return fmt.Errorf("journal sequence: %w", err)
	}
	entry.Seq = seq
	data, err := cbor.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	if err := d.blob.Set(txn.Blob(), types.JournalBlobKey(seq), data); err != nil {
		return fmt.Errorf("write journal entry %d: %w", seq, err)
	}
	return nil
}

// Journal returns up to limit entries starting at sequence number from, in
// sequence order. A zero limit returns all remaining entries
func (d *Database) Journal(from uint64, limit int) ([]JournalEntry, error) {
	txn := d.blob.NewTransaction(false)
	defer func() {
		_ = txn.Rollback()
	}()
	prefix := []byte(types.JournalBlobKeyPrefix)
	iter := d.blob.NewIterator(txn, types.BlobIteratorOptions{Prefix: prefix})
	defer iter.Close()
	ret := []JournalEntry{}
	for iter.Seek(types.JournalBlobKey(from)); iter.ValidForPrefix(prefix); iter.Next() {
		if limit > 0 && len(ret) >= limit {
			break
		}
		item := iter.Item()
		if _, err := types.JournalSeqFromKey(item.Key()); err != nil {
			continue
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		var entry JournalEntry
		if err := cbor.Unmarshal(val, &entry); err != nil {
			return nil, fmt.Errorf("decode journal entry: %w", err)
		}
		ret = append(ret, entry)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
