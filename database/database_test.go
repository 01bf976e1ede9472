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
	"testing"

	"github.com/blinklabs-io/certledger/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := New(&Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestNewInMemory(t *testing.T) {
	db := newTestDatabase(t)
	assert.NotNil(t, db.Blob())
	assert.NotNil(t, db.Metadata())
	assert.NotNil(t, db.Logger())
	assert.Empty(t, db.DataDir())
}

func TestNewUnknownPlugin(t *testing.T) {
	_, err := New(&Config{MetadataPlugin: "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestJournalAppendAndRead(t *testing.T) {
	db := newTestDatabase(t)
	for _, typ := range []string{"identity.registered", "certificate.minted", "certificate.revoked"} {
		txn := db.Transaction(true)
		err := txn.Do(func(txn *Txn) error {
			return db.AppendJournal(txn, &JournalEntry{
				Type:      typ,
				Actor:     "admin",
				Subject:   "1",
				Timestamp: 1700000000000,
			})
		})
		require.NoError(t, err)
	}
	entries, err := db.Journal(0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, entry := range entries {
		assert.Equal(t, uint64(i+1), entry.Seq)
		assert.Equal(t, "admin", entry.Actor)
	}
	assert.Equal(t, "certificate.revoked", entries[2].Type)

	entries, err = db.Journal(2, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(2), entries[0].Seq)
	assert.Equal(t, "certificate.minted", entries[0].Type)
}

func TestJournalRollback(t *testing.T) {
	db := newTestDatabase(t)
	errAbort := errors.New("abort")
	txn := db.Transaction(true)
	err := txn.Do(func(txn *Txn) error {
		if err := db.AppendJournal(txn, &JournalEntry{Type: "discarded"}); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)
	entries, err := db.Journal(0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The rolled back sequence number is reused
	txn = db.Transaction(true)
	require.NoError(t, txn.Do(func(txn *Txn) error {
		return db.AppendJournal(txn, &JournalEntry{Type: "kept"})
	}))
	entries, err = db.Journal(0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(1), entries[0].Seq)
}

func TestJournalRequiresBlobTxn(t *testing.T) {
	db := newTestDatabase(t)
	txn := NewMetadataOnlyTxn(db, true)
	defer txn.Release()
	err := db.AppendJournal(txn, &JournalEntry{Type: "x"})
	assert.ErrorIs(t, err, ErrJournalUnavailable)
}

func TestTxnOnCommit(t *testing.T) {
	db := newTestDatabase(t)
	var calls []string
	txn := db.Transaction(true)
	txn.OnCommit(func() { calls = append(calls, "first") })
	txn.OnCommit(func() { calls = append(calls, "second") })
	require.NoError(t, txn.Commit())
	assert.Equal(t, []string{"first", "second"}, calls)
	// A second commit is a no-op
	require.NoError(t, txn.Commit())
	assert.Len(t, calls, 2)

	calls = nil
	txn = db.Transaction(true)
	txn.OnCommit(func() { calls = append(calls, "never") })
	require.NoError(t, txn.Rollback())
	require.NoError(t, txn.Commit())
	assert.Empty(t, calls)
}

func TestCommitTimestamp(t *testing.T) {
	db := newTestDatabase(t)
	txn := db.Transaction(true)
	require.NoError(t, txn.Do(func(txn *Txn) error {
		_, err := db.Metadata().NextSequence(models.SequenceCertificate, txn.Metadata())
		return err
	}))
	metadataTs, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)
	blobTs, err := db.Blob().GetCommitTimestamp()
	require.NoError(t, err)
	assert.Positive(t, metadataTs)
	assert.Equal(t, metadataTs, blobTs)
	require.NoError(t, db.checkCommitTimestamp())

	mtxn := db.Metadata().Transaction()
	require.NoError(t, db.Metadata().SetCommitTimestamp(metadataTs+1, mtxn))
	require.NoError(t, mtxn.Commit())
	err = db.checkCommitTimestamp()
	var tsErr CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, metadataTs+1, tsErr.MetadataTimestamp)
	assert.Equal(t, blobTs, tsErr.BlobTimestamp)
}

func TestCommitTimestampJournalOnly(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.checkCommitTimestamp())

	btxn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().SetCommitTimestamp(1700000000000, btxn))
	require.NoError(t, btxn.Commit())

	err := db.checkCommitTimestamp()
	var tsErr CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Zero(t, tsErr.MetadataTimestamp)
	assert.Contains(t, err.Error(), "metadata=none")
	assert.Contains(t, err.Error(), "journal=2023-11-14T22:13:20Z")
}
