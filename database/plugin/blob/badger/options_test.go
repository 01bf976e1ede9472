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

package badger

import (
	"io"
	"log/slog"
	"testing"

	"github.com/blinklabs-io/certledger/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	b := &BlobStoreBadger{}
	for _, opt := range []BlobStoreBadgerOptionFunc{
		WithDataDir("/tmp/test"),
		WithBlockCacheSize(123456789),
		WithIndexCacheSize(987654321),
		WithGc(false),
		WithLogger(logger),
		WithPromRegistry(registry),
		WithValueLogFileSize(1024),
		WithMemTableSize(2048),
		WithValueThreshold(64),
		WithGcInterval(30),
		WithSyncWrites(false),
	} {
		opt(b)
	}
	assert.Equal(t, "/tmp/test", b.dataDir)
	assert.Equal(t, uint64(123456789), b.blockCacheSize)
	assert.Equal(t, uint64(987654321), b.indexCacheSize)
	assert.False(t, b.gcEnabled)
	assert.Equal(t, logger, b.logger)
	assert.Equal(t, registry, b.promRegistry)
	assert.Equal(t, int64(1024), b.valueLogFileSize)
	assert.Equal(t, int64(2048), b.memTableSize)
	assert.Equal(t, int64(64), b.valueThreshold)
	assert.Equal(t, uint64(30), b.gcIntervalMinutes)
	assert.False(t, b.syncWrites)
}

func TestDefaults(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	assert.True(t, b.gcEnabled)
	assert.True(t, b.syncWrites)
	assert.Equal(t, uint64(DefaultGcIntervalMinutes), b.gcIntervalMinutes)
	assert.Equal(t, uint64(DefaultBlockCacheSize), b.blockCacheSize)
}

func TestInMemoryGetSet(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	require.NoError(t, b.Start())
	defer b.Close()

	txn := b.NewTransaction(true)
	require.NoError(t, b.Set(txn, []byte("k1"), []byte("v1")))
	require.NoError(t, txn.Commit())

	txn = b.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := b.Get(txn, []byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
	_, err = b.Get(txn, []byte("missing"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestFinishedTxnRejected(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	require.NoError(t, b.Start())
	defer b.Close()

	txn := b.NewTransaction(true)
	require.NoError(t, txn.Rollback())
	err = b.Set(txn, []byte("k"), []byte("v"))
	require.ErrorIs(t, err, types.ErrTxnFinished)
	// Rollback after finish is a no-op
	require.NoError(t, txn.Rollback())
}

func TestCommitTimestamp(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	require.NoError(t, b.Start())
	defer b.Close()

	ts, err := b.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	txn := b.NewTransaction(true)
	require.NoError(t, b.SetCommitTimestamp(1700000000123, txn))
	require.NoError(t, txn.Commit())

	ts, err = b.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), ts)

	require.ErrorIs(t, b.SetCommitTimestamp(1, nil), types.ErrNilTxn)
}

func TestIteratorPrefix(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	require.NoError(t, b.Start())
	defer b.Close()

	txn := b.NewTransaction(true)
	for _, k := range []string{"a1", "a2", "b1"} {
		require.NoError(t, b.Set(txn, []byte(k), []byte(k)))
	}
	require.NoError(t, txn.Commit())

	txn = b.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	iter := b.NewIterator(txn, types.BlobIteratorOptions{Prefix: []byte("a")})
	defer iter.Close()
	var keys []string
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Item().Key()))
	}
	require.NoError(t, iter.Err())
	assert.Equal(t, []string{"a1", "a2"}, keys)
}
