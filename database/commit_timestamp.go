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
	"fmt"
	"time"
)

// CommitTimestampError reports that the event journal and the ledger
// metadata were last committed by different transactions. This happens when
// a process dies between the two store commits, or when one store is
// replaced without the other
type CommitTimestampError struct {
	MetadataTimestamp int64
	BlobTimestamp     int64
}

func (e CommitTimestampError) Error() string {
	return fmt.Sprintf(
		"journal and metadata commit timestamps differ: metadata=%s journal=%s",
		formatCommitTimestamp(e.MetadataTimestamp),
		formatCommitTimestamp(e.BlobTimestamp),
	)
}

func formatCommitTimestamp(ts int64) string {
	if ts <= 0 {
		return "none"
	}
	return time.UnixMilli(ts).UTC().Format(time.RFC3339Nano)
}

// checkCommitTimestamp compares the last coordinated commit recorded by each
// store. Two empty stores are consistent. A populated store paired with an
// empty one is not
func (d *Database) checkCommitTimestamp() error {
	metadataTs, err := d.Metadata().GetCommitTimestamp()
	if err != nil {
		return fmt.Errorf("read metadata commit timestamp: %w", err)
	}
	blobTs, err := d.Blob().GetCommitTimestamp()
	if err != nil {
		return fmt.Errorf("read journal commit timestamp: %w", err)
	}
	if metadataTs != blobTs {
		return CommitTimestampError{
			MetadataTimestamp: metadataTs,
			BlobTimestamp:     blobTs,
		}
	}
	return nil
}

// updateCommitTimestamp stamps both halves of txn with the same value
func (d *Database) updateCommitTimestamp(txn *Txn, timestamp int64) error {
	if err := d.Metadata().SetCommitTimestamp(timestamp, txn.Metadata()); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if err := d.Blob().SetCommitTimestamp(timestamp, txn.Blob()); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}
