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

package types

import (
	"encoding/binary"
	"errors"
)

const (
	JournalBlobKeyPrefix = "j"
	JournalBlobKeyLength = len(JournalBlobKeyPrefix) + 8
)

var ErrInvalidJournalKey = errors.New("invalid journal key")

func JournalBlobKeyUint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// JournalBlobKey returns the blob key for the journal entry with the given
// sequence number. Keys sort in sequence order.
func JournalBlobKey(seq uint64) []byte {
	key := []byte(JournalBlobKeyPrefix)
	key = append(key, JournalBlobKeyUint64ToBytes(seq)...)
	return key
}

// JournalSeqFromKey extracts the sequence number from a journal blob key
func JournalSeqFromKey(key []byte) (uint64, error) {
	if len(key) != JournalBlobKeyLength ||
		string(key[:len(JournalBlobKeyPrefix)]) != JournalBlobKeyPrefix {
		return 0, ErrInvalidJournalKey
	}
	return binary.BigEndian.Uint64(key[len(JournalBlobKeyPrefix):]), nil
}
