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

package ledger

import (
	"slices"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const lockShardCount = 256

// keyLocks serializes operations per ledger key. Keys hash onto a fixed set
// of mutexes, so unrelated keys rarely contend and memory stays bounded.
// Multiple keys are always locked in ascending shard order
type keyLocks struct {
	shards [lockShardCount]sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{}
}

func (l *keyLocks) shardsFor(keys []string) []int {
	ret := make([]int, 0, len(keys))
	for _, key := range keys {
		ret = append(ret, int(xxhash.Sum64String(key)%lockShardCount))
	}
	slices.Sort(ret)
	return slices.Compact(ret)
}

// Lock acquires the locks for all keys and returns a function releasing them
func (l *keyLocks) Lock(keys ...string) func() {
	shards := l.shardsFor(keys)
	for _, idx := range shards {
		l.shards[idx].Lock()
	}
	return func() {
		for i := len(shards) - 1; i >= 0; i-- {
			l.shards[shards[i]].Unlock()
		}
	}
}

func identityLockKey(identityKey string) string {
	return "identity/" + identityKey
}

func serialLockKey(serialNo string) string {
	return "serial/" + serialNo
}

func memoLockKey(memoNo string) string {
	return "memo/" + memoNo
}

func certificateLockKey(id uint64) string {
	return "certificate/" + strconv.FormatUint(id, 10)
}

func scholarshipLockKey(id uint64) string {
	return "scholarship/" + strconv.FormatUint(id, 10)
}

func balanceLockKey(account, asset string) string {
	return "balance/" + account + "/" + asset
}

func allowanceLockKey(owner, asset string) string {
	return "allowance/" + owner + "/" + asset
}
