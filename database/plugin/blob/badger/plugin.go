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
	"sync"

	"github.com/blinklabs-io/certledger/database/plugin"
)

// Default sizes for BadgerDB (in bytes). The journal is small and append-only,
// so these are well below badger's own defaults
const (
	DefaultBlockCacheSize    = 67108864  // 64MB
	DefaultIndexCacheSize    = 33554432  // 32MB
	DefaultValueLogFileSize  = 268435455 // 256MB - 1
	DefaultMemTableSize      = 33554432  // 32MB
	DefaultValueThreshold    = 1024
	DefaultGcIntervalMinutes = 5
	DefaultDataDir           = ".certledger"
)

var (
	cmdlineOptions = struct {
		dataDir           string
		blockCacheSize    uint64
		indexCacheSize    uint64
		gcIntervalMinutes uint64
		gcEnabled         bool
		syncWrites        bool
	}{
		dataDir:           DefaultDataDir,
		blockCacheSize:    DefaultBlockCacheSize,
		indexCacheSize:    DefaultIndexCacheSize,
		gcIntervalMinutes: DefaultGcIntervalMinutes,
		gcEnabled:         true,
		syncWrites:        true,
	}
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "badger",
			Description:        "BadgerDB event journal",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "directory holding the journal, empty for in-memory",
					DefaultValue: DefaultDataDir,
					Dest:         &(cmdlineOptions.dataDir),
				},
				{
					Name:         "block-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "block cache size in bytes",
					DefaultValue: uint64(DefaultBlockCacheSize),
					Dest:         &(cmdlineOptions.blockCacheSize),
				},
				{
					Name:         "index-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "index cache size in bytes",
					DefaultValue: uint64(DefaultIndexCacheSize),
					Dest:         &(cmdlineOptions.indexCacheSize),
				},
				{
					Name:         "gc",
					Type:         plugin.PluginOptionTypeBool,
					Description:  "run value log garbage collection",
					DefaultValue: true,
					Dest:         &(cmdlineOptions.gcEnabled),
				},
				{
					Name:         "gc-interval",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "minutes between value log garbage collection runs",
					DefaultValue: uint64(DefaultGcIntervalMinutes),
					Dest:         &(cmdlineOptions.gcIntervalMinutes),
				},
				{
					Name:         "sync-writes",
					Type:         plugin.PluginOptionTypeBool,
					Description:  "fsync every journal commit",
					DefaultValue: true,
					Dest:         &(cmdlineOptions.syncWrites),
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	opts := cmdlineOptions
	cmdlineOptionsMutex.RUnlock()
	// Logger and registry arrive through Configure() before Start()
	p, err := New(
		WithDataDir(opts.dataDir),
		WithBlockCacheSize(opts.blockCacheSize),
		WithIndexCacheSize(opts.indexCacheSize),
		WithGc(opts.gcEnabled),
		WithGcInterval(opts.gcIntervalMinutes),
		WithSyncWrites(opts.syncWrites),
	)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
