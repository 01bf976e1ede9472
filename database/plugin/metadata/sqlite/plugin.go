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

package sqlite

import (
	"sync"

	"github.com/blinklabs-io/certledger/database/plugin"
)

const (
	DefaultDataDir       = ".certledger"
	DefaultBusyTimeoutMs = 5000
)

var (
	cmdlineOptions = struct {
		dataDir       string
		busyTimeoutMs uint64
		vacuum        bool
	}{
		dataDir:       DefaultDataDir,
		busyTimeoutMs: DefaultBusyTimeoutMs,
		vacuum:        true,
	}
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "sqlite",
			Description:        "embedded SQLite ledger metadata store",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "directory holding metadata.sqlite, empty for in-memory",
					DefaultValue: DefaultDataDir,
					Dest:         &(cmdlineOptions.dataDir),
				},
				{
					Name:         "busy-timeout",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "milliseconds to wait on a locked database",
					DefaultValue: uint64(DefaultBusyTimeoutMs),
					Dest:         &(cmdlineOptions.busyTimeoutMs),
				},
				{
					Name:         "vacuum",
					Type:         plugin.PluginOptionTypeBool,
					Description:  "run a daily VACUUM on the on-disk database",
					DefaultValue: true,
					Dest:         &(cmdlineOptions.vacuum),
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
	p, err := NewWithOptions(
		WithDataDir(opts.dataDir),
		WithBusyTimeout(opts.busyTimeoutMs),
		WithVacuum(opts.vacuum),
	)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
