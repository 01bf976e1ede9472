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

package plugin_test

import (
	"testing"

	"github.com/blinklabs-io/certledger/database/plugin"
	_ "github.com/blinklabs-io/certledger/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/certledger/database/plugin/metadata/mysql"
	_ "github.com/blinklabs-io/certledger/database/plugin/metadata/postgres"
	_ "github.com/blinklabs-io/certledger/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/certledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These cases mutate the registered plugins' option destinations, so they
// must not run in parallel with other tests in this package.
func TestSetPluginOption(t *testing.T) {
	testDefs := []struct {
		name       string
		pluginType plugin.PluginType
		pluginName string
		option     string
		value      any
		wantErr    bool
	}{
		{
			name:       "sqlite in-memory data dir",
			pluginType: plugin.PluginTypeMetadata,
			pluginName: config.DefaultMetadataPlugin,
			option:     "data-dir",
			value:      "",
		},
		{
			name:       "string option given int",
			pluginType: plugin.PluginTypeMetadata,
			pluginName: config.DefaultMetadataPlugin,
			option:     "data-dir",
			value:      123,
			wantErr:    true,
		},
		{
			name:       "unknown option is ignored",
			pluginType: plugin.PluginTypeMetadata,
			pluginName: config.DefaultMetadataPlugin,
			option:     "does-not-exist",
			value:      "x",
		},
		{
			name:       "badger data dir",
			pluginType: plugin.PluginTypeBlob,
			pluginName: config.DefaultBlobPlugin,
			option:     "data-dir",
			value:      t.TempDir(),
		},
		{
			name:       "badger cache size as uint64",
			pluginType: plugin.PluginTypeBlob,
			pluginName: config.DefaultBlobPlugin,
			option:     "block-cache-size",
			value:      uint64(100000000),
		},
		{
			name:       "badger cache size as negative int",
			pluginType: plugin.PluginTypeBlob,
			pluginName: config.DefaultBlobPlugin,
			option:     "index-cache-size",
			value:      -1,
			wantErr:    true,
		},
		{
			name:       "badger gc",
			pluginType: plugin.PluginTypeBlob,
			pluginName: config.DefaultBlobPlugin,
			option:     "gc",
			value:      true,
		},
		{
			name:       "badger gc given string",
			pluginType: plugin.PluginTypeBlob,
			pluginName: config.DefaultBlobPlugin,
			option:     "gc",
			value:      "yes",
			wantErr:    true,
		},
		{
			name:       "postgres port as int",
			pluginType: plugin.PluginTypeMetadata,
			pluginName: "postgres",
			option:     "port",
			value:      5432,
		},
		{
			name:       "mysql port as uint64",
			pluginType: plugin.PluginTypeMetadata,
			pluginName: "mysql",
			option:     "port",
			value:      uint64(3306),
		},
		{
			name:       "unknown plugin",
			pluginType: plugin.PluginTypeMetadata,
			pluginName: "nonexistent",
			option:     "data-dir",
			value:      "x",
			wantErr:    true,
		},
	}
	for _, tc := range testDefs {
		t.Run(tc.name, func(t *testing.T) {
			err := plugin.SetPluginOption(
				tc.pluginType,
				tc.pluginName,
				tc.option,
				tc.value,
			)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStartPluginNotFound(t *testing.T) {
	p, err := plugin.StartPlugin(
		plugin.PluginTypeBlob,
		"nonexistent",
		nil,
		nil,
	)
	require.Error(t, err)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "blob plugin 'nonexistent' not found")
}
