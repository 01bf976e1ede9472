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

package mysql

import (
	"sync"

	"github.com/blinklabs-io/certledger/database/plugin"
	"github.com/blinklabs-io/certledger/database/plugin/metadata/internal/gormstore"
)

// connOptions holds the settings populated from flags, env vars and the
// config file before the plugin is instantiated
type connOptions struct {
	host     string
	port     uint64
	user     string
	password string
	database string
	sslMode  string
	timeZone string
	dsn      string
	pool     gormstore.Pool
}

// The password has no default, operators must supply their own credentials
func defaultConnOptions() connOptions {
	return connOptions{
		host:     "localhost",
		port:     3306,
		user:     "root",
		database: "certledger",
		timeZone: "UTC",
		pool:     gormstore.DefaultPool(),
	}
}

var (
	cmdlineOptions      = defaultConnOptions()
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "mysql",
			Description:        "MySQL ledger metadata store",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options:            pluginOptions(&cmdlineOptions),
		},
	)
}

func pluginOptions(opts *connOptions) []plugin.PluginOption {
	def := defaultConnOptions()
	ret := []plugin.PluginOption{
		{
			Name:         "host",
			Type:         plugin.PluginOptionTypeString,
			Description:  "MySQL server host",
			DefaultValue: def.host,
			Dest:         &(opts.host),
		},
		{
			Name:         "port",
			Type:         plugin.PluginOptionTypeUint,
			Description:  "MySQL server port",
			DefaultValue: def.port,
			Dest:         &(opts.port),
		},
		{
			Name:         "user",
			Type:         plugin.PluginOptionTypeString,
			Description:  "MySQL account used by the ledger",
			DefaultValue: def.user,
			Dest:         &(opts.user),
		},
		{
			Name:         "password",
			Type:         plugin.PluginOptionTypeString,
			Description:  "MySQL account password",
			DefaultValue: def.password,
			Dest:         &(opts.password),
		},
		{
			Name:         "database",
			Type:         plugin.PluginOptionTypeString,
			Description:  "MySQL schema holding the ledger tables, created on first start",
			DefaultValue: def.database,
			Dest:         &(opts.database),
		},
		{
			Name:         "ssl-mode",
			Type:         plugin.PluginOptionTypeString,
			Description:  "driver tls parameter (true, false, skip-verify, preferred)",
			DefaultValue: def.sslMode,
			Dest:         &(opts.sslMode),
		},
		{
			Name:         "timezone",
			Type:         plugin.PluginOptionTypeString,
			Description:  "location used to parse DATETIME columns",
			DefaultValue: def.timeZone,
			Dest:         &(opts.timeZone),
		},
		{
			Name:         "dsn",
			Type:         plugin.PluginOptionTypeString,
			Description:  "full go-sql-driver DSN, overrides the individual settings",
			DefaultValue: def.dsn,
			Dest:         &(opts.dsn),
		},
	}
	return append(ret, opts.pool.PluginOptions("MySQL")...)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	opts := cmdlineOptions
	cmdlineOptionsMutex.RUnlock()
	// Logger and registry arrive through Configure() before Start()
	p, err := NewWithOptions(
		WithHost(opts.host),
		WithPort(uint(opts.port)),
		WithUser(opts.user),
		WithPassword(opts.password),
		WithDatabase(opts.database),
		WithSSLMode(opts.sslMode),
		WithTimeZone(opts.timeZone),
		WithDSN(opts.dsn),
		WithPool(opts.pool),
	)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
