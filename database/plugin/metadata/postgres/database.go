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

package postgres

import (
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/blinklabs-io/certledger/database/plugin/metadata/internal/gormstore"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
)

// MetadataStorePostgres keeps the ledger tables in PostgreSQL
type MetadataStorePostgres struct {
	*gormstore.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger

	host     string
	port     uint
	user     string
	password string
	database string
	sslMode  string
	timeZone string
	dsn      string
	pool     gormstore.Pool
}

// NewWithOptions creates the store. No connection is made until Start()
func NewWithOptions(opts ...PostgresOptionFunc) (*MetadataStorePostgres, error) {
	def := defaultConnOptions()
	db := &MetadataStorePostgres{
		host:     def.host,
		port:     uint(def.port),
		user:     def.user,
		database: def.database,
		sslMode:  def.sslMode,
		timeZone: def.timeZone,
		pool:     def.pool,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Configure implements the plugin.Configurable interface
func (d *MetadataStorePostgres) Configure(
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) {
	d.logger = logger
	d.promRegistry = promRegistry
}

// connString returns the explicit DSN when one is set, otherwise a libpq
// keyword/value string built from the individual settings
func (d *MetadataStorePostgres) connString() string {
	if dsn := strings.TrimSpace(d.dsn); dsn != "" {
		return dsn
	}
	var sb strings.Builder
	add := func(key, val string) {
		if val == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(key + "=" + val)
	}
	add("host", d.host)
	add("port", strconv.FormatUint(uint64(d.port), 10))
	add("user", d.user)
	add("password", d.password)
	add("dbname", d.database)
	add("sslmode", d.sslMode)
	add("TimeZone", d.timeZone)
	return sb.String()
}

// Start implements the plugin.Plugin interface
func (d *MetadataStorePostgres) Start() error {
	if d.Store != nil {
		return nil
	}
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	conn, err := gormstore.Open(postgres.Open(d.connString()), d.pool)
	if err != nil {
		return err
	}
	d.logger.Info(
		"opened postgres ledger store",
		"component", "database",
		"host", d.host,
		"port", d.port,
		"database", d.database,
	)
	d.Store = gormstore.New(conn, d.logger)
	return d.Init()
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStorePostgres) Stop() error {
	return d.Close()
}

// Close is safe to call on a store that never started
func (d *MetadataStorePostgres) Close() error {
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}
