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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/certledger/database/plugin/metadata/internal/gormstore"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// errUnknownDatabase is the server error number for a missing schema
const errUnknownDatabase = 1049

// MetadataStoreMysql keeps the ledger tables in MySQL
type MetadataStoreMysql struct {
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
func NewWithOptions(opts ...MysqlOptionFunc) (*MetadataStoreMysql, error) {
	def := defaultConnOptions()
	db := &MetadataStoreMysql{
		host:     def.host,
		port:     uint(def.port),
		user:     def.user,
		database: def.database,
		timeZone: def.timeZone,
		pool:     def.pool,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Configure implements the plugin.Configurable interface
func (d *MetadataStoreMysql) Configure(
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) {
	d.logger = logger
	d.promRegistry = promRegistry
}

// driverConfig returns the parsed explicit DSN when one is set, otherwise a
// config built from the individual settings
func (d *MetadataStoreMysql) driverConfig() (*mysql.Config, error) {
	if dsn := strings.TrimSpace(d.dsn); dsn != "" {
		return mysql.ParseDSN(dsn)
	}
	cfg := mysql.NewConfig()
	cfg.User = d.user
	cfg.Passwd = d.password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.host, strconv.FormatUint(uint64(d.port), 10))
	cfg.DBName = d.database
	cfg.ParseTime = true
	if d.timeZone != "" {
		loc, err := time.LoadLocation(d.timeZone)
		if err != nil {
			return nil, fmt.Errorf("load time zone %q: %w", d.timeZone, err)
		}
		cfg.Loc = loc
	}
	if d.sslMode != "" {
		cfg.TLSConfig = d.sslMode
	}
	return cfg, nil
}

// Start implements the plugin.Plugin interface. A missing schema is created
// before connecting again
func (d *MetadataStoreMysql) Start() error {
	if d.Store != nil {
		return nil
	}
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg, err := d.driverConfig()
	if err != nil {
		return err
	}
	conn, err := gormstore.Open(gormmysql.Open(cfg.FormatDSN()), d.pool)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if !errors.As(err, &mysqlErr) || mysqlErr.Number != errUnknownDatabase {
			return err
		}
		if err := createSchema(cfg); err != nil {
			return fmt.Errorf("create database %s: %w", cfg.DBName, err)
		}
		d.logger.Info(
			"created mysql schema",
			"component", "database",
			"database", cfg.DBName,
		)
		conn, err = gormstore.Open(gormmysql.Open(cfg.FormatDSN()), d.pool)
		if err != nil {
			return err
		}
	}
	d.logger.Info(
		"opened mysql ledger store",
		"component", "database",
		"addr", cfg.Addr,
		"database", cfg.DBName,
	)
	d.Store = gormstore.New(conn, d.logger)
	return d.Init()
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Stop() error {
	return d.Close()
}

// Close is safe to call on a store that never started
func (d *MetadataStoreMysql) Close() error {
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}

// adminConfig returns a copy of cfg connecting without a default schema
func adminConfig(cfg *mysql.Config) (*mysql.Config, error) {
	if cfg.DBName == "" {
		return nil, errors.New("no database name in DSN")
	}
	admin := cfg.Clone()
	admin.DBName = ""
	return admin, nil
}

func createSchema(cfg *mysql.Config) error {
	admin, err := adminConfig(cfg)
	if err != nil {
		return err
	}
	adminDb, err := gorm.Open(
		gormmysql.Open(admin.FormatDSN()),
		gormstore.GormConfig(false),
	)
	if err != nil {
		return err
	}
	sqlAdminDb, err := adminDb.DB()
	if err != nil {
		return err
	}
	defer sqlAdminDb.Close()
	return adminDb.Exec(
		fmt.Sprintf(
			"CREATE DATABASE IF NOT EXISTS `%s`",
			strings.ReplaceAll(cfg.DBName, "`", "``"),
		),
	).Error
}
