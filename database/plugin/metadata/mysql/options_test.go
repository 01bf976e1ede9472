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
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/blinklabs-io/certledger/database/plugin/metadata/internal/gormstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m, err := NewWithOptions(
		WithHost("db.local"),
		WithPort(3307),
		WithUser("ledger"),
		WithPassword("secret"),
		WithDatabase("certs"),
		WithSSLMode("skip-verify"),
		WithTimeZone("UTC"),
		WithLogger(logger),
		WithPromRegistry(reg),
	)
	assert.NoError(t, err)
	assert.Equal(t, "db.local", m.host)
	assert.Equal(t, uint(3307), m.port)
	assert.Equal(t, "ledger", m.user)
	assert.Equal(t, "secret", m.password)
	assert.Equal(t, "certs", m.database)
	assert.Equal(t, "skip-verify", m.sslMode)
	assert.Equal(t, logger, m.logger)
	assert.Equal(t, reg, m.promRegistry)
}

func TestDefaults(t *testing.T) {
	m, err := NewWithOptions()
	assert.NoError(t, err)
	assert.Equal(t, "localhost", m.host)
	assert.Equal(t, uint(3306), m.port)
	assert.Equal(t, "root", m.user)
	assert.Equal(t, "certledger", m.database)
}

func TestDriverConfig(t *testing.T) {
	m, _ := NewWithOptions(
		WithUser("ledger"),
		WithPassword("secret"),
		WithDatabase("certs"),
		WithSSLMode("true"),
	)
	cfg, err := m.driverConfig()
	require.NoError(t, err)
	assert.Equal(t, "ledger", cfg.User)
	assert.Equal(t, "localhost:3306", cfg.Addr)
	assert.Equal(t, "certs", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	dsn := cfg.FormatDSN()
	assert.True(t, strings.HasPrefix(dsn, "ledger:secret@tcp(localhost:3306)/certs?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "tls=true")
}

func TestDriverConfigExplicitDSN(t *testing.T) {
	m, _ := NewWithOptions(WithDSN(" root@tcp(db:3306)/other "))
	cfg, err := m.driverConfig()
	require.NoError(t, err)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "other", cfg.DBName)
}

func TestDriverConfigBadTimeZone(t *testing.T) {
	m, _ := NewWithOptions(WithTimeZone("Not/AZone"))
	_, err := m.driverConfig()
	assert.Error(t, err)
}

func TestAdminConfig(t *testing.T) {
	m, _ := NewWithOptions(WithDatabase("certs"))
	cfg, err := m.driverConfig()
	require.NoError(t, err)
	admin, err := adminConfig(cfg)
	require.NoError(t, err)
	assert.Empty(t, admin.DBName)
	assert.Equal(t, "certs", cfg.DBName)

	cfg.DBName = ""
	_, err = adminConfig(cfg)
	assert.Error(t, err)
}

func TestPoolOptions(t *testing.T) {
	m, _ := NewWithOptions()
	assert.Equal(t, gormstore.DefaultPool(), m.pool)
	pool := gormstore.Pool{MaxOpenConns: 8, ConnMaxLifetimeSeconds: 60}
	m, _ = NewWithOptions(WithPool(pool))
	assert.Equal(t, pool, m.pool)
}

func TestCloseBeforeStart(t *testing.T) {
	m, _ := NewWithOptions()
	assert.NoError(t, m.Close())
}
