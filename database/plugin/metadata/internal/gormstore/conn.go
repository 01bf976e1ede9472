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

package gormstore

import (
	"time"

	"github.com/blinklabs-io/certledger/database/plugin"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DefaultMaxOpenConns           = 100
	DefaultMaxIdleConns           = 10
	DefaultConnMaxLifetimeSeconds = 3600
)

// Pool holds the connection pool limits for the network-backed dialects
type Pool struct {
	MaxOpenConns           uint64
	MaxIdleConns           uint64
	ConnMaxLifetimeSeconds uint64
}

// DefaultPool returns the limits used when none are configured
func DefaultPool() Pool {
	return Pool{
		MaxOpenConns:           DefaultMaxOpenConns,
		MaxIdleConns:           DefaultMaxIdleConns,
		ConnMaxLifetimeSeconds: DefaultConnMaxLifetimeSeconds,
	}
}

// withDefaults fills unset limits. Idle connections never exceed open ones
func (p Pool) withDefaults() Pool {
	def := DefaultPool()
	if p.MaxOpenConns == 0 {
		p.MaxOpenConns = def.MaxOpenConns
	}
	if p.MaxIdleConns == 0 {
		p.MaxIdleConns = def.MaxIdleConns
	}
	if p.MaxIdleConns > p.MaxOpenConns {
		p.MaxIdleConns = p.MaxOpenConns
	}
	if p.ConnMaxLifetimeSeconds == 0 {
		p.ConnMaxLifetimeSeconds = def.ConnMaxLifetimeSeconds
	}
	return p
}

// PluginOptions returns the plugin options that populate the pool limits.
// The prefix names the dialect in option descriptions
func (p *Pool) PluginOptions(prefix string) []plugin.PluginOption {
	return []plugin.PluginOption{
		{
			Name:         "max-open-conns",
			Type:         plugin.PluginOptionTypeUint,
			Description:  prefix + " maximum open connections",
			DefaultValue: uint64(DefaultMaxOpenConns),
			Dest:         &(p.MaxOpenConns),
		},
		{
			Name:         "max-idle-conns",
			Type:         plugin.PluginOptionTypeUint,
			Description:  prefix + " maximum idle connections",
			DefaultValue: uint64(DefaultMaxIdleConns),
			Dest:         &(p.MaxIdleConns),
		},
		{
			Name:         "conn-max-lifetime",
			Type:         plugin.PluginOptionTypeUint,
			Description:  prefix + " connection lifetime in seconds",
			DefaultValue: uint64(DefaultConnMaxLifetimeSeconds),
			Dest:         &(p.ConnMaxLifetimeSeconds),
		},
	}
}

// GormConfig returns the gorm settings shared by every dialect. Errors are
// translated so that unique index violations surface as gorm.ErrDuplicatedKey
func GormConfig(prepareStmt bool) *gorm.Config {
	return &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		PrepareStmt:            prepareStmt,
		TranslateError:         true,
	}
}

// Open connects through the dialector and applies the pool limits
func Open(dialector gorm.Dialector, pool Pool) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, GormConfig(true))
	if err != nil {
		return nil, err
	}
	if err := ApplyPool(db, pool); err != nil {
		return nil, err
	}
	return db, nil
}

// ApplyPool sets the pool limits on an open connection
func ApplyPool(db *gorm.DB, pool Pool) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	pool = pool.withDefaults()
	sqlDB.SetMaxOpenConns(int(pool.MaxOpenConns)) // #nosec G115
	sqlDB.SetMaxIdleConns(int(pool.MaxIdleConns)) // #nosec G115
	sqlDB.SetConnMaxLifetime(
		time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second, // #nosec G115
	)
	return nil
}
