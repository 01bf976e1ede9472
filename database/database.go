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

package database

import (
	"errors"
	"io"
	"log/slog"

	"github.com/blinklabs-io/certledger/database/plugin"
	"github.com/blinklabs-io/certledger/database/plugin/blob"
	"github.com/blinklabs-io/certledger/database/plugin/metadata"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"

	dataDirOption = "data-dir"
)

// Config holds the settings used to open a Database
type Config struct {
	Logger         *slog.Logger
	PromRegistry   prometheus.Registerer
	DataDir        string
	BlobPlugin     string
	MetadataPlugin string
}

// Database pairs the blob store holding the event journal with the metadata
// store holding ledger state. Writes to both commit together through Txn
type Database struct {
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
	dataDir  string
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	// Close metadata
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	// Close blob
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

func (d *Database) init() error {
	// Check commit timestamp
	if err := d.checkCommitTimestamp(); err != nil {
		return err
	}
	return nil
}

// New opens the configured blob and metadata plugins. An empty DataDir
// selects in-memory storage for plugins that support it
func New(config *Config) (*Database, error) {
	if config == nil {
		config = &Config{}
	}
	logger := config.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	blobPlugin := config.BlobPlugin
	if blobPlugin == "" {
		blobPlugin = DefaultBlobPlugin
	}
	metadataPlugin := config.MetadataPlugin
	if metadataPlugin == "" {
		metadataPlugin = DefaultMetadataPlugin
	}
	if err := setDataDir(plugin.PluginTypeBlob, blobPlugin, config.DataDir); err != nil {
		return nil, err
	}
	if err := setDataDir(plugin.PluginTypeMetadata, metadataPlugin, config.DataDir); err != nil {
		return nil, err
	}
	metadataDb, err := metadata.New(metadataPlugin, logger, config.PromRegistry)
	if err != nil {
		return nil, err
	}
	blobDb, err := blob.New(blobPlugin, logger, config.PromRegistry)
	if err != nil {
		_ = metadataDb.Close()
		return nil, err
	}
	db := &Database{
		logger:   logger,
		blob:     blobDb,
		metadata: metadataDb,
		dataDir:  config.DataDir,
	}
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	logger.Debug(
		"database opened",
		"component", "database",
		"blob", blobPlugin,
		"metadata", metadataPlugin,
		"data_dir", config.DataDir,
	)
	return db, nil
}

// setDataDir applies the data directory to plugins that store data locally
func setDataDir(pluginType plugin.PluginType, pluginName, dataDir string) error {
	for _, p := range plugin.GetPlugins(pluginType) {
		if p.Name != pluginName {
			continue
		}
		for _, opt := range p.Options {
			if opt.Name == dataDirOption {
				return plugin.SetPluginOption(
					pluginType,
					pluginName,
					dataDirOption,
					dataDir,
				)
			}
		}
	}
	return nil
}
