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

package certledger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/blinklabs-io/certledger/auth"
	"github.com/blinklabs-io/certledger/database"
	"github.com/blinklabs-io/certledger/event"
	"github.com/blinklabs-io/certledger/ledger"
	"github.com/blinklabs-io/certledger/rpc"
)

type Node struct {
	db            *database.Database
	eventBus      *event.EventBus
	ledgerState   *ledger.LedgerState
	tokens        *auth.TokenService
	rpcServer     *rpc.Server
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	ready         chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	n := &Node{
		config: cfg,
		done:   make(chan struct{}),
		ready:  make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	n.config.logger = n.config.logger.With("component", "node")
	return n, nil
}

// Run starts the node and blocks until ctx is cancelled or Stop is called
func (n *Node) Run(ctx context.Context) error {
	if err := n.start(ctx); err != nil {
		// Release anything started before the failure
		return errors.Join(err, n.Stop())
	}
	close(n.ready)
	n.config.logger.Info(
		"certledger started",
		"rpc_address", n.rpcServer.Addr().String(),
	)
	select {
	case <-ctx.Done():
		return n.Stop()
	case <-n.done:
		return nil
	}
}

func (n *Node) start(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:        n.config.dataDir,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
	})
	if db == nil {
		if err == nil {
			err = errors.New("empty database returned")
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if errors.As(err, &dbErr) {
			n.config.logger.Error(
				"event journal and ledger state have diverged",
				"metadata_timestamp", dbErr.MetadataTimestamp,
				"blob_timestamp", dbErr.BlobTimestamp,
			)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.eventBus = event.NewEventBus(n.config.promRegistry, n.config.logger)
	// Load state
	state, err := ledger.NewLedgerState(
		ledger.LedgerStateConfig{
			Logger:                  n.config.logger,
			Database:                n.db,
			EventBus:                n.eventBus,
			PromRegistry:            n.config.promRegistry,
			Clock:                   n.config.clock,
			RevokePolicy:            n.config.revokePolicy,
			RequireRegisteredHolder: n.config.requireRegisteredHolder,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load ledger state: %w", err)
	}
	n.ledgerState = state
	// Caller tokens
	if len(n.config.tokenSecret) > 0 {
		n.tokens = auth.NewTokenService(
			n.config.tokenSecret,
			n.config.tokenIssuer,
			n.config.clock,
		)
	} else {
		n.config.logger.Warn(
			"no token secret configured, all RPC callers are anonymous",
		)
	}
	// Configure RPC
	rpcServer, err := rpc.NewServer(
		rpc.ServerConfig{
			Logger:          n.config.logger,
			Ledger:          n.ledgerState,
			Tokens:          n.tokens,
			Host:            n.config.bindAddr,
			Port:            n.config.rpcPort,
			TlsCertFilePath: n.config.tlsCertFilePath,
			TlsKeyFilePath:  n.config.tlsKeyFilePath,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to configure RPC server: %w", err)
	}
	if err := rpcServer.Start(); err != nil {
		return err
	}
	n.rpcServer = rpcServer
	return nil
}

// Ready is closed once the node is serving
func (n *Node) Ready() <-chan struct{} {
	return n.ready
}

// LedgerState returns the ledger, or nil before Run
func (n *Node) LedgerState() *ledger.LedgerState {
	return n.ledgerState
}

// RpcAddr returns the RPC listening address, or nil when not serving
func (n *Node) RpcAddr() net.Addr {
	if n.rpcServer == nil {
		return nil
	}
	return n.rpcServer.Addr()
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := DefaultShutdownTimeout
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping RPC")

	if n.rpcServer != nil {
		if stopErr := n.rpcServer.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("rpc shutdown: %w", stopErr))
		}
	}

	// Phase 2: Drain event delivery
	n.config.logger.Debug("shutdown phase 2: draining events")

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	// Phase 3: Close database
	n.config.logger.Debug("shutdown phase 3: closing database")

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 4: Cleanup resources
	n.config.logger.Debug("shutdown phase 4: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
