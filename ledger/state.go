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

// Package ledger implements the certificate and scholarship ledger: the
// identity registry, certificate issuance and revocation, and the
// scholarship escrow with its claims.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/certledger/custody"
	"github.com/blinklabs-io/certledger/database"
	"github.com/blinklabs-io/certledger/event"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/certledger/ledger"

// RevokePolicy selects how a repeated revoke is answered
type RevokePolicy string

const (
	// RevokePolicyIdempotent answers a repeated revoke with success and
	// records nothing
	RevokePolicyIdempotent RevokePolicy = "idempotent"
	// RevokePolicyStrict rejects a repeated revoke with ErrAlreadyRevoked
	RevokePolicyStrict RevokePolicy = "strict"
)

// Valid reports whether p is a known policy
func (p RevokePolicy) Valid() bool {
	return p == RevokePolicyIdempotent || p == RevokePolicyStrict
}

type LedgerStateConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	// Clock returns the current time. It defaults to time.Now
	Clock        func() time.Time
	RevokePolicy RevokePolicy
	// RequireRegisteredHolder rejects mints for holders missing from the
	// identity registry
	RequireRegisteredHolder bool
}

type LedgerState struct {
	config   LedgerStateConfig
	db       *database.Database
	custody  *custody.Custodian
	locks    *keyLocks
	metrics  stateMetrics
	validate *validator.Validate
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewLedgerState(cfg LedgerStateConfig) (*LedgerState, error) {
	if cfg.Database == nil {
		return nil, errors.New("no database provided")
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.RevokePolicy == "" {
		cfg.RevokePolicy = RevokePolicyIdempotent
	}
	if !cfg.RevokePolicy.Valid() {
		return nil, fmt.Errorf("unknown revoke policy: %s", cfg.RevokePolicy)
	}
	ls := &LedgerState{
		config:   cfg,
		db:       cfg.Database,
		custody:  custody.New(cfg.Database, cfg.Logger),
		locks:    newKeyLocks(),
		validate: newValidator(),
		tracer:   otel.Tracer(tracerName),
		logger:   cfg.Logger.With("component", "ledger"),
	}
	ls.metrics.init(cfg.PromRegistry)
	return ls, nil
}

// Database returns the underlying database
func (ls *LedgerState) Database() *database.Database {
	return ls.db
}

// RevokePolicy returns the configured revoke policy
func (ls *LedgerState) RevokePolicy() RevokePolicy {
	return ls.config.RevokePolicy
}

func (ls *LedgerState) now() time.Time {
	return ls.config.Clock().UTC()
}

// startOp opens a tracing span for a ledger operation. The returned function
// records the outcome and must be called with the operation's final error
func (ls *LedgerState) startOp(
	ctx context.Context,
	op string,
	attrs ...attribute.KeyValue,
) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := ls.tracer.Start(
		ctx,
		"ledger."+op,
		trace.WithAttributes(attrs...),
	)
	return ctx, func(err error) {
		ls.metrics.opLatency.WithLabelValues(op).
			Observe(time.Since(start).Seconds())
		if err != nil {
			kind := KindOf(err)
			ls.metrics.opFailures.WithLabelValues(op, string(kind)).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, string(kind))
			ls.logger.Debug(
				"operation failed",
				"operation", op,
				"kind", kind,
				"error", err,
			)
		}
		span.End()
	}
}

// update runs fn in a read-write transaction spanning the metadata store and
// the journal. Callers acquire their key locks before calling update
func (ls *LedgerState) update(fn func(*database.Txn) error) error {
	txn := ls.db.Transaction(true)
	defer txn.Release()
	return txn.Do(fn)
}

// view runs fn in a read-only metadata transaction so that every read sees
// the same snapshot
func (ls *LedgerState) view(fn func(*database.Txn) error) error {
	txn := database.NewMetadataOnlyTxn(ls.db, false)
	defer txn.Release()
	return fn(txn)
}

// record journals an event inside txn and publishes it once txn commits
func (ls *LedgerState) record(
	txn *database.Txn,
	actor string,
	subject string,
	eventType event.EventType,
	data any,
) error {
	payload, err := cbor.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	entry := &database.JournalEntry{
		Type:      string(eventType),
		Actor:     actor,
		Subject:   subject,
		Payload:   payload,
		Timestamp: ls.now().UnixMilli(),
	}
	if err := ls.db.AppendJournal(txn, entry); err != nil {
		return err
	}
	if ls.config.EventBus != nil {
		txn.OnCommit(func() {
			ls.config.EventBus.Publish(
				eventType,
				event.NewEvent(eventType, data),
			)
		})
	}
	return nil
}
