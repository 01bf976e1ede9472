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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/certledger/ledger"
	"github.com/blinklabs-io/certledger/rpc"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBindAddr        = "0.0.0.0"
	DefaultRpcPort         = rpc.DefaultPort
	DefaultTokenIssuer     = "certledger"
	DefaultShutdownTimeout = 30 * time.Second
)

type Config struct {
	promRegistry            prometheus.Registerer
	logger                  *slog.Logger
	clock                   func() time.Time
	dataDir                 string
	blobPlugin              string
	metadataPlugin          string
	bindAddr                string
	tlsCertFilePath         string
	tlsKeyFilePath          string
	tokenIssuer             string
	revokePolicy            ledger.RevokePolicy
	tokenSecret             []byte
	rpcPort                 uint
	shutdownTimeout         time.Duration
	tracing                 bool
	tracingStdout           bool
	requireRegisteredHolder bool
}

func (n *Node) configValidate() error {
	if n.config.revokePolicy != "" && !n.config.revokePolicy.Valid() {
		return fmt.Errorf(
			"unknown revoke policy: %s",
			n.config.revokePolicy,
		)
	}
	if (n.config.tlsCertFilePath == "") != (n.config.tlsKeyFilePath == "") {
		return errors.New(
			"TLS requires both a certificate and a key file",
		)
	}
	if n.config.rpcPort > 65535 {
		return fmt.Errorf("invalid RPC port: %d", n.config.rpcPort)
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the certledger config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new certledger config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		bindAddr:        DefaultBindAddr,
		rpcPort:         DefaultRpcPort,
		tokenIssuer:     DefaultTokenIssuer,
		revokePolicy:    ledger.RevokePolicyIdempotent,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithBindAddr specifies the address the RPC server listens on
func WithBindAddr(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.bindAddr = addr
	}
}

// WithRpcPort specifies the port to use for the RPC server. A value of 0 picks a free port
func WithRpcPort(port uint) ConfigOptionFunc {
	return func(c *Config) {
		c.rpcPort = port
	}
}

// WithTlsCertFilePath specifies the path to the TLS certificate for the RPC server
func WithTlsCertFilePath(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.tlsCertFilePath = path
	}
}

// WithTlsKeyFilePath specifies the path to the TLS key for the RPC server
func WithTlsKeyFilePath(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.tlsKeyFilePath = path
	}
}

// WithRevokePolicy specifies how a repeated revoke is answered
func WithRevokePolicy(policy ledger.RevokePolicy) ConfigOptionFunc {
	return func(c *Config) {
		c.revokePolicy = policy
	}
}

// WithRequireRegisteredHolder rejects certificate mints for holders missing from the identity registry
func WithRequireRegisteredHolder(require bool) ConfigOptionFunc {
	return func(c *Config) {
		c.requireRegisteredHolder = require
	}
}

// WithTokenSecret specifies the HMAC secret used to verify caller tokens. Without a secret, every RPC caller is anonymous
func WithTokenSecret(secret []byte) ConfigOptionFunc {
	return func(c *Config) {
		c.tokenSecret = secret
	}
}

// WithTokenIssuer specifies the issuer claim expected on caller tokens
func WithTokenIssuer(issuer string) ConfigOptionFunc {
	return func(c *Config) {
		c.tokenIssuer = issuer
	}
}

// WithShutdownTimeout specifies the maximum time to wait for graceful shutdown
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithClock specifies the clock used by the ledger for deadlines and timestamps
func WithClock(clock func() time.Time) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}
