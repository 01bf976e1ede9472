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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/blinklabs-io/certledger"
	"github.com/blinklabs-io/certledger/internal/config"
	"github.com/blinklabs-io/certledger/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Run(cfg *config.Config, logger *slog.Logger) error {
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	return run(
		signalCtx,
		cfg,
		logger,
		prometheus.DefaultRegisterer,
		promhttp.Handler(),
	)
}

func run(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
	metricsHandler http.Handler,
) error {
	logger.Debug(fmt.Sprintf("config: %+v", redacted(cfg)), "component", "node")
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	tokenSecret, err := cfg.LoadTokenSecret()
	if err != nil {
		return fmt.Errorf("failed to load token secret: %w", err)
	}
	d, err := certledger.New(
		certledger.NewConfig(
			certledger.WithLogger(logger),
			certledger.WithDatabasePath(cfg.DatabasePath),
			certledger.WithBlobPlugin(cfg.BlobPlugin),
			certledger.WithMetadataPlugin(cfg.MetadataPlugin),
			certledger.WithBindAddr(cfg.BindAddr),
			certledger.WithRpcPort(cfg.RpcPort),
			certledger.WithTlsCertFilePath(cfg.TlsCertFilePath),
			certledger.WithTlsKeyFilePath(cfg.TlsKeyFilePath),
			certledger.WithRevokePolicy(ledger.RevokePolicy(cfg.RevokePolicy)),
			certledger.WithRequireRegisteredHolder(cfg.RequireRegisteredHolder),
			certledger.WithTokenSecret(tokenSecret),
			certledger.WithTokenIssuer(cfg.TokenIssuer),
			certledger.WithShutdownTimeout(shutdownTimeout),
			certledger.WithPrometheusRegistry(promRegistry),
			certledger.WithTracing(cfg.Tracing),
			certledger.WithTracingStdout(cfg.TracingStdout),
		),
	)
	if err != nil {
		return err
	}
	// Metrics and debug listener
	metricsAddr := net.JoinHostPort(
		cfg.BindAddr,
		strconv.FormatUint(uint64(cfg.MetricsPort), 10),
	)
	metricsListener, err := net.Listen("tcp", metricsAddr)
	if err != nil {
		return fmt.Errorf("failed to start metrics listener: %w", err)
	}
	logger.Info(
		"serving prometheus metrics on "+metricsListener.Addr().String(),
		"component", "node",
	)
	metricsServer := &http.Server{
		Handler:           debugMux(metricsHandler),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	metricsDone := make(chan struct{})
	go func() {
		defer close(metricsDone)
		if err := metricsServer.Serve(metricsListener); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			logger.Error(
				fmt.Sprintf("metrics listener failed: %s", err),
				"component", "node",
			)
		}
	}()

	// Run node until the context is cancelled
	runErr := d.Run(ctx)
	if runErr != nil {
		logger.Error("node error", "error", runErr, "component", "node")
	} else {
		logger.Info("shutdown complete", "component", "node")
	}

	// Shutdown metrics server
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}
	<-metricsDone
	return runErr
}

func debugMux(metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// redacted returns a copy of cfg safe to log
func redacted(cfg *config.Config) config.Config {
	ret := *cfg
	if ret.TokenSecret != "" {
		ret.TokenSecret = "REDACTED"
	}
	return ret
}
