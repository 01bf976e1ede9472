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

// Package rpc serves the ledger over Connect. Every method is a unary POST
// to /certledger.v1.LedgerService/<Method> with a JSON body, so it is
// reachable from Connect clients and from plain HTTP tooling alike.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/blinklabs-io/certledger/auth"
	"github.com/blinklabs-io/certledger/ledger"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 9090

	maxRequestBytes = 4 << 20
	maxJournalPage  = 1000
)

type ServerConfig struct {
	Logger          *slog.Logger
	Ledger          *ledger.LedgerState
	Tokens          *auth.TokenService
	Host            string
	TlsCertFilePath string
	TlsKeyFilePath  string
	// Port 0 listens on an ephemeral port
	Port uint
}

type Server struct {
	config   ServerConfig
	server   *http.Server
	listener net.Listener
	done     chan struct{}
	mu       sync.Mutex
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("no ledger provided")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg.Logger = cfg.Logger.With("component", "rpc")
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	return &Server{
		config: cfg,
	}, nil
}

// Handler returns the HTTP handler serving the ledger and health services
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	compress1KB := connect.WithCompressMinBytes(1024)
	opts := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithReadMaxBytes(maxRequestBytes),
		connect.WithInterceptors(
			authInterceptor(s.config.Tokens, s.config.Logger),
		),
		compress1KB,
	}
	s.registerHandlers(mux, opts...)
	mux.Handle(
		grpchealth.NewHandler(
			grpchealth.NewStaticChecker(ServiceName),
			compress1KB,
		),
	)
	return mux
}

// Start begins listening and serves requests in the background until Stop
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return errors.New("server already started")
	}
	addr := net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	useTls := s.config.TlsCertFilePath != "" && s.config.TlsKeyFilePath != ""
	handler := s.Handler()
	if !useTls {
		// Use h2c so we can serve HTTP/2 without TLS
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	s.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.listener = listener
	s.done = make(chan struct{})
	s.config.Logger.Info(
		"starting RPC listener",
		"address", listener.Addr().String(),
		"tls", useTls,
	)
	go func(server *http.Server, done chan struct{}) {
		defer close(done)
		var err error
		if useTls {
			err = server.ServeTLS(
				listener,
				s.config.TlsCertFilePath,
				s.config.TlsKeyFilePath,
			)
		} else {
			err = server.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.config.Logger.Error("RPC listener failed", "error", err)
		}
	}(s.server, s.done)
	return nil
}

// Addr returns the listening address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	done := s.done
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	err := server.Shutdown(ctx)
	<-done
	s.config.Logger.Info("RPC listener stopped")
	return err
}
