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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/blinklabs-io/certledger/auth"
	"github.com/blinklabs-io/certledger/ledger"
	"github.com/blinklabs-io/certledger/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var nodeTestSecret = []byte("node-test-secret-0123456789abcdef")

func startTestNode(t *testing.T, opts ...ConfigOptionFunc) (*Node, <-chan error, context.CancelFunc) {
	t.Helper()
	opts = append(
		[]ConfigOptionFunc{
			WithBindAddr("127.0.0.1"),
			WithRpcPort(0),
			WithTokenSecret(nodeTestSecret),
			WithPrometheusRegistry(prometheus.NewRegistry()),
			WithShutdownTimeout(5 * time.Second),
		},
		opts...,
	)
	n, err := New(NewConfig(opts...))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(ctx)
	}()
	select {
	case <-n.Ready():
	case err := <-errCh:
		cancel()
		t.Fatalf("node failed to start: %s", err)
	case <-time.After(10 * time.Second):
		cancel()
		t.Fatal("node did not start")
	}
	return n, errCh, cancel
}

// postJSON makes a unary connect call using the JSON protocol
func postJSON(
	t *testing.T,
	n *Node,
	method string,
	token string,
	body any,
	out any,
) int {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(
		t.Context(),
		http.MethodPost,
		"http://"+n.RpcAddr().String()+rpc.Procedure(method),
		bytes.NewReader(payload),
	)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal(data, out))
	}
	return resp.StatusCode
}

func TestNodeRunServesLedger(t *testing.T) {
	defer goleak.VerifyNone(
		t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
	n, errCh, cancel := startTestNode(t)
	require.NotNil(t, n.LedgerState())
	require.NotNil(t, n.RpcAddr())

	tokens := auth.NewTokenService(nodeTestSecret, DefaultTokenIssuer, nil)
	issuer, err := tokens.Issue(auth.NewCaller("issuer-1", auth.RoleIssuer), time.Hour)
	require.NoError(t, err)

	var minted rpc.IdResponse
	status := postJSON(t, n, "MintGeneric", issuer, ledger.MintGenericInput{
		Holder:     "addr1student",
		CourseName: "Distributed Systems Workshop",
	}, &minted)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, uint64(1), minted.Id)

	var verified ledger.VerifyResult
	status = postJSON(t, n, "Verify", "", rpc.IdRequest{Id: minted.Id}, &verified)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, verified.IsValid)

	// Anonymous callers cannot mint
	status = postJSON(t, n, "MintGeneric", "", ledger.MintGenericInput{
		Holder:     "addr1student",
		CourseName: "Distributed Systems Workshop",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	http.DefaultClient.CloseIdleConnections()
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("node did not stop")
	}
	assert.Nil(t, n.RpcAddr())
}

func TestNodeStopIsIdempotent(t *testing.T) {
	n, errCh, cancel := startTestNode(t)
	defer cancel()
	require.NoError(t, n.Stop())
	require.NoError(t, n.Stop())
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("node did not stop")
	}
}

func TestNodeRunFailsOnUnknownPlugin(t *testing.T) {
	n, err := New(NewConfig(
		WithBindAddr("127.0.0.1"),
		WithRpcPort(0),
		WithMetadataPlugin("does-not-exist"),
	))
	require.NoError(t, err)
	require.Error(t, n.Run(t.Context()))
}
