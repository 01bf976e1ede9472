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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blinklabs-io/certledger/database/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPlugin struct{}

func (testPlugin) Start() error { return nil }
func (testPlugin) Stop() error  { return nil }

var testPluginDataDir string

func init() {
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               "config-test",
		NewFromOptionsFunc: func() plugin.Plugin { return testPlugin{} },
		Options: []plugin.PluginOption{
			{
				Name:         "data-dir",
				Type:         plugin.PluginOptionTypeString,
				Dest:         &testPluginDataDir,
				CustomEnvVar: "CERTLEDGER_CONFIG_TEST_DATA_DIR",
			},
		},
	})
}

// isolate keeps the user and system config files out of the test
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "certledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Same(t, cfg, GetConfig())
}

func TestLoadFullFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
bindAddr: "127.0.0.1"
databasePath: "/var/lib/certledger"
rpcPort: 9443
metricsPort: 8088
tlsCertFilePath: "cert1.pem"
tlsKeyFilePath: "key1.pem"
revokePolicy: "strict"
requireRegisteredHolder: true
tokenSecret: "inline-secret"
tokenIssuer: "registrar.example.edu"
shutdownTimeout: "5s"
tracing: true
tracingStdout: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	expected := &Config{
		BindAddr:                "127.0.0.1",
		DatabasePath:            "/var/lib/certledger",
		RpcPort:                 9443,
		MetricsPort:             8088,
		TlsCertFilePath:         "cert1.pem",
		TlsKeyFilePath:          "key1.pem",
		RevokePolicy:            "strict",
		RequireRegisteredHolder: true,
		TokenSecret:             "inline-secret",
		TokenIssuer:             "registrar.example.edu",
		ShutdownTimeout:         "5s",
		Tracing:                 true,
		TracingStdout:           true,
		BlobPlugin:              DefaultBlobPlugin,
		MetadataPlugin:          DefaultMetadataPlugin,
	}
	assert.Equal(t, expected, cfg)
}

func TestLoadConfigSectionKeepsDefaults(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
config:
  rpcPort: 7000
database:
  metadata:
    plugin: config-test
    config-test:
      data-dir: /srv/certledger
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint(7000), cfg.RpcPort)
	assert.Equal(t, "0.0.0.0", cfg.BindAddr)
	assert.Equal(t, DefaultRevokePolicy, cfg.RevokePolicy)
	assert.Equal(t, "config-test", cfg.MetadataPlugin)
	assert.Equal(t, "/srv/certledger", testPluginDataDir)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "rpcPort: 7000\nrevokePolicy: strict\n")
	t.Setenv("CERTLEDGER_RPC_PORT", "7100")
	t.Setenv("CERTLEDGER_DATABASE_BLOB_PLUGIN", "custom-blob")
	t.Setenv("CERTLEDGER_REQUIRE_REGISTERED_HOLDER", "true")
	t.Setenv("CERTLEDGER_CONFIG_TEST_DATA_DIR", "/env/data")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint(7100), cfg.RpcPort)
	assert.Equal(t, "strict", cfg.RevokePolicy)
	assert.Equal(t, "custom-blob", cfg.BlobPlugin)
	assert.True(t, cfg.RequireRegisteredHolder)
	assert.Equal(t, "/env/data", testPluginDataDir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"revoke policy", "revokePolicy: sometimes\n"},
		{"shutdown timeout", "shutdownTimeout: soon\n"},
		{"port", "rpcPort: 70000\n"},
		{"yaml", "rpcPort: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	isolate(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestShutdownTimeoutDuration(t *testing.T) {
	cfg := &Config{}
	d, err := cfg.ShutdownTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
	cfg.ShutdownTimeout = "2m"
	d, err = cfg.ShutdownTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)
}

func TestLoadTokenSecret(t *testing.T) {
	cfg := &Config{}
	secret, err := cfg.LoadTokenSecret()
	require.NoError(t, err)
	assert.Nil(t, secret)

	cfg.TokenSecret = "inline"
	secret, err = cfg.LoadTokenSecret()
	require.NoError(t, err)
	assert.Equal(t, []byte("inline"), secret)

	path := filepath.Join(t.TempDir(), "token.secret")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))
	cfg.TokenSecretFile = path
	secret, err = cfg.LoadTokenSecret()
	require.NoError(t, err)
	assert.Equal(t, []byte("from-file"), secret)
}

func TestContext(t *testing.T) {
	cfg := defaultConfig()
	ctx := WithContext(t.Context(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
	assert.Nil(t, FromContext(t.Context()))
}
