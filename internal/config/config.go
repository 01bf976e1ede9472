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
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/certledger/database/plugin"
	"github.com/blinklabs-io/certledger/internal/secret"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "certledger.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultRevokePolicy    = "idempotent"
	DefaultTokenIssuer     = "certledger"

	envPrefix = "certledger"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	MetadataPlugin          string `yaml:"metadataPlugin"          envconfig:"DATABASE_METADATA_PLUGIN"`
	BlobPlugin              string `yaml:"blobPlugin"              envconfig:"DATABASE_BLOB_PLUGIN"`
	DatabasePath            string `yaml:"databasePath"                                                 split_words:"true"`
	BindAddr                string `yaml:"bindAddr"                                                     split_words:"true"`
	TlsCertFilePath         string `yaml:"tlsCertFilePath"         envconfig:"TLS_CERT_FILE_PATH"`
	TlsKeyFilePath          string `yaml:"tlsKeyFilePath"          envconfig:"TLS_KEY_FILE_PATH"`
	RevokePolicy            string `yaml:"revokePolicy"                                                 split_words:"true"`
	TokenSecret             string `yaml:"tokenSecret"                                                  split_words:"true"`
	TokenSecretFile         string `yaml:"tokenSecretFile"                                              split_words:"true"`
	TokenIssuer             string `yaml:"tokenIssuer"                                                  split_words:"true"`
	ShutdownTimeout         string `yaml:"shutdownTimeout"                                              split_words:"true"`
	RpcPort                 uint   `yaml:"rpcPort"                                                      split_words:"true"`
	MetricsPort             uint   `yaml:"metricsPort"                                                  split_words:"true"`
	RequireRegisteredHolder bool   `yaml:"requireRegisteredHolder"                                      split_words:"true"`
	Tracing                 bool   `yaml:"tracing"`
	TracingStdout           bool   `yaml:"tracingStdout"                                                split_words:"true"`
}

// ShutdownTimeoutDuration parses ShutdownTimeout, which defaults to 30s
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return time.ParseDuration(DefaultShutdownTimeout)
	}
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	return d, nil
}

// LoadTokenSecret returns the token signing secret. A secret file takes
// precedence over an inline secret and may be sops encrypted
func (c *Config) LoadTokenSecret() ([]byte, error) {
	if c.TokenSecretFile != "" {
		return secret.LoadFile(c.TokenSecretFile)
	}
	if c.TokenSecret != "" {
		return []byte(c.TokenSecret), nil
	}
	return nil, nil
}

func (c *Config) validate() error {
	switch c.RevokePolicy {
	case "idempotent", "strict":
	default:
		return fmt.Errorf(
			"invalid revokePolicy: %q (must be 'idempotent' or 'strict')",
			c.RevokePolicy,
		)
	}
	if c.RpcPort > 65535 || c.MetricsPort > 65535 {
		return errors.New("ports must be in the range 0-65535")
	}
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		BindAddr:        "0.0.0.0",
		DatabasePath:    ".certledger",
		MetricsPort:     12798,
		RpcPort:         9090,
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		RevokePolicy:    DefaultRevokePolicy,
		TokenIssuer:     DefaultTokenIssuer,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

var globalConfig = defaultConfig()

// findConfigFile returns ~/.certledger/certledger.yaml or
// /etc/certledger/certledger.yaml, whichever exists first
func findConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".certledger", "certledger.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/certledger/certledger.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		if err := loadFile(cfg, configFile); err != nil {
			return nil, err
		}
	}
	// Process environment variables
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	// Process plugin environment variables
	if err := plugin.ProcessEnvVars(); err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	globalConfig = cfg
	return cfg, nil
}

func loadFile(cfg *Config, configFile string) error {
	// #nosec G304
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	// First unmarshal into temp config to handle plugin sections
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	if tempCfg.Config != nil {
		// Decode the section node directly so keys missing from the file
		// keep their defaults
		var section struct {
			Config yaml.Node `yaml:"config"`
		}
		if err := yaml.Unmarshal(buf, &section); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
		if err := section.Config.Decode(cfg); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else {
		// Otherwise unmarshal the whole file as main config
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// Process plugin configurations
	pluginConfig := make(map[string]map[string]map[string]any)
	if tempCfg.Blob != nil {
		pluginConfig[plugin.PluginTypeName(plugin.PluginTypeBlob)] = tempCfg.Blob
	}
	if tempCfg.Metadata != nil {
		pluginConfig[plugin.PluginTypeName(plugin.PluginTypeMetadata)] = tempCfg.Metadata
	}
	if tempCfg.Database != nil {
		if tempCfg.Database.Blob != nil {
			name, sections := pluginSections(
				plugin.PluginTypeBlob,
				tempCfg.Database.Blob,
			)
			if name != "" {
				cfg.BlobPlugin = name
			}
			mergePluginSections(pluginConfig, plugin.PluginTypeBlob, sections)
		}
		if tempCfg.Database.Metadata != nil {
			name, sections := pluginSections(
				plugin.PluginTypeMetadata,
				tempCfg.Database.Metadata,
			)
			if name != "" {
				cfg.MetadataPlugin = name
			}
			mergePluginSections(pluginConfig, plugin.PluginTypeMetadata, sections)
		}
	}
	if len(pluginConfig) > 0 {
		if err := plugin.ProcessConfig(pluginConfig); err != nil {
			return fmt.Errorf("error processing plugin config: %w", err)
		}
	}
	return nil
}

// pluginSections splits a database.<type> section into the selected plugin
// name and the per-plugin option maps
func pluginSections(
	pluginType plugin.PluginType,
	section map[string]any,
) (string, map[string]map[string]any) {
	var name string
	if pluginVal, exists := section["plugin"]; exists {
		if pluginName, ok := pluginVal.(string); ok {
			name = pluginName
		}
	}
	ret := make(map[string]map[string]any)
	for k, v := range section {
		if k == "plugin" {
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			ret[k] = val
		case map[any]any:
			// Convert map[any]any to map[string]any
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			ret[k] = stringAnyMap
		default:
			// Log skipped non-map config entries
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				plugin.PluginTypeName(pluginType),
				k,
				v,
			)
		}
	}
	return name, ret
}

func mergePluginSections(
	pluginConfig map[string]map[string]map[string]any,
	pluginType plugin.PluginType,
	sections map[string]map[string]any,
) {
	typeName := plugin.PluginTypeName(pluginType)
	// Merge with existing config instead of overwriting
	if pluginConfig[typeName] == nil {
		pluginConfig[typeName] = sections
		return
	}
	maps.Copy(pluginConfig[typeName], sections)
}

func GetConfig() *Config {
	return globalConfig
}
