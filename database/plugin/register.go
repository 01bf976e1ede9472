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

package plugin

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

type PluginType int

const (
	PluginTypeBlob PluginType = iota + 1
	PluginTypeMetadata
)

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeBlob:
		return "blob"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return ""
	}
}

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = iota + 1
	PluginOptionTypeBool
	PluginOptionTypeInt
	PluginOptionTypeUint
)

type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	// CustomEnvVar overrides the default value when set in the environment
	CustomEnvVar string
	Type         PluginOptionType
}

type PluginEntry struct {
	NewFromOptionsFunc func() Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

var (
	pluginEntries      []PluginEntry
	pluginEntriesMutex sync.RWMutex
)

// Register adds a plugin to the registry. Plugins call this from init().
// Options without a CustomEnvVar are bound to the name from EnvVarName
func Register(pluginEntry PluginEntry) {
	for i := range pluginEntry.Options {
		opt := &pluginEntry.Options[i]
		if opt.CustomEnvVar == "" {
			opt.CustomEnvVar = EnvVarName(
				pluginEntry.Type,
				pluginEntry.Name,
				opt.Name,
			)
		}
	}
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	pluginEntries = append(pluginEntries, pluginEntry)
}

// EnvVarName returns the environment variable bound to a plugin option, for
// example CERTLEDGER_DATABASE_METADATA_POSTGRES_SSL_MODE
func EnvVarName(pluginType PluginType, pluginName, optionName string) string {
	name := strings.Join(
		[]string{
			"certledger_database",
			PluginTypeName(pluginType),
			pluginName,
			optionName,
		},
		"_",
	)
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

// GetPlugins returns the registered plugins of the given type, sorted by name
func GetPlugins(pluginType PluginType) []PluginEntry {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	ret := []PluginEntry{}
	for _, p := range pluginEntries {
		if p.Type == pluginType {
			ret = append(ret, p)
		}
	}
	slices.SortFunc(ret, func(a, b PluginEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return ret
}

// GetPlugin returns a new instance of the named plugin, or nil if not found
func GetPlugin(pluginType PluginType, pluginName string) Plugin {
	pluginEntriesMutex.RLock()
	var newFunc func() Plugin
	for _, p := range pluginEntries {
		if p.Type == pluginType && p.Name == pluginName {
			newFunc = p.NewFromOptionsFunc
			break
		}
	}
	pluginEntriesMutex.RUnlock()
	if newFunc == nil {
		return nil
	}
	return newFunc()
}

// PopulateCmdlineOptions adds a flag for every registered plugin option. Flags
// are named <type>-<plugin>-<option>, for example blob-badger-data-dir
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, p := range pluginEntries {
		for _, opt := range p.Options {
			flagName := fmt.Sprintf(
				"%s-%s-%s",
				PluginTypeName(p.Type),
				p.Name,
				opt.Name,
			)
			if err := addFlag(fs, flagName, opt); err != nil {
				return fmt.Errorf(
					"%s plugin '%s': %w",
					PluginTypeName(p.Type),
					p.Name,
					err,
				)
			}
		}
	}
	return nil
}

func addFlag(fs *pflag.FlagSet, flagName string, opt PluginOption) error {
	switch opt.Type {
	case PluginOptionTypeString:
		dest, ok := opt.Dest.(*string)
		if !ok {
			return fmt.Errorf("option %s: expected *string destination", opt.Name)
		}
		def, _ := opt.DefaultValue.(string)
		if v, ok := os.LookupEnv(opt.CustomEnvVar); ok && opt.CustomEnvVar != "" {
			def = v
		}
		fs.StringVar(dest, flagName, def, opt.Description)
	case PluginOptionTypeBool:
		dest, ok := opt.Dest.(*bool)
		if !ok {
			return fmt.Errorf("option %s: expected *bool destination", opt.Name)
		}
		def, _ := opt.DefaultValue.(bool)
		if v, ok := os.LookupEnv(opt.CustomEnvVar); ok && opt.CustomEnvVar != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("env %s: %w", opt.CustomEnvVar, err)
			}
			def = b
		}
		fs.BoolVar(dest, flagName, def, opt.Description)
	case PluginOptionTypeInt:
		dest, ok := opt.Dest.(*int)
		if !ok {
			return fmt.Errorf("option %s: expected *int destination", opt.Name)
		}
		def, _ := opt.DefaultValue.(int)
		if v, ok := os.LookupEnv(opt.CustomEnvVar); ok && opt.CustomEnvVar != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("env %s: %w", opt.CustomEnvVar, err)
			}
			def = i
		}
		fs.IntVar(dest, flagName, def, opt.Description)
	case PluginOptionTypeUint:
		dest, ok := opt.Dest.(*uint64)
		if !ok {
			return fmt.Errorf("option %s: expected *uint64 destination", opt.Name)
		}
		def, _ := opt.DefaultValue.(uint64)
		if v, ok := os.LookupEnv(opt.CustomEnvVar); ok && opt.CustomEnvVar != "" {
			u, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("env %s: %w", opt.CustomEnvVar, err)
			}
			def = u
		}
		fs.Uint64Var(dest, flagName, def, opt.Description)
	default:
		return fmt.Errorf("option %s: unknown option type %d", opt.Name, opt.Type)
	}
	return nil
}

// ProcessConfig applies plugin options from a config file. The map is keyed
// by plugin type name, then plugin name, then option name
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for typeName, typeConfig := range pluginConfig {
		var pluginType PluginType
		switch typeName {
		case PluginTypeName(PluginTypeBlob):
			pluginType = PluginTypeBlob
		case PluginTypeName(PluginTypeMetadata):
			pluginType = PluginTypeMetadata
		default:
			return fmt.Errorf("unknown plugin type: %s", typeName)
		}
		for pluginName, options := range typeConfig {
			for optionName, value := range options {
				if err := SetPluginOption(pluginType, pluginName, optionName, normalizeConfigValue(value)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// YAML decodes integers as int and may produce uint64 for large values
func normalizeConfigValue(value any) any {
	switch v := value.(type) {
	case int64:
		return int(v)
	case uint:
		return uint64(v)
	default:
		return value
	}
}

// ProcessEnvVars applies plugin options whose CustomEnvVar is set in the
// environment
func ProcessEnvVars() error {
	type envOption struct {
		opt        PluginOption
		pluginName string
		pluginType PluginType
	}
	var found []envOption
	pluginEntriesMutex.RLock()
	for _, p := range pluginEntries {
		for _, opt := range p.Options {
			if opt.CustomEnvVar == "" {
				continue
			}
			if _, ok := os.LookupEnv(opt.CustomEnvVar); ok {
				found = append(found, envOption{
					opt:        opt,
					pluginName: p.Name,
					pluginType: p.Type,
				})
			}
		}
	}
	pluginEntriesMutex.RUnlock()
	for _, f := range found {
		raw := os.Getenv(f.opt.CustomEnvVar)
		var value any
		switch f.opt.Type {
		case PluginOptionTypeString:
			value = raw
		case PluginOptionTypeBool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("env %s: %w", f.opt.CustomEnvVar, err)
			}
			value = b
		case PluginOptionTypeInt:
			i, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("env %s: %w", f.opt.CustomEnvVar, err)
			}
			value = i
		case PluginOptionTypeUint:
			u, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("env %s: %w", f.opt.CustomEnvVar, err)
			}
			value = u
		default:
			return fmt.Errorf(
				"option %s: unknown option type %d",
				f.opt.Name,
				f.opt.Type,
			)
		}
		if err := SetPluginOption(f.pluginType, f.pluginName, f.opt.Name, value); err != nil {
			return err
		}
	}
	return nil
}
