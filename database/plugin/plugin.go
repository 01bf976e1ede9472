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
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type Plugin interface {
	Start() error
	Stop() error
}

// Configurable is implemented by plugins that accept a logger and metrics
// registry. It is called before Start()
type Configurable interface {
	Configure(*slog.Logger, prometheus.Registerer)
}

// ErrorPlugin is a plugin that always returns an error on Start()
type ErrorPlugin struct {
	Err error
}

func (e *ErrorPlugin) Start() error {
	return e.Err
}

func (e *ErrorPlugin) Stop() error {
	return nil
}

// NewErrorPlugin creates a new error plugin that returns the given error on Start()
func NewErrorPlugin(err error) Plugin {
	return &ErrorPlugin{Err: err}
}

// StartPlugin gets a plugin from the registry, configures it when supported
// and starts it
func StartPlugin(
	pluginType PluginType,
	pluginName string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (Plugin, error) {
	// Get the plugin from the registry
	p := GetPlugin(pluginType, pluginName)
	if p == nil {
		return nil, fmt.Errorf(
			"%s plugin '%s' not found",
			PluginTypeName(pluginType),
			pluginName,
		)
	}

	if c, ok := p.(Configurable); ok && logger != nil {
		c.Configure(logger, promRegistry)
	}

	// Start the plugin
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf(
			"failed to start %s plugin '%s': %w",
			PluginTypeName(pluginType),
			pluginName,
			err,
		)
	}

	return p, nil
}

// SetPluginOption assigns a value to a named option of a registered plugin,
// checking it against the option type. Options the plugin does not define
// are ignored, so callers can set options such as data-dir without knowing
// which implementation is selected.
// It writes option destinations without locking and must run before the
// plugin is instantiated.
func SetPluginOption(
	pluginType PluginType,
	pluginName string,
	optionName string,
	value any,
) error {
	pluginEntriesMutex.RLock()
	var options []PluginOption
	found := false
	for _, p := range pluginEntries {
		if p.Type == pluginType && p.Name == pluginName {
			options = p.Options
			found = true
			break
		}
	}
	pluginEntriesMutex.RUnlock()
	if !found {
		return fmt.Errorf(
			"%s plugin '%s' not found",
			PluginTypeName(pluginType),
			pluginName,
		)
	}
	for _, opt := range options {
		if opt.Name == optionName {
			return opt.set(value)
		}
	}
	return nil
}

func (o PluginOption) set(value any) error {
	switch o.Type {
	case PluginOptionTypeString:
		v, ok := value.(string)
		if !ok {
			return o.typeError(value, "string")
		}
		return assignOption(o, v)
	case PluginOptionTypeBool:
		v, ok := value.(bool)
		if !ok {
			return o.typeError(value, "bool")
		}
		return assignOption(o, v)
	case PluginOptionTypeInt:
		v, ok := value.(int)
		if !ok {
			return o.typeError(value, "int")
		}
		return assignOption(o, v)
	case PluginOptionTypeUint:
		switch v := value.(type) {
		case uint64:
			return assignOption(o, v)
		case int:
			if v < 0 {
				return fmt.Errorf(
					"invalid value for option %s: %d is negative",
					o.Name,
					v,
				)
			}
			return assignOption(o, uint64(v))
		default:
			return o.typeError(value, "uint64 or int")
		}
	default:
		return fmt.Errorf(
			"unknown plugin option type %d for option %s",
			o.Type,
			o.Name,
		)
	}
}

func (o PluginOption) typeError(value any, expected string) error {
	return fmt.Errorf(
		"invalid type %T for option %s: expected %s",
		value,
		o.Name,
		expected,
	)
}

func assignOption[T any](opt PluginOption, value T) error {
	dest, ok := opt.Dest.(*T)
	if !ok || dest == nil {
		return fmt.Errorf(
			"invalid destination for option %s: expected non-nil %T",
			opt.Name,
			dest,
		)
	}
	*dest = value
	return nil
}
