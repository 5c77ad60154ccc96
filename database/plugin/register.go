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

// EnvPrefix is prepended to plugin option environment variables
const EnvPrefix = "PULSAR_DATABASE_"

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

// Register adds a plugin to the registry. It's intended to be called from
// a plugin package init()
func Register(pluginEntry PluginEntry) {
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	pluginEntries = append(pluginEntries, pluginEntry)
}

// GetPlugins returns all registered plugins of the given type
func GetPlugins(pluginType PluginType) []PluginEntry {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	ret := []PluginEntry{}
	for _, entry := range pluginEntries {
		if entry.Type == pluginType {
			ret = append(ret, entry)
		}
	}
	return ret
}

// GetPlugin returns a new instance of the named plugin, or nil if it's not
// registered
func GetPlugin(pluginType PluginType, name string) Plugin {
	pluginEntriesMutex.RLock()
	var newFunc func() Plugin
	for _, entry := range pluginEntries {
		if entry.Type == pluginType && entry.Name == name {
			newFunc = entry.NewFromOptionsFunc
			break
		}
	}
	pluginEntriesMutex.RUnlock()
	if newFunc == nil {
		return nil
	}
	return newFunc()
}

func flagName(entry PluginEntry, opt PluginOption) string {
	return fmt.Sprintf(
		"%s-%s-%s",
		PluginTypeName(entry.Type),
		entry.Name,
		opt.Name,
	)
}

func envName(entry PluginEntry, opt PluginOption) string {
	ret := fmt.Sprintf(
		"%s%s_%s_%s",
		EnvPrefix,
		PluginTypeName(entry.Type),
		entry.Name,
		opt.Name,
	)
	return strings.ToUpper(strings.ReplaceAll(ret, "-", "_"))
}

// PopulateCmdlineOptions adds a flag for every registered plugin option
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, entry := range pluginEntries {
		for _, opt := range entry.Options {
			name := flagName(entry, opt)
			desc := fmt.Sprintf(
				"%s (%s plugin %s)",
				opt.Description,
				PluginTypeName(entry.Type),
				entry.Name,
			)
			switch opt.Type {
			case PluginOptionTypeString:
				dest, ok := opt.Dest.(*string)
				def, ok2 := opt.DefaultValue.(string)
				if !ok || !ok2 {
					return fmt.Errorf("invalid string option %s", name)
				}
				fs.StringVar(dest, name, def, desc)
			case PluginOptionTypeBool:
				dest, ok := opt.Dest.(*bool)
				def, ok2 := opt.DefaultValue.(bool)
				if !ok || !ok2 {
					return fmt.Errorf("invalid bool option %s", name)
				}
				fs.BoolVar(dest, name, def, desc)
			case PluginOptionTypeInt:
				dest, ok := opt.Dest.(*int)
				def, ok2 := opt.DefaultValue.(int)
				if !ok || !ok2 {
					return fmt.Errorf("invalid int option %s", name)
				}
				fs.IntVar(dest, name, def, desc)
			case PluginOptionTypeUint:
				dest, ok := opt.Dest.(*uint64)
				def, ok2 := opt.DefaultValue.(uint64)
				if !ok || !ok2 {
					return fmt.Errorf("invalid uint option %s", name)
				}
				fs.Uint64Var(dest, name, def, desc)
			default:
				return fmt.Errorf(
					"unknown plugin option type %d for option %s",
					opt.Type,
					name,
				)
			}
		}
	}
	return nil
}

// ProcessConfig applies values from the config file. The map is keyed by
// plugin type name, then plugin name, then option name
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, entry := range pluginEntries {
		typeConfig, ok := pluginConfig[PluginTypeName(entry.Type)]
		if !ok {
			continue
		}
		optionConfig, ok := typeConfig[entry.Name]
		if !ok {
			continue
		}
		for _, opt := range entry.Options {
			value, ok := optionConfig[opt.Name]
			if !ok {
				continue
			}
			if err := setOptionValue(opt, value); err != nil {
				return fmt.Errorf(
					"%s plugin %s: %w",
					PluginTypeName(entry.Type),
					entry.Name,
					err,
				)
			}
		}
	}
	return nil
}

// ProcessEnvVars applies plugin options from environment variables such as
// PULSAR_DATABASE_BLOB_BADGER_DATA_DIR
func ProcessEnvVars() error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, entry := range pluginEntries {
		for _, opt := range entry.Options {
			name := envName(entry, opt)
			envValue, ok := os.LookupEnv(name)
			if !ok {
				continue
			}
			var value any
			var err error
			switch opt.Type {
			case PluginOptionTypeString:
				value = envValue
			case PluginOptionTypeBool:
				value, err = strconv.ParseBool(envValue)
			case PluginOptionTypeInt:
				value, err = strconv.Atoi(envValue)
			case PluginOptionTypeUint:
				value, err = strconv.ParseUint(envValue, 10, 64)
			}
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if err := setOptionValue(opt, value); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}
