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

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/blinklabs-io/pulsar/address"
	"github.com/blinklabs-io/pulsar/badge"
	"github.com/blinklabs-io/pulsar/database/plugin"
	"github.com/blinklabs-io/pulsar/governance"
)

type ctxKey string

const configContextKey ctxKey = "pulsar.config"

const DefaultShutdownTimeout = "30s"

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
	MetadataPlugin    string `yaml:"metadataPlugin"    envconfig:"PULSAR_DATABASE_METADATA_PLUGIN"`
	BlobPlugin        string `yaml:"blobPlugin"        envconfig:"PULSAR_DATABASE_BLOB_PLUGIN"`
	DatabasePath      string `yaml:"databasePath"                                               split_words:"true"`
	BindAddr          string `yaml:"bindAddr"                                                   split_words:"true"`
	ShutdownTimeout   string `yaml:"shutdownTimeout"                                            split_words:"true"`
	ApiPort           uint   `yaml:"apiPort"                                                    split_words:"true"`
	ApiMaxConnections int    `yaml:"apiMaxConnections"                                          split_words:"true"`
	ApiReuseAddress   bool   `yaml:"apiReuseAddress"                                            split_words:"true"`
	MetricsPort       uint   `yaml:"metricsPort"                                                split_words:"true"`
	Tracing           bool   `yaml:"tracing"`
	TracingStdout     bool   `yaml:"tracingStdout"                                              split_words:"true"`
	// Governance token mint, hex encoded. Empty uses the default mint
	TokenMint     string `yaml:"tokenMint"     split_words:"true"`
	TokenDecimals uint8  `yaml:"tokenDecimals" split_words:"true"`
	// Identity allowed to initialize the registry when the mint is created
	MintAuthority string `yaml:"mintAuthority" split_words:"true"`
	BadgeName     string `yaml:"badgeName"     split_words:"true"`
	BadgeSymbol   string `yaml:"badgeSymbol"   split_words:"true"`
	BadgeUri      string `yaml:"badgeUri"      split_words:"true"`
	// Snapshot sink credentials for gs:// and s3:// locations
	SnapshotGcsCredentialsFile string            `yaml:"snapshotGcsCredentialsFile" split_words:"true"`
	SnapshotS3Region           string            `yaml:"snapshotS3Region"           split_words:"true"`
	Policy                     governance.Policy `yaml:"policy"`
}

// TokenMintAddress returns the configured mint or the default one
func (c *Config) TokenMintAddress() (address.Address, error) {
	if c.TokenMint == "" {
		return address.DefaultTokenMint(), nil
	}
	addr, err := address.FromHex(c.TokenMint)
	if err != nil {
		return address.Zero, fmt.Errorf("invalid tokenMint: %w", err)
	}
	return addr, nil
}

// MintAuthorityAddress returns the configured mint authority. The zero
// address is returned when none is set
func (c *Config) MintAuthorityAddress() (address.Address, error) {
	if c.MintAuthority == "" {
		return address.Zero, nil
	}
	addr, err := address.FromHex(c.MintAuthority)
	if err != nil {
		return address.Zero, fmt.Errorf("invalid mintAuthority: %w", err)
	}
	return addr, nil
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdownTimeout %q: %w", c.ShutdownTimeout, err)
	}
	if _, err := c.TokenMintAddress(); err != nil {
		return err
	}
	if _, err := c.MintAuthorityAddress(); err != nil {
		return err
	}
	if c.Policy.MaxTitleLength <= 0 || c.Policy.MaxDescriptionLength <= 0 {
		return fmt.Errorf(
			"invalid policy: string limits must be positive (title %d, description %d)",
			c.Policy.MaxTitleLength,
			c.Policy.MaxDescriptionLength,
		)
	}
	if c.Policy.MaxLockDays == 0 {
		return errors.New("invalid policy: maxLockDays must be positive")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		BindAddr:        "0.0.0.0",
		DatabasePath:    ".pulsar",
		ShutdownTimeout: DefaultShutdownTimeout,
		ApiPort:         8080,
		MetricsPort:     12799,
		TokenDecimals:   6,
		BadgeName:       badge.DefaultName,
		BadgeSymbol:     badge.DefaultSymbol,
		BadgeUri:        badge.DefaultURI,
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		Policy:          governance.DefaultPolicy(),
	}
}

var globalConfig = defaultConfig()

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.pulsar/pulsar.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".pulsar", "pulsar.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/pulsar/pulsar.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/pulsar/pulsar.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		if err := loadConfigFile(configFile); err != nil {
			return nil, err
		}
	}
	// Process environment variables
	err := envconfig.Process("pulsar", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// Process plugin environment variables
	err = plugin.ProcessEnvVars()
	if err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}

	if err := globalConfig.validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func loadConfigFile(configFile string) error {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	// First unmarshal into temp config to handle plugin sections
	var tempCfg tempConfig
	err = yaml.Unmarshal(buf, &tempCfg)
	if err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	// If config section exists, use it for main config
	if tempCfg.Config != nil {
		// Overlay config values onto existing defaults
		var section struct {
			Config yaml.Node `yaml:"config"`
		}
		if err := yaml.Unmarshal(buf, &section); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
		if err := section.Config.Decode(globalConfig); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else {
		// Otherwise unmarshal the whole file as main config
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// Process plugin configurations
	pluginConfig := make(map[string]map[string]map[string]any)
	if tempCfg.Blob != nil {
		pluginConfig["blob"] = tempCfg.Blob
	}
	if tempCfg.Metadata != nil {
		pluginConfig["metadata"] = tempCfg.Metadata
	}
	// Handle database section if present
	if tempCfg.Database != nil {
		if tempCfg.Database.Blob != nil {
			if name, ok := extractPluginName(tempCfg.Database.Blob); ok {
				globalConfig.BlobPlugin = name
			}
			mergePluginConfig(pluginConfig, "blob", tempCfg.Database.Blob)
		}
		if tempCfg.Database.Metadata != nil {
			if name, ok := extractPluginName(tempCfg.Database.Metadata); ok {
				globalConfig.MetadataPlugin = name
			}
			mergePluginConfig(pluginConfig, "metadata", tempCfg.Database.Metadata)
		}
	}
	if len(pluginConfig) > 0 {
		err = plugin.ProcessConfig(pluginConfig)
		if err != nil {
			return fmt.Errorf(
				"error processing plugin config: %w",
				err,
			)
		}
	}
	return nil
}

// extractPluginName removes the "plugin" key from a database section
func extractPluginName(section map[string]any) (string, bool) {
	pluginVal, exists := section["plugin"]
	if !exists {
		return "", false
	}
	pluginName, ok := pluginVal.(string)
	if !ok {
		return "", false
	}
	delete(section, "plugin")
	return pluginName, true
}

func mergePluginConfig(
	pluginConfig map[string]map[string]map[string]any,
	pluginType string,
	section map[string]any,
) {
	typeConfig := make(map[string]map[string]any)
	for k, v := range section {
		switch val := v.(type) {
		case map[string]any:
			typeConfig[k] = val
		case map[any]any:
			// Convert map[any]any to map[string]any
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			typeConfig[k] = stringAnyMap
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				pluginType,
				k,
				v,
			)
		}
	}
	// Merge with existing config instead of overwriting
	if pluginConfig[pluginType] == nil {
		pluginConfig[pluginType] = typeConfig
	} else {
		maps.Copy(pluginConfig[pluginType], typeConfig)
	}
}

func GetConfig() *Config {
	return globalConfig
}
