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

package plugin_test

import (
	"errors"
	"testing"

	"github.com/spf13/pflag"

	"github.com/blinklabs-io/pulsar/database/plugin"
)

type optionsPlugin struct {
	dir   string
	size  uint64
	gc    bool
	count int
}

var testOptions optionsPlugin

func init() {
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               "options-test",
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
		Options: []plugin.PluginOption{
			{
				Name:         "data-dir",
				Type:         plugin.PluginOptionTypeString,
				DefaultValue: ".pulsar",
				Dest:         &testOptions.dir,
			},
			{
				Name:         "cache-size",
				Type:         plugin.PluginOptionTypeUint,
				DefaultValue: uint64(10),
				Dest:         &testOptions.size,
			},
			{
				Name:         "gc",
				Type:         plugin.PluginOptionTypeBool,
				DefaultValue: true,
				Dest:         &testOptions.gc,
			},
			{
				Name:         "count",
				Type:         plugin.PluginOptionTypeInt,
				DefaultValue: 1,
				Dest:         &testOptions.count,
			},
		},
	})
}

func TestSetPluginOption(t *testing.T) {
	if err := plugin.SetPluginOption(plugin.PluginTypeMetadata, "options-test", "data-dir", ""); err != nil {
		t.Fatalf("unexpected error setting data-dir: %v", err)
	}
	if testOptions.dir != "" {
		t.Fatalf("expected empty data-dir, got %q", testOptions.dir)
	}
	// Setting with wrong type should return an error
	if err := plugin.SetPluginOption(plugin.PluginTypeMetadata, "options-test", "data-dir", 123); err == nil {
		t.Fatalf("expected type error when setting data-dir with int, got nil")
	}
	// Setting an unknown option is a no-op
	if err := plugin.SetPluginOption(plugin.PluginTypeMetadata, "options-test", "does-not-exist", "x"); err != nil {
		t.Fatalf("unexpected error when setting unknown option: %v", err)
	}
	if err := plugin.SetPluginOption(plugin.PluginTypeMetadata, "options-test", "cache-size", 42); err != nil {
		t.Fatalf("unexpected error setting cache-size from int: %v", err)
	}
	if testOptions.size != 42 {
		t.Fatalf("expected cache-size 42, got %d", testOptions.size)
	}
	if err := plugin.SetPluginOption(plugin.PluginTypeMetadata, "options-test", "cache-size", -1); err == nil {
		t.Fatalf("expected error for negative cache-size")
	}
	if err := plugin.SetPluginOption(plugin.PluginTypeMetadata, "nonexistent", "data-dir", "x"); err == nil {
		t.Fatalf("expected error when setting option for nonexistent plugin, got nil")
	}
}

func TestProcessConfig(t *testing.T) {
	err := plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {
			"options-test": {
				"gc":    false,
				"count": 7,
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if testOptions.gc || testOptions.count != 7 {
		t.Fatalf("config not applied: %+v", testOptions)
	}
	err = plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {"options-test": {"gc": "yes"}},
	})
	if err == nil {
		t.Fatalf("expected error for invalid bool value")
	}
}

func TestProcessEnvVars(t *testing.T) {
	t.Setenv("PULSAR_DATABASE_METADATA_OPTIONS_TEST_DATA_DIR", "/tmp/pulsar-env")
	t.Setenv("PULSAR_DATABASE_METADATA_OPTIONS_TEST_CACHE_SIZE", "1024")
	if err := plugin.ProcessEnvVars(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if testOptions.dir != "/tmp/pulsar-env" || testOptions.size != 1024 {
		t.Fatalf("env not applied: %+v", testOptions)
	}
	t.Setenv("PULSAR_DATABASE_METADATA_OPTIONS_TEST_CACHE_SIZE", "lots")
	if err := plugin.ProcessEnvVars(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestPopulateCmdlineOptions(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := plugin.PopulateCmdlineOptions(fs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fs.Parse([]string{"--metadata-options-test-count=3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if testOptions.count != 3 {
		t.Fatalf("expected count 3, got %d", testOptions.count)
	}
}

func TestStartPlugin(t *testing.T) {
	errStart := errors.New("start failed")
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypeBlob,
		Name: "error-test",
		NewFromOptionsFunc: func() plugin.Plugin {
			return plugin.NewErrorPlugin(errStart)
		},
	})
	if _, err := plugin.StartPlugin(plugin.PluginTypeBlob, "error-test"); !errors.Is(err, errStart) {
		t.Fatalf("expected start error, got %v", err)
	}
	if _, err := plugin.StartPlugin(plugin.PluginTypeBlob, "missing-test"); err == nil {
		t.Fatalf("expected not found error")
	}
}
