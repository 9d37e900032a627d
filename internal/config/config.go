// Copyright 2026 OpenEquity Labs
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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "tessera.config"

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

type Config struct {
	DatabasePath         string `yaml:"databasePath"         split_words:"true"`
	MetricsListenAddress string `yaml:"metricsListenAddress" split_words:"true"`
	Authority            string `yaml:"authority"`
	GovernanceAuthority  string `yaml:"governanceAuthority"  split_words:"true"`
	VaultAddress         string `yaml:"vaultAddress"         split_words:"true"`
	ProtocolAddress      string `yaml:"protocolAddress"      split_words:"true"`
	TreasuryAddress      string `yaml:"treasuryAddress"      split_words:"true"`
	ShutdownTimeout      string `yaml:"shutdownTimeout"      split_words:"true"`
	SupplyCap            uint64 `yaml:"supplyCap"            split_words:"true"`
	FeeBps               uint64 `yaml:"feeBps"               split_words:"true"`
	AuctionFloorBps      uint64 `yaml:"auctionFloorBps"      split_words:"true"`
	OverrideQuorumBps    uint64 `yaml:"overrideQuorumBps"    split_words:"true"`
	OverrideThresholdBps uint64 `yaml:"overrideThresholdBps" split_words:"true"`
	Lockup               string `yaml:"lockup"`
	AuctionWindow        string `yaml:"auctionWindow"        split_words:"true"`
	SeatTerm             string `yaml:"seatTerm"             split_words:"true"`
	OverrideVoting       string `yaml:"overrideVoting"       split_words:"true"`
	OverrideCooldown     string `yaml:"overrideCooldown"     split_words:"true"`
	DripLockup           string `yaml:"dripLockup"           split_words:"true"`
	DripUnlock           string `yaml:"dripUnlock"           split_words:"true"`
	Tracing              bool   `yaml:"tracing"`
	TracingStdout        bool   `yaml:"tracingStdout"        split_words:"true"`
}

var globalConfig = &Config{
	DatabasePath:         ".tessera",
	MetricsListenAddress: "",
	VaultAddress:         "vault",
	ProtocolAddress:      "protocol",
	TreasuryAddress:      "treasury",
	ShutdownTimeout:      DefaultShutdownTimeout,
	SupplyCap:            1_000_000_000,
	FeeBps:               500,
	AuctionFloorBps:      1000,
	OverrideQuorumBps:    2000,
	OverrideThresholdBps: 5000,
	Lockup:               "4320h",
	AuctionWindow:        "72h",
	SeatTerm:             "2160h",
	OverrideVoting:       "168h",
	OverrideCooldown:     "720h",
	DripLockup:           "8760h",
	DripUnlock:           "17520h",
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.tessera/tessera.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".tessera", "tessera.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/tessera/tessera.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/tessera/tessera.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	if err := envconfig.Process("tessera", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	// Validate durations up front so failures surface at startup
	for name, val := range map[string]string{
		"shutdownTimeout":  globalConfig.ShutdownTimeout,
		"lockup":           globalConfig.Lockup,
		"auctionWindow":    globalConfig.AuctionWindow,
		"seatTerm":         globalConfig.SeatTerm,
		"overrideVoting":   globalConfig.OverrideVoting,
		"overrideCooldown": globalConfig.OverrideCooldown,
		"dripLockup":       globalConfig.DripLockup,
		"dripUnlock":       globalConfig.DripUnlock,
	} {
		if _, err := time.ParseDuration(val); err != nil {
			return nil, fmt.Errorf("invalid %s duration %q: %w", name, val, err)
		}
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Duration parses one of the config's duration strings. LoadConfig has
// already validated them.
func (c *Config) Duration(val string) time.Duration {
	d, _ := time.ParseDuration(val)
	return d
}
