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

package tessera

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/openequity/tessera/drip"
	"github.com/prometheus/client_golang/prometheus"
)

const maxBps = 10000

type Config struct {
	promRegistry         prometheus.Registerer
	logger               *slog.Logger
	seller               drip.Seller
	dataDir              string
	authority            string
	vaultAddress         string
	protocolAddress      string
	treasuryAddress      string
	governanceAuthority  string
	metricsListenAddress string
	supplyCap            uint64
	feeBps               uint64
	auctionFloorBps      uint64
	overrideQuorumBps    uint64
	overrideThresholdBps uint64
	lockup               time.Duration
	auctionWindow        time.Duration
	seatTerm             time.Duration
	overrideVoting       time.Duration
	overrideCooldown     time.Duration
	dripLockup           time.Duration
	dripUnlock           time.Duration
	shutdownTimeout      time.Duration
	tracing              bool
	tracingStdout        bool
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new tessera config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:               slog.New(slog.NewJSONHandler(io.Discard, nil)),
		vaultAddress:         "vault",
		protocolAddress:      "protocol",
		treasuryAddress:      "treasury",
		supplyCap:            1_000_000_000,
		feeBps:               500,
		auctionFloorBps:      1000,
		overrideQuorumBps:    2000,
		overrideThresholdBps: 5000,
		lockup:               180 * 24 * time.Hour,
		auctionWindow:        72 * time.Hour,
		seatTerm:             90 * 24 * time.Hour,
		overrideVoting:       7 * 24 * time.Hour,
		overrideCooldown:     30 * 24 * time.Hour,
		dripLockup:           365 * 24 * time.Hour,
		dripUnlock:           730 * 24 * time.Hour,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *Config) validate() error {
	for name, bps := range map[string]uint64{
		"fee":                c.feeBps,
		"auction floor":      c.auctionFloorBps,
		"override quorum":    c.overrideQuorumBps,
		"override threshold": c.overrideThresholdBps,
	} {
		if bps > maxBps {
			return fmt.Errorf(
				"%s basis points out of range: %d",
				name,
				bps,
			)
		}
	}
	if c.supplyCap == 0 {
		return fmt.Errorf("supply cap must be non-zero")
	}
	if c.vaultAddress == "" || c.protocolAddress == "" ||
		c.treasuryAddress == "" {
		return fmt.Errorf("vault, protocol, and treasury addresses required")
	}
	return nil
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDataDir specifies the persistent data directory to use. The default is to store everything in memory
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithAuthority specifies the issuer capability identity bootstrapped on
// first startup. Ignored once coordinator state exists.
func WithAuthority(authority string) ConfigOptionFunc {
	return func(c *Config) {
		c.authority = authority
	}
}

// WithGovernanceAuthority specifies the distinguished identity allowed to
// raise the supply cap. The original issuer never holds this capability.
func WithGovernanceAuthority(authority string) ConfigOptionFunc {
	return func(c *Config) {
		c.governanceAuthority = authority
	}
}

// WithVaultAddress specifies the vault's own balance account address
func WithVaultAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.vaultAddress = addr
	}
}

// WithProtocolAddress specifies the account receiving the protocol
// allocation minted on each transition batch
func WithProtocolAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.protocolAddress = addr
	}
}

// WithTreasuryAddress specifies the fixed recipient of drip liquidation
// proceeds
func WithTreasuryAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.treasuryAddress = addr
	}
}

// WithSupplyCap specifies the hard cap on minted balance supply
func WithSupplyCap(cap uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.supplyCap = cap
	}
}

// WithFeeBps specifies the protocol allocation in basis points of each
// transition batch total. Default is 500 (5%).
func WithFeeBps(bps uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.feeBps = bps
	}
}

// WithLockup specifies the claim lockup window opened when a holder is first
// credited at deposit time. Default is 180 days.
func WithLockup(lockup time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.lockup = lockup
	}
}

// WithAuctionFloorBps specifies the minimum seat bid in basis points of the
// position's unit count. Default is 1000 (10%).
func WithAuctionFloorBps(bps uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.auctionFloorBps = bps
	}
}

// WithAuctionWindow specifies how long seat auctions accept bids. Default is
// 72 hours.
func WithAuctionWindow(window time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.auctionWindow = window
	}
}

// WithSeatTerm specifies the governance seat term length. Default is 90 days.
func WithSeatTerm(term time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.seatTerm = term
	}
}

// WithOverrideVoting specifies the override proposal voting period. Default
// is 7 days.
func WithOverrideVoting(period time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.overrideVoting = period
	}
}

// WithOverrideCooldown specifies the minimum gap after an executed override
// before a new proposal may open. Default is 30 days.
func WithOverrideCooldown(cooldown time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.overrideCooldown = cooldown
	}
}

// WithOverrideQuorumBps specifies the override quorum in basis points of the
// governance-eligible supply. Default is 2000 (20%).
func WithOverrideQuorumBps(bps uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.overrideQuorumBps = bps
	}
}

// WithOverrideThresholdBps specifies the override support threshold in basis
// points of votes cast; support must strictly exceed it. Default is 5000.
func WithOverrideThresholdBps(bps uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.overrideThresholdBps = bps
	}
}

// WithDripSchedule specifies the drip lockup and linear-unlock intervals.
// Defaults are 365 and 730 days.
func WithDripSchedule(lockup, unlock time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.dripLockup = lockup
		c.dripUnlock = unlock
	}
}

// WithSeller specifies the price-taking liquidation interface used by the
// fee drip. Liquidation is unavailable without one.
func WithSeller(seller drip.Seller) ConfigOptionFunc {
	return func(c *Config) {
		c.seller = seller
	}
}

// WithMetricsListenAddress specifies the listen address for the prometheus
// metrics HTTP server. An empty string disables the server. The default is
// empty (disabled).
func WithMetricsListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.metricsListenAddress = addr
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
