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

package node

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openequity/tessera"
	"github.com/openequity/tessera/internal/config"
	"github.com/prometheus/client_golang/prometheus"
)

// Run builds a tessera node from the loaded config and blocks until a
// shutdown signal arrives
func Run(cfg *config.Config, logger *slog.Logger) error {
	node, err := tessera.New(
		tessera.NewConfig(
			tessera.WithLogger(logger),
			tessera.WithDataDir(cfg.DatabasePath),
			tessera.WithPrometheusRegistry(prometheus.NewRegistry()),
			tessera.WithAuthority(cfg.Authority),
			tessera.WithGovernanceAuthority(cfg.GovernanceAuthority),
			tessera.WithVaultAddress(cfg.VaultAddress),
			tessera.WithProtocolAddress(cfg.ProtocolAddress),
			tessera.WithTreasuryAddress(cfg.TreasuryAddress),
			tessera.WithSupplyCap(cfg.SupplyCap),
			tessera.WithFeeBps(cfg.FeeBps),
			tessera.WithLockup(cfg.Duration(cfg.Lockup)),
			tessera.WithAuctionFloorBps(cfg.AuctionFloorBps),
			tessera.WithAuctionWindow(cfg.Duration(cfg.AuctionWindow)),
			tessera.WithSeatTerm(cfg.Duration(cfg.SeatTerm)),
			tessera.WithOverrideVoting(cfg.Duration(cfg.OverrideVoting)),
			tessera.WithOverrideCooldown(cfg.Duration(cfg.OverrideCooldown)),
			tessera.WithOverrideQuorumBps(cfg.OverrideQuorumBps),
			tessera.WithOverrideThresholdBps(cfg.OverrideThresholdBps),
			tessera.WithDripSchedule(
				cfg.Duration(cfg.DripLockup),
				cfg.Duration(cfg.DripUnlock),
			),
			tessera.WithMetricsListenAddress(cfg.MetricsListenAddress),
			tessera.WithTracing(cfg.Tracing),
			tessera.WithTracingStdout(cfg.TracingStdout),
			tessera.WithShutdownTimeout(cfg.Duration(cfg.ShutdownTimeout)),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}

	// Trigger graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info(
			"received signal, shutting down",
			"component", "node",
			"signal", sig.String(),
		)
		if err := node.Stop(); err != nil {
			logger.Error(
				"shutdown failed",
				"component", "node",
				"error", err,
			)
		}
	}()

	return node.Run()
}
