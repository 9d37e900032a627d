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
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/openequity/tessera/cert"
	"github.com/openequity/tessera/coordinator"
	"github.com/openequity/tessera/database"
	"github.com/openequity/tessera/drip"
	"github.com/openequity/tessera/event"
	"github.com/openequity/tessera/token"
	"github.com/openequity/tessera/vault"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Node is the composition root. The registry and ledgers are constructed
// independently and injected into the coordinator and vault, so nothing has
// to be rebuilt to substitute one piece.
type Node struct {
	config        Config
	eventBus      *event.EventBus
	db            *database.Database
	registry      *cert.Registry
	rights        *cert.RightsLedger
	stakes        *cert.StakeLedger
	tokens        *token.Ledger
	coordinator   *coordinator.Coordinator
	vault         *vault.Vault
	drip          *drip.Drip
	metricsServer *http.Server
	shutdownFuncs []func(context.Context) error
	done          chan struct{}
	shutdownOnce  sync.Once
}

// New creates a new Node from the given config
func New(cfg Config) (*Node, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	n := &Node{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry),
		done:     make(chan struct{}),
	}
	return n, nil
}

// Run opens the stores, wires up the managers, and blocks until Stop is
// called
func (n *Node) Run() error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:      n.config.dataDir,
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	// Certificate managers
	n.registry = cert.NewRegistry(n.config.logger, n.db)
	n.rights = cert.NewRightsLedger(n.config.logger, n.db)
	n.stakes = cert.NewStakeLedger(n.config.logger, n.db)
	// Balance ledger
	n.tokens = token.NewLedger(n.config.logger, n.db)
	if err := n.tokens.Init(
		nil,
		n.config.supplyCap,
		n.config.governanceAuthority,
	); err != nil {
		return fmt.Errorf("failed to initialize balance ledger: %w", err)
	}
	// Coordinator
	n.coordinator = coordinator.New(coordinator.Config{
		Logger:       n.config.logger,
		Database:     n.db,
		EventBus:     n.eventBus,
		Registry:     n.registry,
		Rights:       n.rights,
		Stakes:       n.stakes,
		PromRegistry: n.config.promRegistry,
	})
	if n.config.authority != "" {
		if err := n.coordinator.Bootstrap(n.config.authority); err != nil {
			return fmt.Errorf("failed to bootstrap coordinator: %w", err)
		}
	}
	// Custody vault
	n.vault = vault.New(vault.Config{
		Logger:   n.config.logger,
		Database: n.db,
		EventBus: n.eventBus,
		Tokens:   n.tokens,
		Params: vault.Params{
			VaultAddress:         n.config.vaultAddress,
			ProtocolAddress:      n.config.protocolAddress,
			FeeBps:               n.config.feeBps,
			Lockup:               n.config.lockup,
			AuctionFloorBps:      n.config.auctionFloorBps,
			AuctionWindow:        n.config.auctionWindow,
			SeatTerm:             n.config.seatTerm,
			OverrideVoting:       n.config.overrideVoting,
			OverrideCooldown:     n.config.overrideCooldown,
			OverrideQuorumBps:    n.config.overrideQuorumBps,
			OverrideThresholdBps: n.config.overrideThresholdBps,
		},
		PromRegistry: n.config.promRegistry,
	})
	// Fee drip
	n.drip = drip.New(
		n.config.logger,
		n.db,
		n.tokens,
		n.config.seller,
		drip.Schedule{
			Lockup: n.config.dripLockup,
			Unlock: n.config.dripUnlock,
		},
		n.config.protocolAddress,
		n.config.treasuryAddress,
	)
	// Metrics listener
	if n.config.metricsListenAddress != "" {
		if err := n.startMetricsServer(); err != nil {
			return err
		}
	}
	n.config.logger.Info(
		"node started",
		"component", "node",
		"data_dir", n.config.dataDir,
	)

	// Wait for shutdown signal
	<-n.done
	return nil
}

func (n *Node) startMetricsServer() error {
	gatherer, ok := n.config.promRegistry.(prometheus.Gatherer)
	if !ok {
		return errors.New(
			"metrics listener requires a gatherer-capable prometheus registry",
		)
	}
	mux := http.NewServeMux()
	mux.Handle(
		"/metrics",
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	)
	n.metricsServer = &http.Server{
		Addr:              n.config.metricsListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := n.metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			n.config.logger.Error(
				"metrics server failed",
				"component", "node",
				"error", err,
			)
		}
	}()
	return nil
}

// Stop shuts the node down gracefully. Safe to call more than once.
func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()
	n.config.logger.Debug("starting graceful shutdown")
	var errs []error
	if n.metricsServer != nil {
		if err := n.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if n.eventBus != nil {
		n.eventBus.Stop()
	}
	for _, fn := range n.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	n.shutdownFuncs = nil
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	close(n.done)
	return errors.Join(errs...)
}

// Coordinator returns the coordinator entry point
func (n *Node) Coordinator() *coordinator.Coordinator {
	return n.coordinator
}

// Vault returns the custody vault
func (n *Node) Vault() *vault.Vault {
	return n.vault
}

// Tokens returns the balance ledger
func (n *Node) Tokens() *token.Ledger {
	return n.tokens
}

// Drip returns the fee drip
func (n *Node) Drip() *drip.Drip {
	return n.drip
}

// Database returns the backing database
func (n *Node) Database() *database.Database {
	return n.db
}

// EventBus returns the node's event bus
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}
