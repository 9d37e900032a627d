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

package vault

import (
	"errors"
	"io"
	"log/slog"
	"math/bits"
	"sync"
	"time"

	"github.com/openequity/tessera/cert"
	"github.com/openequity/tessera/database"
	"github.com/openequity/tessera/database/models"
	"github.com/openequity/tessera/event"
	"github.com/openequity/tessera/token"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrUnauthorized is returned when the initiating identity doesn't match
	// the registered vault reference
	ErrUnauthorized = errors.New("initiator is not the registered vault")

	// ErrNotTransitioned is returned for vault operations before the
	// coordinator's transition has fired
	ErrNotTransitioned = errors.New("transition has not fired")

	// ErrInvalidStake is returned when a batch names a burned or otherwise
	// undepositable stake
	ErrInvalidStake = errors.New("stake cannot be deposited")

	// ErrLockupActive is returned when a claim arrives before the holder's
	// lockup expiry
	ErrLockupActive = errors.New("lockup active")

	// ErrNothingToClaim is returned when the caller has no unclaimed
	// allocation
	ErrNothingToClaim = errors.New("nothing to claim")
)

// Params are the fixed vault parameters, set once at construction
type Params struct {
	// VaultAddress is the vault's own balance account. It is allow-listed so
	// locked holders can escrow bids into it.
	VaultAddress string
	// ProtocolAddress receives the fixed-percentage protocol allocation.
	// Always governance-excluded.
	ProtocolAddress string
	// FeeBps is the protocol allocation in basis points of each batch total
	FeeBps uint64
	// Lockup is the per-holder account lockup opened at deposit time. A
	// locked holder keeps full bidding and voting access; only open-market
	// transfers are restricted.
	Lockup time.Duration
	// AuctionFloorBps is the minimum bid in basis points of the stake's
	// unit count
	AuctionFloorBps uint64
	// AuctionWindow is how long a seat auction accepts bids
	AuctionWindow time.Duration
	// SeatTerm is the governance seat term length
	SeatTerm time.Duration
	// OverrideVoting is the override proposal voting period
	OverrideVoting time.Duration
	// OverrideCooldown is the minimum gap after an executed override before
	// a new proposal may open
	OverrideCooldown time.Duration
	// OverrideQuorumBps is the quorum requirement in basis points of the
	// total supply. Excluded balances count toward the base even though they
	// cannot vote.
	OverrideQuorumBps uint64
	// OverrideThresholdBps is the support requirement in basis points of
	// votes cast. Support must strictly exceed it.
	OverrideThresholdBps uint64
}

// Vault is the post-transition owner of all confirmed positions. It credits
// balances for vested units, enforces claim lockup, and runs the
// seat-auction, term-end reclaim, and override protocols. The vault is the
// only actor allowed to move a position against its owner's wishes, and
// only through the four enumerated paths (deposit, seat award, reclaim,
// override sweep); that authorization is checked structurally against the
// coordinator's stored vault reference.
type Vault struct {
	logger   *slog.Logger
	db       *database.Database
	eventBus *event.EventBus
	tokens   *token.Ledger
	params   Params
	metrics  *vaultMetrics
	mutex    sync.Mutex
}

type vaultMetrics struct {
	opsTotal      *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
}

// Config wraps the collaborators injected into a Vault
type Config struct {
	Logger       *slog.Logger
	Database     *database.Database
	EventBus     *event.EventBus
	Tokens       *token.Ledger
	Params       Params
	PromRegistry prometheus.Registerer
}

// New creates a new Vault from the given collaborators
func New(cfg Config) *Vault {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	v := &Vault{
		logger:   logger,
		db:       cfg.Database,
		eventBus: cfg.EventBus,
		tokens:   cfg.Tokens,
		params:   cfg.Params,
	}
	if cfg.PromRegistry != nil {
		v.metrics = &vaultMetrics{
			opsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tessera_vault_ops_total",
					Help: "total vault operations by type",
				},
				[]string{"op"},
			),
			failuresTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tessera_vault_failures_total",
					Help: "failed vault operations by type",
				},
				[]string{"op"},
			),
		}
		cfg.PromRegistry.MustRegister(
			v.metrics.opsTotal,
			v.metrics.failuresTotal,
		)
	}
	return v
}

func (v *Vault) countOp(op string, err error) {
	if v.metrics == nil {
		return
	}
	v.metrics.opsTotal.WithLabelValues(op).Inc()
	if err != nil {
		v.metrics.failuresTotal.WithLabelValues(op).Inc()
	}
}

func (v *Vault) publish(eventType event.EventType, data any) {
	if v.eventBus == nil {
		return
	}
	v.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}

// Address returns the vault's own balance account address
func (v *Vault) Address() string {
	return v.params.VaultAddress
}

// ensureVault checks that the transition has fired and the initiating
// identity matches the vault reference the coordinator registered
func (v *Vault) ensureVault(txn *database.Txn, initiator string) error {
	state, err := v.db.GetCoordinatorState(txn)
	if err != nil {
		if errors.Is(err, models.ErrCoordinatorStateNotFound) {
			return ErrNotTransitioned
		}
		return err
	}
	if !state.Transitioned {
		return ErrNotTransitioned
	}
	if initiator != state.VaultRef {
		return ErrUnauthorized
	}
	return nil
}

// Activate marks the vault's account allow-listed and the protocol account
// governance-excluded. Idempotent; call once after the transition fires.
func (v *Vault) Activate(initiator string) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	txn := v.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := v.ensureVault(txn, initiator); err != nil {
			return err
		}
		if err := v.tokens.SetAllowListed(
			txn, v.params.VaultAddress, true,
		); err != nil {
			return err
		}
		return v.tokens.SetGovernanceExcluded(
			txn, v.params.ProtocolAddress, true,
		)
	})
	v.countOp("activate", err)
	return err
}

// bpsOf returns amount*bps/10000 without intermediate overflow
func bpsOf(amount, bps uint64) uint64 {
	hi, lo := bits.Mul64(amount, bps)
	quot, _ := bits.Div64(hi, lo, 10000)
	return quot
}

// ProcessBatch takes custody of the named stakes, mints each holder a
// balance equal to the units vested at this instant (or the frozen quantity
// for an already revoked stake), opens the holder's account lockup, and
// mints the fixed-percentage protocol allocation on top of the batch total.
// The minted balance sits at the holder's own address, so it carries
// governance weight and can fund bids while still locked. The whole batch is
// atomic; a stake already deposited fails it with
// models.ErrAlreadyDeposited.
func (v *Vault) ProcessBatch(initiator string, stakeIds []uint64) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	now := time.Now()
	var deposits []event.DepositEvent
	txn := v.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := v.ensureVault(txn, initiator); err != nil {
			return err
		}
		var batchTotal uint64
		for _, stakeId := range stakeIds {
			credited, holder, err := v.deposit(txn, stakeId, now)
			if err != nil {
				return err
			}
			batchTotal += credited
			deposits = append(deposits, event.DepositEvent{
				StakeID:  stakeId,
				Holder:   holder,
				Credited: credited,
			})
		}
		fee := bpsOf(batchTotal, v.params.FeeBps)
		if fee > 0 {
			if err := v.tokens.Mint(
				txn, v.params.ProtocolAddress, fee,
			); err != nil {
				return err
			}
			if err := v.grantDrip(txn, fee, now); err != nil {
				return err
			}
		}
		return nil
	})
	v.countOp("process_batch", err)
	if err != nil {
		return err
	}
	for _, evt := range deposits {
		v.publish(event.StakeDepositedEventType, evt)
	}
	return nil
}

// deposit moves one stake into pooled custody, mints the vested quantity to
// its holder, and opens the holder's lockup
func (v *Vault) deposit(
	txn *database.Txn,
	stakeId uint64,
	now time.Time,
) (uint64, string, error) {
	stake, err := v.db.GetStake(stakeId, txn)
	if err != nil {
		return 0, "", err
	}
	if stake.Burned {
		return 0, "", ErrInvalidStake
	}
	if stake.Custody != models.CustodyOwner {
		return 0, "", models.ErrAlreadyDeposited
	}
	if _, err := v.db.GetDepositRecord(stakeId, txn); err == nil {
		return 0, "", models.ErrAlreadyDeposited
	} else if !errors.Is(err, models.ErrDepositNotFound) {
		return 0, "", err
	}
	vested := cert.StakeVestedUnits(stake, now)
	stake.Custody = models.CustodyPooled
	if err := v.db.SetStake(stake, txn); err != nil {
		return 0, "", err
	}
	record := &models.DepositRecord{
		StakeID:         stakeId,
		Holder:          stake.Owner,
		VestedAtDeposit: vested,
		TotalUnits:      stake.Units,
		VestStart:       stake.VestStart,
		VestCliff:       stake.VestCliff,
		VestEnd:         stake.VestEnd,
		Released:        vested,
		DepositedAt:     now,
	}
	if err := v.db.SetDepositRecord(record, txn); err != nil {
		return 0, "", err
	}
	if vested > 0 {
		if err := v.tokens.Mint(txn, stake.Owner, vested); err != nil {
			return 0, "", err
		}
	}
	if err := v.openLockup(txn, stake.Owner, now); err != nil {
		return 0, "", err
	}
	v.logger.Debug(
		"stake deposited",
		"component", "vault",
		"stake_id", stakeId,
		"holder", stake.Owner,
		"credited", vested,
	)
	return vested, stake.Owner, nil
}

// openLockup opens the holder's account lockup unless one is already active
func (v *Vault) openLockup(
	txn *database.Txn,
	holder string,
	now time.Time,
) error {
	until, err := v.tokens.LockupUntil(txn, holder)
	if err != nil {
		return err
	}
	if until != nil && now.Before(*until) {
		return nil
	}
	return v.tokens.SetLockup(txn, holder, now.Add(v.params.Lockup))
}

// creditAllocation adds to a holder's unclaimed vault-escrowed allocation
func (v *Vault) creditAllocation(
	txn *database.Txn,
	holder string,
	amount uint64,
) error {
	allocation, err := v.db.GetAllocation(holder, txn)
	if err != nil {
		return err
	}
	if allocation == nil {
		allocation = &models.Allocation{Holder: holder}
	}
	allocation.Amount += amount
	return v.db.SetAllocation(allocation, txn)
}

// grantDrip accumulates the protocol allocation into the drip schedule,
// starting its clock on the first grant
func (v *Vault) grantDrip(
	txn *database.Txn,
	amount uint64,
	now time.Time,
) error {
	state, err := v.db.GetDripState(txn)
	if err != nil {
		if !errors.Is(err, models.ErrDripStateNotFound) {
			return err
		}
		state = &models.DripState{StartedAt: now}
	}
	state.Granted += amount
	return v.db.SetDripState(state, txn)
}

// ReleaseVestedTokens credits any units newly vested since the last release
// for a deposited stake, computed against the original vesting window.
// Permissionless; a call with nothing newly vested is a successful no-op.
func (v *Vault) ReleaseVestedTokens(stakeId uint64) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	now := time.Now()
	var (
		holder string
		delta  uint64
	)
	txn := v.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		record, err := v.db.GetDepositRecord(stakeId, txn)
		if err != nil {
			return err
		}
		stake, err := v.db.GetStake(stakeId, txn)
		if err != nil {
			return err
		}
		target := record.TotalUnits
		if !stake.Revoked {
			target = cert.VestedUnits(
				record.TotalUnits,
				record.VestStart,
				record.VestCliff,
				record.VestEnd,
				now,
			)
		}
		if target <= record.Released {
			return nil
		}
		delta = target - record.Released
		holder = record.Holder
		record.Released = target
		if err := v.db.SetDepositRecord(record, txn); err != nil {
			return err
		}
		if err := v.tokens.Mint(
			txn, v.params.VaultAddress, delta,
		); err != nil {
			return err
		}
		return v.creditAllocation(txn, record.Holder, delta)
	})
	v.countOp("release_vested", err)
	if err != nil {
		return err
	}
	if delta > 0 {
		v.publish(
			event.TokensReleasedEventType,
			event.TokenFlowEvent{
				Holder: holder,
				Amount: delta,
			},
		)
	}
	return nil
}

// ClaimTokens transfers the caller's entire unclaimed allocation out of the
// vault. Fails ErrLockupActive before the caller's lockup expiry.
func (v *Vault) ClaimTokens(caller string) (uint64, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	now := time.Now()
	var claimed uint64
	txn := v.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		allocation, err := v.db.GetAllocation(caller, txn)
		if err != nil {
			return err
		}
		if allocation == nil || allocation.Amount == 0 {
			return ErrNothingToClaim
		}
		until, err := v.tokens.LockupUntil(txn, caller)
		if err != nil {
			return err
		}
		if until != nil && now.Before(*until) {
			return ErrLockupActive
		}
		claimed = allocation.Amount
		allocation.Amount = 0
		if err := v.db.SetAllocation(allocation, txn); err != nil {
			return err
		}
		return v.tokens.Transfer(
			txn,
			v.params.VaultAddress,
			v.params.VaultAddress,
			caller,
			claimed,
			now,
		)
	})
	v.countOp("claim_tokens", err)
	if err != nil {
		return 0, err
	}
	v.publish(
		event.TokensClaimedEventType,
		event.TokenFlowEvent{
			Holder: caller,
			Amount: claimed,
		},
	)
	return claimed, nil
}
