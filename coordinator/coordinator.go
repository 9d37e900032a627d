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

package coordinator

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/openequity/tessera/cert"
	"github.com/openequity/tessera/database"
	"github.com/openequity/tessera/database/models"
	"github.com/openequity/tessera/event"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrUnauthorized is returned when the caller doesn't hold the issuer
	// capability
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrTransitioned is returned for issuance-side operations after the
	// one-way transition has fired
	ErrTransitioned = errors.New("issuer authority frozen by transition")

	// ErrAlreadyTransitioned is returned on a repeat transition attempt
	ErrAlreadyTransitioned = errors.New("transition already initiated")

	// ErrIdempotenceMismatch is returned when an idempotency key is replayed
	// with different parameters than it was first bound to
	ErrIdempotenceMismatch = errors.New("idempotency key parameter mismatch")

	// ErrNotConfigured is returned when no issuer authority has been
	// bootstrapped yet
	ErrNotConfigured = errors.New("coordinator not configured")
)

// Coordinator is the single entry point for external callers. It enforces
// the issuer capability and idempotency on every issuance-side operation,
// cross-references the registry and the two ledgers, and owns the one-way
// transition switch. The registry and ledgers are constructed independently
// and injected, so each can be tested and substituted on its own.
type Coordinator struct {
	logger   *slog.Logger
	db       *database.Database
	eventBus *event.EventBus
	registry *cert.Registry
	rights   *cert.RightsLedger
	stakes   *cert.StakeLedger
	metrics  *coordinatorMetrics
	mutex    sync.Mutex
}

type coordinatorMetrics struct {
	opsTotal      *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
}

// Config wraps the collaborators injected into a Coordinator
type Config struct {
	Logger       *slog.Logger
	Database     *database.Database
	EventBus     *event.EventBus
	Registry     *cert.Registry
	Rights       *cert.RightsLedger
	Stakes       *cert.StakeLedger
	PromRegistry prometheus.Registerer
}

// New creates a new Coordinator from the given collaborators
func New(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	c := &Coordinator{
		logger:   logger,
		db:       cfg.Database,
		eventBus: cfg.EventBus,
		registry: cfg.Registry,
		rights:   cfg.Rights,
		stakes:   cfg.Stakes,
	}
	if cfg.PromRegistry != nil {
		c.metrics = &coordinatorMetrics{
			opsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tessera_coordinator_ops_total",
					Help: "total coordinator operations by type",
				},
				[]string{"op"},
			),
			failuresTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tessera_coordinator_failures_total",
					Help: "failed coordinator operations by type",
				},
				[]string{"op"},
			),
		}
		cfg.PromRegistry.MustRegister(
			c.metrics.opsTotal,
			c.metrics.failuresTotal,
		)
	}
	return c
}

func (c *Coordinator) countOp(op string, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.opsTotal.WithLabelValues(op).Inc()
	if err != nil {
		c.metrics.failuresTotal.WithLabelValues(op).Inc()
	}
}

func (c *Coordinator) publish(eventType event.EventType, data any) {
	if c.eventBus == nil {
		return
	}
	c.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}

// hashParams derives the idempotency parameter hash. Fields are
// length-prefixed so distinct parameter sets can't share a preimage.
func hashParams(fields ...[]byte) []byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	for _, field := range fields {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(field))) //nolint:gosec
		h.Write(lenBuf[:])
		h.Write(field)
	}
	return h.Sum(nil)
}

func uint64Bytes(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

func timeBytes(t *time.Time) []byte {
	if t == nil {
		return nil
	}
	return uint64Bytes(uint64(t.UnixNano())) //nolint:gosec
}

// Bootstrap stores the issuer authority if no coordinator state exists yet.
// Safe to call on every startup.
func (c *Coordinator) Bootstrap(authority string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	txn := c.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if _, err := c.db.GetCoordinatorState(txn); err == nil {
			return nil
		} else if !errors.Is(err, models.ErrCoordinatorStateNotFound) {
			return err
		}
		if authority == "" {
			return ErrNotConfigured
		}
		return c.db.SetCoordinatorState(
			&models.CoordinatorState{Authority: authority},
			txn,
		)
	})
	return err
}

// ensureIssuer loads the coordinator state and checks that the caller holds
// the live issuer capability. Every issuance-side operation calls this
// first, which is what makes the post-transition freeze a precondition
// rather than a UI concern.
func (c *Coordinator) ensureIssuer(
	txn *database.Txn,
	caller string,
) (*models.CoordinatorState, error) {
	state, err := c.db.GetCoordinatorState(txn)
	if err != nil {
		if errors.Is(err, models.ErrCoordinatorStateNotFound) {
			return nil, ErrNotConfigured
		}
		return nil, err
	}
	if state.Transitioned {
		return nil, ErrTransitioned
	}
	if caller != state.Authority {
		return nil, ErrUnauthorized
	}
	return state, nil
}

// checkIdempotency resolves a caller-supplied key against its stored
// binding. Returns (resultID, true, nil) for a replay with matching
// parameters, (0, false, nil) for a fresh key, and ErrIdempotenceMismatch
// for a replay with different parameters.
func (c *Coordinator) checkIdempotency(
	txn *database.Txn,
	key string,
	paramsHash []byte,
) (uint64, bool, error) {
	record, err := c.db.GetIdempotencyRecord(key, txn)
	if err != nil {
		if errors.Is(err, models.ErrIdempotencyKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if string(record.ParamsHash) != string(paramsHash) {
		return 0, false, ErrIdempotenceMismatch
	}
	return record.ResultID, true, nil
}

func (c *Coordinator) bindIdempotency(
	txn *database.Txn,
	key string,
	paramsHash []byte,
	resultID uint64,
	now time.Time,
) error {
	return c.db.SetIdempotencyRecord(
		&models.IdempotencyRecord{
			Key:        key,
			ParamsHash: paramsHash,
			ResultID:   resultID,
			CreatedAt:  now,
		},
		txn,
	)
}

// CreateAgreement registers a new agreement under the issuer capability and
// returns its deterministic identifier
func (c *Coordinator) CreateAgreement(
	caller string,
	params cert.AgreementParams,
) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := time.Now()
	var id []byte
	txn := c.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if _, err := c.ensureIssuer(txn, caller); err != nil {
			return err
		}
		var err error
		id, err = c.registry.Create(txn, params, now)
		return err
	})
	c.countOp("create_agreement", err)
	if err != nil {
		return nil, err
	}
	c.publish(
		event.AgreementCreatedEventType,
		event.AgreementEvent{
			AgreementID: id,
			Namespace:   params.Namespace,
			Version:     params.Version,
		},
	)
	return id, nil
}

// AmendAgreement registers a successor agreement and returns the new
// identifier. Revocation terms are inherited from the predecessor.
func (c *Coordinator) AmendAgreement(
	caller string,
	oldId []byte,
	params cert.AmendmentParams,
) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := time.Now()
	var newId []byte
	txn := c.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if _, err := c.ensureIssuer(txn, caller); err != nil {
			return err
		}
		var err error
		newId, err = c.registry.Amend(txn, oldId, params, now)
		return err
	})
	c.countOp("amend_agreement", err)
	if err != nil {
		return nil, err
	}
	c.publish(
		event.AgreementAmendedEventType,
		event.AgreementEvent{
			AgreementID:   newId,
			PredecessorID: oldId,
			Version:       params.NewVersion,
		},
	)
	return newId, nil
}

// IssueRight mints a conditional right and returns its id. The idempotency
// key is bound to the parameter hash on first use; an identical replay
// returns the original id with no new effect.
func (c *Coordinator) IssueRight(
	caller string,
	idempotencyKey string,
	params cert.IssueParams,
) (uint64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := time.Now()
	paramsHash := hashParams(
		[]byte("issue"),
		[]byte(params.Owner),
		params.AgreementID,
		uint64Bytes(params.MaxUnits),
		[]byte(params.UnitType),
		timeBytes(params.NotBefore),
	)
	var (
		rightID uint64
		replay  bool
	)
	txn := c.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if _, err := c.ensureIssuer(txn, caller); err != nil {
			return err
		}
		var err error
		rightID, replay, err = c.checkIdempotency(
			txn, idempotencyKey, paramsHash,
		)
		if err != nil || replay {
			return err
		}
		right, err := c.rights.Issue(txn, params, now)
		if err != nil {
			return err
		}
		rightID = right.ID
		return c.bindIdempotency(
			txn, idempotencyKey, paramsHash, rightID, now,
		)
	})
	c.countOp("issue_right", err)
	if err != nil {
		return 0, err
	}
	if !replay {
		c.publish(
			event.RightIssuedEventType,
			event.RightEvent{
				RightID: rightID,
				Owner:   params.Owner,
				Units:   params.MaxUnits,
			},
		)
	}
	return rightID, nil
}

// VoidRight cancels an unfulfilled right. Idempotent replay with matching
// parameters is a no-op returning success. A non-empty reason payload is
// retained in the blob store under its hash.
func (c *Coordinator) VoidRight(
	caller string,
	idempotencyKey string,
	rightId uint64,
	reasonHash []byte,
	reason []byte,
) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := time.Now()
	paramsHash := hashParams(
		[]byte("void"),
		uint64Bytes(rightId),
		reasonHash,
	)
	var (
		right  *models.Right
		replay bool
	)
	txn := c.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if _, err := c.ensureIssuer(txn, caller); err != nil {
			return err
		}
		var err error
		_, replay, err = c.checkIdempotency(txn, idempotencyKey, paramsHash)
		if err != nil || replay {
			return err
		}
		right, err = c.rights.Void(txn, rightId, reasonHash)
		if err != nil {
			return err
		}
		if len(reason) > 0 && len(reasonHash) > 0 {
			if err := c.db.SetReasonBlob(reasonHash, reason, txn); err != nil {
				return err
			}
		}
		return c.bindIdempotency(
			txn, idempotencyKey, paramsHash, rightId, now,
		)
	})
	c.countOp("void_right", err)
	if err != nil {
		return err
	}
	if !replay {
		c.publish(
			event.RightVoidedEventType,
			event.RightEvent{
				RightID: rightId,
				Owner:   right.Owner,
			},
		)
	}
	return nil
}

// RedeemParams are the caller-supplied inputs for redeeming units of a
// right into a confirmed position
type RedeemParams struct {
	RightID    uint64
	Units      uint64
	VestStart  time.Time
	VestCliff  time.Time
	VestEnd    time.Time
	ReasonHash []byte
}

// Redeem converts units of a conditional right into a new confirmed
// position with the given vesting window and returns the position id. The
// position inherits the agreement's default revocable-unvested flag. The
// right's fully-redeemed flag is set only when its running total reaches the
// maximum.
func (c *Coordinator) Redeem(
	caller string,
	idempotencyKey string,
	params RedeemParams,
) (uint64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := time.Now()
	paramsHash := hashParams(
		[]byte("redeem"),
		uint64Bytes(params.RightID),
		uint64Bytes(params.Units),
		timeBytes(&params.VestStart),
		timeBytes(&params.VestCliff),
		timeBytes(&params.VestEnd),
		params.ReasonHash,
	)
	var (
		stakeID uint64
		right   *models.Right
		replay  bool
	)
	txn := c.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if _, err := c.ensureIssuer(txn, caller); err != nil {
			return err
		}
		var err error
		stakeID, replay, err = c.checkIdempotency(
			txn, idempotencyKey, paramsHash,
		)
		if err != nil || replay {
			return err
		}
		right, err = c.rights.RecordRedemption(
			txn, params.RightID, params.Units, params.ReasonHash, now,
		)
		if err != nil {
			return err
		}
		agreement, err := c.db.GetAgreement(right.AgreementID, txn)
		if err != nil {
			return err
		}
		stake, err := c.stakes.Mint(
			txn,
			cert.MintParams{
				Owner:             right.Owner,
				AgreementID:       right.AgreementID,
				Units:             params.Units,
				UnitType:          right.UnitType,
				VestStart:         params.VestStart,
				VestCliff:         params.VestCliff,
				VestEnd:           params.VestEnd,
				RevocableUnvested: agreement.DefaultRevocableUnvested,
			},
			now,
		)
		if err != nil {
			return err
		}
		stakeID = stake.ID
		return c.bindIdempotency(
			txn, idempotencyKey, paramsHash, stakeID, now,
		)
	})
	c.countOp("redeem", err)
	if err != nil {
		return 0, err
	}
	if !replay {
		c.publish(
			event.StakeMintedEventType,
			event.StakeEvent{
				StakeID: stakeID,
				Owner:   right.Owner,
				Units:   params.Units,
			},
		)
	}
	return stakeID, nil
}

// Revoke claws back a position per its agreement's revocation mode. The
// vested quantity is snapshotted at this instant and frozen. A non-empty
// reason payload is retained in the blob store under its hash.
func (c *Coordinator) Revoke(
	caller string,
	stakeId uint64,
	reasonHash []byte,
	reason []byte,
) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := time.Now()
	var stake *models.Stake
	txn := c.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if _, err := c.ensureIssuer(txn, caller); err != nil {
			return err
		}
		var err error
		stake, err = c.stakes.Revoke(txn, stakeId, reasonHash, now)
		if err != nil {
			return err
		}
		if len(reason) > 0 && len(reasonHash) > 0 {
			return c.db.SetReasonBlob(reasonHash, reason, txn)
		}
		return nil
	})
	c.countOp("revoke", err)
	if err != nil {
		return err
	}
	c.publish(
		event.StakeRevokedEventType,
		event.StakeEvent{
			StakeID:      stakeId,
			Owner:        stake.Owner,
			Units:        stake.Units,
			UnitsRemoved: stake.UnitsRemoved,
		},
	)
	return nil
}

// BurnStake destroys a position at its owner's request. Available in every
// lifecycle phase as long as the position is still in owner custody.
func (c *Coordinator) BurnStake(caller string, stakeId uint64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var stake *models.Stake
	txn := c.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		var err error
		stake, err = c.stakes.Burn(txn, stakeId, caller)
		return err
	})
	c.countOp("burn_stake", err)
	if err != nil {
		return err
	}
	c.publish(
		event.StakeBurnedEventType,
		event.StakeEvent{
			StakeID: stakeId,
			Owner:   stake.Owner,
			Units:   stake.Units,
		},
	)
	return nil
}

// RotateAuthority atomically swaps the issuer capability to a new identity.
// Fails once the transition has fired; the authority is frozen from then on.
func (c *Coordinator) RotateAuthority(
	caller string,
	newAuthority string,
) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	txn := c.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		state, err := c.ensureIssuer(txn, caller)
		if err != nil {
			return err
		}
		if newAuthority == "" {
			return ErrNotConfigured
		}
		state.Authority = newAuthority
		return c.db.SetCoordinatorState(state, txn)
	})
	c.countOp("rotate_authority", err)
	return err
}

// InitiateTransition flips the permanent transition flag and hands
// transfer-authorization control to the named vault. One-way: fails
// ErrAlreadyTransitioned on any later attempt, and every issuance-side
// operation fails from this point on.
func (c *Coordinator) InitiateTransition(
	caller string,
	vaultRef string,
) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := time.Now()
	txn := c.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		state, err := c.db.GetCoordinatorState(txn)
		if err != nil {
			if errors.Is(err, models.ErrCoordinatorStateNotFound) {
				return ErrNotConfigured
			}
			return err
		}
		if state.Transitioned {
			return ErrAlreadyTransitioned
		}
		if caller != state.Authority {
			return ErrUnauthorized
		}
		if vaultRef == "" {
			return fmt.Errorf("%w: empty vault reference", ErrNotConfigured)
		}
		transitionedAt := now
		state.Transitioned = true
		state.VaultRef = vaultRef
		state.TransitionedAt = &transitionedAt
		return c.db.SetCoordinatorState(state, txn)
	})
	c.countOp("initiate_transition", err)
	if err != nil {
		return err
	}
	c.logger.Info(
		"transition initiated",
		"component", "coordinator",
		"vault_ref", vaultRef,
	)
	c.publish(
		event.TransitionInitiatedEventType,
		event.TransitionEvent{
			VaultRef: vaultRef,
			At:       now,
		},
	)
	return nil
}

// Transitioned reports whether the one-way transition has fired and, if so,
// the registered vault reference
func (c *Coordinator) Transitioned() (bool, string, error) {
	state, err := c.db.GetCoordinatorState(nil)
	if err != nil {
		if errors.Is(err, models.ErrCoordinatorStateNotFound) {
			return false, "", nil
		}
		return false, "", err
	}
	return state.Transitioned, state.VaultRef, nil
}
