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

package cert

import (
	"io"
	"log/slog"
	"time"

	"github.com/openequity/tessera/database"
	"github.com/openequity/tessera/database/models"
)

// StakeLedger mints and tracks confirmed positions
type StakeLedger struct {
	logger *slog.Logger
	db     *database.Database
}

// NewStakeLedger creates a new position ledger backed by the given database
func NewStakeLedger(
	logger *slog.Logger,
	db *database.Database,
) *StakeLedger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &StakeLedger{
		logger: logger,
		db:     db,
	}
}

// MintParams are the inputs for minting a confirmed position
type MintParams struct {
	Owner             string
	AgreementID       []byte
	Units             uint64
	UnitType          string
	VestStart         time.Time
	VestCliff         time.Time
	VestEnd           time.Time
	RevocableUnvested bool
}

// Mint creates a new confirmed position and returns it. Fails
// ErrInvalidVesting unless start <= cliff <= end and ErrInvalidUnits for
// zero units.
func (l *StakeLedger) Mint(
	txn *database.Txn,
	params MintParams,
	now time.Time,
) (*models.Stake, error) {
	if params.Owner == "" {
		return nil, ErrInvalidRecipient
	}
	if params.Units == 0 {
		return nil, ErrInvalidUnits
	}
	if params.VestCliff.Before(params.VestStart) ||
		params.VestEnd.Before(params.VestCliff) {
		return nil, ErrInvalidVesting
	}
	stake := &models.Stake{
		Owner:             params.Owner,
		AgreementID:       params.AgreementID,
		IssuedAt:          now,
		VestStart:         params.VestStart,
		VestCliff:         params.VestCliff,
		VestEnd:           params.VestEnd,
		RevocableUnvested: params.RevocableUnvested,
		UnitType:          params.UnitType,
		Units:             params.Units,
	}
	if err := l.db.SetStake(stake, txn); err != nil {
		return nil, err
	}
	l.logger.Debug(
		"stake minted",
		"component", "stakes",
		"stake_id", stake.ID,
		"owner", params.Owner,
		"units", params.Units,
	)
	return stake, nil
}

// Revoke claws back the stake per the governing agreement's revocation mode.
// Under UNVESTED_ONLY the vested quantity is snapshotted at the current
// instant and becomes the stake's permanent unit count; under ANY everything
// is removed. Either way the stake's vesting computation is frozen from this
// point on. Fails ErrAlreadyRevoked on a repeat revocation,
// ErrRevocationDisabled when the mode (or the stake's own flag) forbids it,
// and ErrStakeFullyVested when an unvested-only revocation has nothing left
// to remove.
func (l *StakeLedger) Revoke(
	txn *database.Txn,
	id uint64,
	reasonHash []byte,
	now time.Time,
) (*models.Stake, error) {
	stake, err := l.db.GetStake(id, txn)
	if err != nil {
		return nil, err
	}
	if stake.Revoked {
		return nil, ErrAlreadyRevoked
	}
	if stake.Burned {
		return nil, ErrInvalidState
	}
	agreement, err := l.db.GetAgreement(stake.AgreementID, txn)
	if err != nil {
		return nil, err
	}
	switch agreement.RevocationMode {
	case models.RevocationModeNone:
		return nil, ErrRevocationDisabled
	case models.RevocationModeUnvestedOnly:
		if !stake.RevocableUnvested {
			return nil, ErrRevocationDisabled
		}
		vested := VestedUnits(
			stake.Units,
			stake.VestStart,
			stake.VestCliff,
			stake.VestEnd,
			now,
		)
		if vested >= stake.Units {
			return nil, ErrStakeFullyVested
		}
		stake.UnitsRemoved = stake.Units - vested
		stake.Units = vested
	case models.RevocationModeAny:
		stake.UnitsRemoved = stake.Units
		stake.Units = 0
	default:
		return nil, ErrRevocationDisabled
	}
	revokedAt := now
	stake.Revoked = true
	stake.RevokedAt = &revokedAt
	stake.ReasonHash = reasonHash
	if err := l.db.SetStake(stake, txn); err != nil {
		return nil, err
	}
	l.logger.Debug(
		"stake revoked",
		"component", "stakes",
		"stake_id", id,
		"units_removed", stake.UnitsRemoved,
		"units_remaining", stake.Units,
	)
	return stake, nil
}

// Burn destroys a stake at its owner's request. Fails ErrNotOwner unless
// the caller holds the stake and ErrInvalidState if it was already burned
// or is no longer in owner custody.
func (l *StakeLedger) Burn(
	txn *database.Txn,
	id uint64,
	caller string,
) (*models.Stake, error) {
	stake, err := l.db.GetStake(id, txn)
	if err != nil {
		return nil, err
	}
	if stake.Owner != caller {
		return nil, ErrNotOwner
	}
	if stake.Burned || stake.Custody != models.CustodyOwner {
		return nil, ErrInvalidState
	}
	stake.Burned = true
	if err := l.db.SetStake(stake, txn); err != nil {
		return nil, err
	}
	l.logger.Debug(
		"stake burned",
		"component", "stakes",
		"stake_id", id,
	)
	return stake, nil
}

// Get returns the stored stake for the given id
func (l *StakeLedger) Get(
	txn *database.Txn,
	id uint64,
) (*models.Stake, error) {
	return l.db.GetStake(id, txn)
}

// Vested returns the vested quantity for the stake at the given instant,
// honoring the revocation snapshot
func (l *StakeLedger) Vested(
	txn *database.Txn,
	id uint64,
	now time.Time,
) (uint64, error) {
	stake, err := l.db.GetStake(id, txn)
	if err != nil {
		return 0, err
	}
	return StakeVestedUnits(stake, now), nil
}
