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

package database

import (
	"errors"
	"fmt"

	"github.com/openequity/tessera/database/models"
	"gorm.io/gorm"
)

// GetDepositRecord returns the vault deposit record for the given stake
func (d *Database) GetDepositRecord(
	stakeId uint64,
	txn *Txn,
) (*models.DepositRecord, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var record models.DepositRecord
	result := txn.Metadata().Where("stake_id = ?", stakeId).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrDepositNotFound
		}
		return nil, fmt.Errorf("failed to get deposit record: %w", result.Error)
	}
	return &record, nil
}

// SetDepositRecord stores a vault deposit record
func (d *Database) SetDepositRecord(
	record *models.DepositRecord,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetDepositRecord(record, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.Metadata().Save(record); result.Error != nil {
		return fmt.Errorf("failed to set deposit record: %w", result.Error)
	}
	return nil
}

// GetAllocation returns the vault-internal allocation for the given holder
func (d *Database) GetAllocation(
	holder string,
	txn *Txn,
) (*models.Allocation, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var allocation models.Allocation
	result := txn.Metadata().Where("holder = ?", holder).First(&allocation)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get allocation: %w", result.Error)
	}
	return &allocation, nil
}

// SetAllocation stores a vault-internal allocation
func (d *Database) SetAllocation(
	allocation *models.Allocation,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetAllocation(allocation, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.Metadata().Save(allocation); result.Error != nil {
		return fmt.Errorf("failed to set allocation: %w", result.Error)
	}
	return nil
}

// GetSeat returns the governance seat record for the given stake
func (d *Database) GetSeat(stakeId uint64, txn *Txn) (*models.Seat, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var seat models.Seat
	result := txn.Metadata().Where("stake_id = ?", stakeId).First(&seat)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrSeatNotFound
		}
		return nil, fmt.Errorf("failed to get seat: %w", result.Error)
	}
	return &seat, nil
}

// GetActiveSeats returns all currently active governance seats
func (d *Database) GetActiveSeats(txn *Txn) ([]models.Seat, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var seats []models.Seat
	result := txn.Metadata().
		Where("active = ?", true).
		Order("stake_id").
		Find(&seats)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get active seats: %w", result.Error)
	}
	return seats, nil
}

// GetGovernanceWeight returns the summed weight of all active seats
func (d *Database) GetGovernanceWeight(txn *Txn) (uint64, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var weight *uint64
	result := txn.Metadata().
		Model(&models.Seat{}).
		Where("active = ?", true).
		Select("sum(weight)").
		Scan(&weight)
	if result.Error != nil {
		return 0, fmt.Errorf(
			"failed to get governance weight: %w",
			result.Error,
		)
	}
	if weight == nil {
		return 0, nil
	}
	return *weight, nil
}

// SetSeat stores a governance seat record
func (d *Database) SetSeat(seat *models.Seat, txn *Txn) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetSeat(seat, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.Metadata().Save(seat); result.Error != nil {
		return fmt.Errorf("failed to set seat: %w", result.Error)
	}
	return nil
}

// GetOpenAuction returns the unsettled auction for the given stake, or nil
// if no auction is open
func (d *Database) GetOpenAuction(
	stakeId uint64,
	txn *Txn,
) (*models.SeatAuction, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var auction models.SeatAuction
	result := txn.Metadata().
		Where("stake_id = ? AND settled = ?", stakeId, false).
		First(&auction)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open auction: %w", result.Error)
	}
	return &auction, nil
}

// SetAuction stores a seat auction record
func (d *Database) SetAuction(auction *models.SeatAuction, txn *Txn) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetAuction(auction, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.Metadata().Save(auction); result.Error != nil {
		return fmt.Errorf("failed to set auction: %w", result.Error)
	}
	return nil
}

// GetOverrideProposal returns an override proposal by id
func (d *Database) GetOverrideProposal(
	id uint64,
	txn *Txn,
) (*models.OverrideProposal, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var proposal models.OverrideProposal
	result := txn.Metadata().Where("id = ?", id).First(&proposal)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrOverrideProposalNotFound
		}
		return nil, fmt.Errorf(
			"failed to get override proposal: %w",
			result.Error,
		)
	}
	return &proposal, nil
}

// GetLastExecutedOverride returns the most recently executed override
// proposal, or nil if none has executed
func (d *Database) GetLastExecutedOverride(
	txn *Txn,
) (*models.OverrideProposal, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var proposal models.OverrideProposal
	result := txn.Metadata().
		Where("executed = ?", true).
		Order("executed_at DESC").
		First(&proposal)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf(
			"failed to get last executed override: %w",
			result.Error,
		)
	}
	return &proposal, nil
}

// SetOverrideProposal stores an override proposal
func (d *Database) SetOverrideProposal(
	proposal *models.OverrideProposal,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetOverrideProposal(proposal, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.Metadata().Save(proposal); result.Error != nil {
		return fmt.Errorf("failed to set override proposal: %w", result.Error)
	}
	return nil
}

// GetOverrideVote returns the ballot cast by the given voter on the given
// proposal, or nil if they haven't voted
func (d *Database) GetOverrideVote(
	proposalId uint64,
	voter string,
	txn *Txn,
) (*models.OverrideVote, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var vote models.OverrideVote
	result := txn.Metadata().
		Where("proposal_id = ? AND voter = ?", proposalId, voter).
		First(&vote)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get override vote: %w", result.Error)
	}
	return &vote, nil
}

// SetOverrideVote stores an override ballot
func (d *Database) SetOverrideVote(
	vote *models.OverrideVote,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetOverrideVote(vote, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.Metadata().Create(vote); result.Error != nil {
		return fmt.Errorf("failed to set override vote: %w", result.Error)
	}
	return nil
}
