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

// GetStake returns a confirmed position by id
func (d *Database) GetStake(id uint64, txn *Txn) (*models.Stake, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var stake models.Stake
	result := txn.Metadata().Where("id = ?", id).First(&stake)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrStakeNotFound
		}
		return nil, fmt.Errorf("failed to get stake: %w", result.Error)
	}
	return &stake, nil
}

// GetStakesByOwner returns all confirmed positions held by the given owner
func (d *Database) GetStakesByOwner(
	owner string,
	txn *Txn,
) ([]models.Stake, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var stakes []models.Stake
	result := txn.Metadata().
		Where("owner = ?", owner).
		Order("id").
		Find(&stakes)
	if result.Error != nil {
		return nil, fmt.Errorf(
			"failed to get stakes for owner: %w",
			result.Error,
		)
	}
	return stakes, nil
}

// SetStake stores a confirmed position, creating it if it doesn't exist
func (d *Database) SetStake(stake *models.Stake, txn *Txn) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetStake(stake, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.Metadata().Save(stake); result.Error != nil {
		return fmt.Errorf("failed to set stake: %w", result.Error)
	}
	return nil
}
