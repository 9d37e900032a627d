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

// GetRight returns a conditional right by id
func (d *Database) GetRight(id uint64, txn *Txn) (*models.Right, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var right models.Right
	result := txn.Metadata().Where("id = ?", id).First(&right)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrRightNotFound
		}
		return nil, fmt.Errorf("failed to get right: %w", result.Error)
	}
	return &right, nil
}

// GetRightsByOwner returns all conditional rights held by the given owner
func (d *Database) GetRightsByOwner(
	owner string,
	txn *Txn,
) ([]models.Right, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var rights []models.Right
	result := txn.Metadata().
		Where("owner = ?", owner).
		Order("id").
		Find(&rights)
	if result.Error != nil {
		return nil, fmt.Errorf(
			"failed to get rights for owner: %w",
			result.Error,
		)
	}
	return rights, nil
}

// SetRight stores a conditional right, creating it if it doesn't exist
func (d *Database) SetRight(right *models.Right, txn *Txn) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetRight(right, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.Metadata().Save(right); result.Error != nil {
		return fmt.Errorf("failed to set right: %w", result.Error)
	}
	return nil
}
