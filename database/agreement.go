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

// GetAgreement returns an agreement by its deterministic identifier
func (d *Database) GetAgreement(
	id []byte,
	txn *Txn,
) (*models.Agreement, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var agreement models.Agreement
	result := txn.Metadata().Where("id = ?", id).First(&agreement)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrAgreementNotFound
		}
		return nil, fmt.Errorf("failed to get agreement: %w", result.Error)
	}
	return &agreement, nil
}

// AgreementExists returns whether an agreement with the given identifier is stored
func (d *Database) AgreementExists(id []byte, txn *Txn) (bool, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var count int64
	result := txn.Metadata().
		Model(&models.Agreement{}).
		Where("id = ?", id).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf(
			"failed to check agreement existence: %w",
			result.Error,
		)
	}
	return count > 0, nil
}

// SetAgreement stores a new agreement record
func (d *Database) SetAgreement(
	agreement *models.Agreement,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetAgreement(agreement, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.Metadata().Create(agreement); result.Error != nil {
		return fmt.Errorf("failed to set agreement: %w", result.Error)
	}
	return nil
}

// GetAgreementAmendments returns the agreements whose predecessor is the given identifier
func (d *Database) GetAgreementAmendments(
	id []byte,
	txn *Txn,
) ([]models.Agreement, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var amendments []models.Agreement
	result := txn.Metadata().
		Where("predecessor_id = ?", id).
		Order("created_at").
		Find(&amendments)
	if result.Error != nil {
		return nil, fmt.Errorf(
			"failed to get agreement amendments: %w",
			result.Error,
		)
	}
	return amendments, nil
}
