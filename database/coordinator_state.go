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

// GetCoordinatorState returns the singleton coordinator state row
func (d *Database) GetCoordinatorState(
	txn *Txn,
) (*models.CoordinatorState, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var state models.CoordinatorState
	result := txn.Metadata().First(&state)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrCoordinatorStateNotFound
		}
		return nil, fmt.Errorf(
			"failed to get coordinator state: %w",
			result.Error,
		)
	}
	return &state, nil
}

// SetCoordinatorState stores the singleton coordinator state row
func (d *Database) SetCoordinatorState(
	state *models.CoordinatorState,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetCoordinatorState(state, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.Metadata().Save(state); result.Error != nil {
		return fmt.Errorf("failed to set coordinator state: %w", result.Error)
	}
	return nil
}

// GetIdempotencyRecord returns the record bound to the given key
func (d *Database) GetIdempotencyRecord(
	key string,
	txn *Txn,
) (*models.IdempotencyRecord, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var record models.IdempotencyRecord
	result := txn.Metadata().Where("key = ?", key).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrIdempotencyKeyNotFound
		}
		return nil, fmt.Errorf(
			"failed to get idempotency record: %w",
			result.Error,
		)
	}
	return &record, nil
}

// SetIdempotencyRecord stores a new idempotency key binding
func (d *Database) SetIdempotencyRecord(
	record *models.IdempotencyRecord,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetIdempotencyRecord(record, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.Metadata().Create(record); result.Error != nil {
		return fmt.Errorf(
			"failed to set idempotency record: %w",
			result.Error,
		)
	}
	return nil
}

// GetDripState returns the singleton drip accounting row
func (d *Database) GetDripState(txn *Txn) (*models.DripState, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var state models.DripState
	result := txn.Metadata().First(&state)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrDripStateNotFound
		}
		return nil, fmt.Errorf("failed to get drip state: %w", result.Error)
	}
	return &state, nil
}

// SetDripState stores the singleton drip accounting row
func (d *Database) SetDripState(
	state *models.DripState,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetDripState(state, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.Metadata().Save(state); result.Error != nil {
		return fmt.Errorf("failed to set drip state: %w", result.Error)
	}
	return nil
}
