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

// GetAccount returns a balance account by address
func (d *Database) GetAccount(
	address string,
	txn *Txn,
) (*models.Account, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var account models.Account
	result := txn.Metadata().Where("address = ?", address).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", result.Error)
	}
	return &account, nil
}

// GetOrCreateAccount returns the account for the given address, creating an
// empty one if it doesn't exist
func (d *Database) GetOrCreateAccount(
	address string,
	txn *Txn,
) (*models.Account, error) {
	account, err := d.GetAccount(address, txn)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, models.ErrAccountNotFound) {
		return nil, err
	}
	account = &models.Account{Address: address}
	if err := d.SetAccount(account, txn); err != nil {
		return nil, err
	}
	return account, nil
}

// SetAccount stores a balance account
func (d *Database) SetAccount(account *models.Account, txn *Txn) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetAccount(account, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.Metadata().Save(account); result.Error != nil {
		return fmt.Errorf("failed to set account: %w", result.Error)
	}
	return nil
}

// GetExcludedBalance returns the summed balance of governance-excluded accounts
func (d *Database) GetExcludedBalance(txn *Txn) (uint64, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var balance *uint64
	result := txn.Metadata().
		Model(&models.Account{}).
		Where("governance_excluded = ?", true).
		Select("sum(balance)").
		Scan(&balance)
	if result.Error != nil {
		return 0, fmt.Errorf(
			"failed to get excluded balance: %w",
			result.Error,
		)
	}
	if balance == nil {
		return 0, nil
	}
	return *balance, nil
}

// GetTokenState returns the singleton token supply row
func (d *Database) GetTokenState(txn *Txn) (*models.TokenState, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var state models.TokenState
	result := txn.Metadata().First(&state)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrTokenStateNotFound
		}
		return nil, fmt.Errorf("failed to get token state: %w", result.Error)
	}
	return &state, nil
}

// SetTokenState stores the singleton token supply row
func (d *Database) SetTokenState(
	state *models.TokenState,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetTokenState(state, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.Metadata().Save(state); result.Error != nil {
		return fmt.Errorf("failed to set token state: %w", result.Error)
	}
	return nil
}
