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

package models

import (
	"errors"
	"time"
)

var (
	ErrDepositNotFound = errors.New("deposit record not found")
	ErrAlreadyDeposited = errors.New("stake already deposited")
)

// DepositRecord tracks a stake after it has been taken into vault custody at
// the transition event. Released is the cumulative balance credited to the
// original holder for this stake, including the vested amount credited at
// deposit time. The original vesting window is copied here so later releases
// are computed against it even though the stake itself no longer vests.
type DepositRecord struct {
	StakeID         uint64 `gorm:"primarykey"`
	Holder          string `gorm:"index;size:128;not null"`
	VestedAtDeposit uint64 `gorm:"not null"`
	TotalUnits      uint64 `gorm:"not null"`
	VestStart       time.Time
	VestCliff       time.Time
	VestEnd         time.Time
	Released        uint64 `gorm:"not null;default:0"`
	DepositedAt     time.Time
}

// TableName returns the table name
func (DepositRecord) TableName() string {
	return "deposit_record"
}

// Allocation is the vault-escrowed balance released to a holder after
// deposit but not yet claimed. Claims wait out the holder's account lockup.
type Allocation struct {
	Holder string `gorm:"primarykey;size:128"`
	Amount uint64 `gorm:"not null;default:0"`
}

// TableName returns the table name
func (Allocation) TableName() string {
	return "allocation"
}
