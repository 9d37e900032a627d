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

var ErrStakeNotFound = errors.New("stake not found")

// Custody states for a stake after the transition event
const (
	CustodyOwner    uint8 = iota // held by its owner (pre-transition)
	CustodyPooled                // deposited in the vault, not assigned
	CustodyAssigned              // assigned to a governance seat holder
)

// Stake is a confirmed position: an unconditional ownership record produced
// by redeeming a right. Units only ever decrease, and only through
// revocation. Once Revoked is set, Units holds the vested quantity frozen at
// the revocation instant; vesting queries must return that snapshot and never
// recompute.
type Stake struct {
	ID                uint64 `gorm:"primarykey"`
	Owner             string `gorm:"index;size:128;not null"`
	AgreementID       []byte `gorm:"size:32;index;not null"`
	IssuedAt          time.Time
	VestStart         time.Time
	VestCliff         time.Time
	VestEnd           time.Time
	Revoked           bool
	RevokedAt         *time.Time
	RevocableUnvested bool
	UnitType          string `gorm:"size:32;not null"`
	Units             uint64 `gorm:"not null"`
	UnitsRemoved      uint64 `gorm:"not null;default:0"`
	ReasonHash        []byte `gorm:"size:32"`
	Burned            bool
	Custody           uint8 `gorm:"not null;default:0"`
}

// TableName returns the table name
func (Stake) TableName() string {
	return "stake"
}
