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

var ErrRightNotFound = errors.New("right not found")

// Right is a conditional right (claim): a promise of future ownership under a
// referenced agreement. Rights terminate through exactly one of two mutually
// exclusive states: voided, or fully redeemed. FullyRedeemed is set only when
// RedeemedUnits reaches MaxUnits, never on a partial redemption.
type Right struct {
	ID             uint64 `gorm:"primarykey"`
	Owner          string `gorm:"index;size:128;not null"`
	AgreementID    []byte `gorm:"size:32;index;not null"`
	IssuedAt       time.Time
	NotBefore      *time.Time
	UnitType       string `gorm:"size:32;not null"`
	MaxUnits       uint64 `gorm:"not null"`
	RedeemedUnits  uint64 `gorm:"not null;default:0"`
	Voided         bool
	FullyRedeemed  bool
	LastReasonHash []byte `gorm:"size:32"`
}

// TableName returns the table name
func (Right) TableName() string {
	return "right"
}

// Remaining returns the units not yet redeemed
func (r *Right) Remaining() uint64 {
	if r.RedeemedUnits > r.MaxUnits {
		return 0
	}
	return r.MaxUnits - r.RedeemedUnits
}
