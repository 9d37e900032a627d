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
	ErrAccountNotFound    = errors.New("account not found")
	ErrTokenStateNotFound = errors.New("token state not found")
)

// Account is a fungible balance holder. A locked account (LockupUntil in the
// future) may only transfer to allow-listed destinations, which keeps locked
// balances usable for bidding and voting without open-market pressure.
// GovernanceExcluded accounts always carry zero governance weight.
type Account struct {
	Address            string `gorm:"primarykey;size:128"`
	Balance            uint64 `gorm:"not null;default:0"`
	LockupUntil        *time.Time
	GovernanceExcluded bool
	AllowListed        bool
}

// TableName returns the table name
func (Account) TableName() string {
	return "account"
}

// TokenState is the singleton supply row. The cap may only be raised by the
// distinguished governance authority, never the original issuer.
type TokenState struct {
	ID                  uint   `gorm:"primarykey"`
	TotalSupply         uint64 `gorm:"not null;default:0"`
	SupplyCap           uint64 `gorm:"not null"`
	GovernanceAuthority string `gorm:"size:128"`
}

// TableName returns the table name
func (TokenState) TableName() string {
	return "token_state"
}
