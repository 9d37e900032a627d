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
	ErrAgreementNotFound = errors.New("agreement not found")
	ErrAgreementExists   = errors.New("agreement already exists")
)

// Revocation modes for an agreement. The mode is fixed at creation and
// inherited unconditionally by amendments.
const (
	RevocationModeNone uint8 = iota
	RevocationModeUnvestedOnly
	RevocationModeAny
)

// Agreement is a versioned, content-addressed document governing a set of
// issuances. The ID is a pure function of (namespace, content hash, version),
// so re-creating an identical agreement is always detected as a duplicate.
// Amendments produce a new row whose PredecessorID points at the old one; the
// old row is never mutated.
type Agreement struct {
	ID                       []byte `gorm:"primaryKey;size:32"`
	Namespace                string `gorm:"index;size:64;not null"`
	ContentHash              []byte `gorm:"size:32;not null"`
	RightsRoot               []byte `gorm:"size:32"`
	DocPointer               string `gorm:"size:256"`
	Version                  string `gorm:"size:64;not null"`
	Mutable                  bool
	RevocationMode           uint8 `gorm:"not null"`
	DefaultRevocableUnvested bool
	PredecessorID            []byte `gorm:"size:32;index"`
	CreatedAt                time.Time
}

// TableName returns the table name
func (Agreement) TableName() string {
	return "agreement"
}
