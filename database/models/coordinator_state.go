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
	ErrCoordinatorStateNotFound = errors.New("coordinator state not found")
	ErrIdempotencyKeyNotFound   = errors.New("idempotency key not found")
)

// CoordinatorState is the singleton row holding the issuer capability and
// the one-way transition flag. Once Transitioned is set the authority is
// frozen permanently and VaultRef names the only identity allowed to move
// stakes.
type CoordinatorState struct {
	ID             uint   `gorm:"primarykey"`
	Authority      string `gorm:"size:128;not null"`
	Transitioned   bool
	VaultRef       string `gorm:"size:128"`
	TransitionedAt *time.Time
}

// TableName returns the table name
func (CoordinatorState) TableName() string {
	return "coordinator_state"
}

// IdempotencyRecord binds a caller-supplied key to the hash of the
// parameters it was first used with and the id that use produced. Replays
// with a matching hash return ResultID; replays with a different hash are
// rejected.
type IdempotencyRecord struct {
	Key        string `gorm:"primarykey;size:128"`
	ParamsHash []byte `gorm:"size:32;not null"`
	ResultID   uint64 `gorm:"not null;default:0"`
	CreatedAt  time.Time
}

// TableName returns the table name
func (IdempotencyRecord) TableName() string {
	return "idempotency_record"
}
