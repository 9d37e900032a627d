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

var ErrDripStateNotFound = errors.New("drip state not found")

// DripState is the singleton accounting row for the protocol's own minted
// share. Granted accumulates as transition batches mint the protocol
// allocation; Sold accumulates as the drip liquidates the releasable
// remainder. The unlock schedule itself is construction-time configuration
// and is deliberately not stored here.
type DripState struct {
	ID        uint   `gorm:"primarykey"`
	Granted   uint64 `gorm:"not null;default:0"`
	Sold      uint64 `gorm:"not null;default:0"`
	StartedAt time.Time
}

// TableName returns the table name
func (DripState) TableName() string {
	return "drip_state"
}
