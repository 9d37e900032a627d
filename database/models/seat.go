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
	ErrSeatNotFound    = errors.New("seat not found")
	ErrAuctionNotFound = errors.New("auction not found")
)

// Seat records a vault-held stake assigned to a temporary governance holder.
// Weight is the stake's unit count at award time and is what the holder
// votes with. LockedBid stays escrowed for the whole term.
type Seat struct {
	StakeID   uint64 `gorm:"primarykey"`
	Holder    string `gorm:"index;size:128;not null"`
	TermStart time.Time
	TermEnd   time.Time
	LockedBid uint64 `gorm:"not null"`
	Weight    uint64 `gorm:"not null"`
	Active    bool   `gorm:"index"`
}

// TableName returns the table name
func (Seat) TableName() string {
	return "seat"
}

// SeatAuction is an open or settled auction for the governance seat backed
// by a pooled stake. At most one unsettled auction exists per stake.
type SeatAuction struct {
	ID         uint64 `gorm:"primarykey"`
	StakeID    uint64 `gorm:"index;not null"`
	OpenedAt   time.Time
	ClosesAt   time.Time
	HighBidder string `gorm:"size:128"`
	HighBid    uint64 `gorm:"not null;default:0"`
	Settled    bool   `gorm:"index"`
}

// TableName returns the table name
func (SeatAuction) TableName() string {
	return "seat_auction"
}
