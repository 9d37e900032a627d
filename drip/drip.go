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

// Package drip sells the protocol's own minted share on a fixed schedule: a
// lockup interval followed by a linear unlock. The schedule and treasury
// recipient are set at construction and there is no administrative override
// afterwards.
package drip

import (
	"errors"
	"io"
	"log/slog"
	"math/bits"
	"sync"
	"time"

	"github.com/openequity/tessera/database"
	"github.com/openequity/tessera/database/models"
	"github.com/openequity/tessera/token"
)

// ErrNothingReleasable is returned by Liquidate when no granted amount has
// unlocked beyond what was already sold
var ErrNothingReleasable = errors.New("nothing releasable")

// Seller is the injected price-taking liquidation interface. Sell disposes
// of exactly amount and routes the proceeds to recipient.
type Seller interface {
	Sell(amount uint64, recipient string) error
}

// Schedule is the immutable unlock schedule
type Schedule struct {
	// Lockup is the interval after the first grant during which nothing
	// unlocks
	Lockup time.Duration
	// Unlock is the linear-release interval that follows the lockup
	Unlock time.Duration
}

// Drip liquidates the releasable remainder of the protocol allocation
// through an injected price-taking interface, routing proceeds to a fixed
// treasury address. Liquidate is permissionless.
type Drip struct {
	logger   *slog.Logger
	db       *database.Database
	tokens   *token.Ledger
	seller   Seller
	schedule Schedule
	protocol string
	treasury string
	mutex    sync.Mutex
}

// New creates a new fee drip selling down the protocol account on the given
// schedule, with proceeds routed to the treasury
func New(
	logger *slog.Logger,
	db *database.Database,
	tokens *token.Ledger,
	seller Seller,
	schedule Schedule,
	protocol string,
	treasury string,
) *Drip {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Drip{
		logger:   logger,
		db:       db,
		tokens:   tokens,
		seller:   seller,
		schedule: schedule,
		protocol: protocol,
		treasury: treasury,
	}
}

// unlocked returns how much of granted has unlocked at the given instant
// under the schedule, as a pure function of elapsed time
func (d *Drip) unlocked(
	granted uint64,
	startedAt time.Time,
	now time.Time,
) uint64 {
	cliff := startedAt.Add(d.schedule.Lockup)
	if now.Before(cliff) {
		return 0
	}
	if d.schedule.Unlock <= 0 {
		return granted
	}
	elapsed := now.Sub(cliff)
	if elapsed >= d.schedule.Unlock {
		return granted
	}
	// elapsed < Unlock, so the quotient fits in 64 bits
	hi, lo := bits.Mul64(granted, uint64(elapsed))
	quot, _ := bits.Div64(hi, lo, uint64(d.schedule.Unlock))
	return quot
}

// Releasable returns the unlocked-but-unsold remainder at the given instant
func (d *Drip) Releasable(now time.Time) (uint64, error) {
	state, err := d.db.GetDripState(nil)
	if err != nil {
		if errors.Is(err, models.ErrDripStateNotFound) {
			return 0, nil
		}
		return 0, err
	}
	unlocked := d.unlocked(state.Granted, state.StartedAt, now)
	if unlocked <= state.Sold {
		return 0, nil
	}
	return unlocked - state.Sold, nil
}

// Liquidate sells exactly the releasable remainder through the injected
// seller, routing proceeds to the treasury. The sold tranche moves out of
// the protocol account into the treasury's custody, where the seller
// disposes of it. Permissionless; fails ErrNothingReleasable when nothing
// new has unlocked.
func (d *Drip) Liquidate() (uint64, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	now := time.Now()
	var amount uint64
	txn := d.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		state, err := d.db.GetDripState(txn)
		if err != nil {
			if errors.Is(err, models.ErrDripStateNotFound) {
				return ErrNothingReleasable
			}
			return err
		}
		unlocked := d.unlocked(state.Granted, state.StartedAt, now)
		if unlocked <= state.Sold {
			return ErrNothingReleasable
		}
		amount = unlocked - state.Sold
		if err := d.tokens.Transfer(
			txn, d.protocol, d.protocol, d.treasury, amount, now,
		); err != nil {
			return err
		}
		if err := d.seller.Sell(amount, d.treasury); err != nil {
			return err
		}
		state.Sold = unlocked
		return d.db.SetDripState(state, txn)
	})
	if err != nil {
		return 0, err
	}
	d.logger.Info(
		"drip liquidated",
		"component", "drip",
		"amount", amount,
		"treasury", d.treasury,
	)
	return amount, nil
}
