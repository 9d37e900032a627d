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

package drip

import (
	"errors"
	"testing"
	"time"

	"github.com/openequity/tessera/database"
	"github.com/openequity/tessera/database/models"
	"github.com/openequity/tessera/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testProtocol = "protocol"
	testTreasury = "treasury"
)

type fakeSeller struct {
	sales      []uint64
	recipients []string
	err        error
}

func (s *fakeSeller) Sell(amount uint64, recipient string) error {
	if s.err != nil {
		return s.err
	}
	s.sales = append(s.sales, amount)
	s.recipients = append(s.recipients, recipient)
	return nil
}

func newTestDrip(
	t *testing.T,
	seller Seller,
	schedule Schedule,
) (*Drip, *database.Database, *token.Ledger) {
	t.Helper()
	db, err := database.New(&database.Config{
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	tokens := token.NewLedger(nil, db)
	require.NoError(t, tokens.Init(nil, 1_000_000, "governance"))
	d := New(
		nil, db, tokens, seller,
		schedule, testProtocol, testTreasury,
	)
	return d, db, tokens
}

// fundProtocol mints the granted amount into the protocol account, standing
// in for the vault's fee mint
func fundProtocol(
	t *testing.T,
	db *database.Database,
	tokens *token.Ledger,
	amount uint64,
) {
	t.Helper()
	txn := db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		return tokens.Mint(txn, testProtocol, amount)
	})
	require.NoError(t, err)
}

func balanceOf(
	t *testing.T,
	tokens *token.Ledger,
	address string,
) uint64 {
	t.Helper()
	balance, err := tokens.BalanceOf(nil, address)
	require.NoError(t, err)
	return balance
}

func TestDripUnlockedSchedule(t *testing.T) {
	day := 24 * time.Hour
	d, _, _ := newTestDrip(t, &fakeSeller{}, Schedule{
		Lockup: 365 * day,
		Unlock: 730 * day,
	})
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		now      time.Time
		expected uint64
	}{
		{
			name:     "before cliff",
			now:      start.Add(100 * day),
			expected: 0,
		},
		{
			name:     "at cliff",
			now:      start.Add(365 * day),
			expected: 0,
		},
		{
			name:     "halfway through unlock",
			now:      start.Add((365 + 365) * day),
			expected: 500,
		},
		{
			name:     "at end of unlock",
			now:      start.Add((365 + 730) * day),
			expected: 1000,
		},
		{
			name:     "past end",
			now:      start.Add(9999 * day),
			expected: 1000,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, d.unlocked(1000, start, tc.now))
		})
	}
}

func TestDripUnlockedInstant(t *testing.T) {
	// A zero unlock interval releases everything at the cliff
	d, _, _ := newTestDrip(t, &fakeSeller{}, Schedule{
		Lockup: time.Hour,
	})
	start := time.Now()
	assert.Equal(t, uint64(0), d.unlocked(1000, start, start))
	assert.Equal(
		t,
		uint64(1000),
		d.unlocked(1000, start, start.Add(time.Hour)),
	)
}

func TestDripReleasableNoGrants(t *testing.T) {
	d, _, _ := newTestDrip(t, &fakeSeller{}, Schedule{Lockup: time.Hour})

	releasable, err := d.Releasable(time.Now())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), releasable)

	_, err = d.Liquidate()
	assert.ErrorIs(t, err, ErrNothingReleasable)
}

func TestDripLiquidate(t *testing.T) {
	day := 24 * time.Hour
	seller := &fakeSeller{}
	d, db, tokens := newTestDrip(t, seller, Schedule{
		Lockup: 365 * day,
		Unlock: 730 * day,
	})
	// Whole schedule already elapsed
	fundProtocol(t, db, tokens, 1000)
	require.NoError(t, db.SetDripState(&models.DripState{
		Granted:   1000,
		StartedAt: time.Now().Add(-(365 + 730 + 1) * day),
	}, nil))

	amount, err := d.Liquidate()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), amount)
	assert.Equal(t, []uint64{1000}, seller.sales)
	assert.Equal(t, []string{testTreasury}, seller.recipients)

	// The sold tranche left the protocol account for treasury custody
	assert.Equal(t, uint64(0), balanceOf(t, tokens, testProtocol))
	assert.Equal(t, uint64(1000), balanceOf(t, tokens, testTreasury))

	// Nothing left to sell until new grants arrive
	_, err = d.Liquidate()
	assert.ErrorIs(t, err, ErrNothingReleasable)

	state, err := db.GetDripState(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), state.Sold)
}

func TestDripLiquidateBeforeCliff(t *testing.T) {
	d, db, _ := newTestDrip(t, &fakeSeller{}, Schedule{
		Lockup: time.Hour,
		Unlock: time.Hour,
	})
	require.NoError(t, db.SetDripState(&models.DripState{
		Granted:   1000,
		StartedAt: time.Now(),
	}, nil))

	_, err := d.Liquidate()
	assert.ErrorIs(t, err, ErrNothingReleasable)
}

func TestDripLiquidateSellerFailure(t *testing.T) {
	day := 24 * time.Hour
	sellErr := errors.New("market halted")
	seller := &fakeSeller{err: sellErr}
	d, db, tokens := newTestDrip(t, seller, Schedule{
		Lockup: day,
		Unlock: day,
	})
	fundProtocol(t, db, tokens, 1000)
	require.NoError(t, db.SetDripState(&models.DripState{
		Granted:   1000,
		StartedAt: time.Now().Add(-3 * day),
	}, nil))

	_, err := d.Liquidate()
	assert.ErrorIs(t, err, sellErr)

	// A failed sale must not advance the sold marker or move any balance
	state, err := db.GetDripState(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.Sold)
	assert.Equal(t, uint64(1000), balanceOf(t, tokens, testProtocol))
	assert.Equal(t, uint64(0), balanceOf(t, tokens, testTreasury))

	seller.err = nil
	amount, err := d.Liquidate()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), amount)
	assert.Equal(t, uint64(0), balanceOf(t, tokens, testProtocol))
}
