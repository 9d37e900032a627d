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

package vault

import (
	"testing"
	"time"

	"github.com/openequity/tessera/database/models"
	"github.com/openequity/tessera/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pooledStake deposits a fully vested stake so it sits in pooled custody
func (env *testEnv) pooledStake(
	t *testing.T,
	owner string,
	units uint64,
) uint64 {
	t.Helper()
	stakeId := env.mintVestedStake(t, owner, units)
	require.NoError(t, env.vault.ProcessBatch(testVaultRef, []uint64{stakeId}))
	return stakeId
}

func TestAuctionStart(t *testing.T) {
	env := newTestEnv(t, defaultTestParams())

	// Owner-custody stakes can't be auctioned
	ownerHeld := env.mintVestedStake(t, "alice", 1000)
	err := env.vault.StartAuction(ownerHeld)
	assert.ErrorIs(t, err, ErrNotPooled)

	stakeId := env.pooledStake(t, "alice", 1000)
	require.NoError(t, env.vault.StartAuction(stakeId))

	// Only one open auction per stake
	err = env.vault.StartAuction(stakeId)
	assert.ErrorIs(t, err, ErrAuctionOpen)
}

// A 10,000-unit stake with a 10% floor: 999 fails the floor, 1000 meets it,
// a matching counter-bid fails, and a strictly higher one displaces and
// refunds the previous bidder.
func TestAuctionBidFloorAndOutbid(t *testing.T) {
	env := newTestEnv(t, defaultTestParams())
	stakeId := env.pooledStake(t, "holder", 10_000)
	require.NoError(t, env.vault.StartAuction(stakeId))

	env.fund(t, "alice", 5000)
	env.fund(t, "bob", 5000)

	err := env.vault.Bid(stakeId, "alice", 999)
	assert.ErrorIs(t, err, ErrBidTooLow)

	require.NoError(t, env.vault.Bid(stakeId, "alice", 1000))
	assert.Equal(t, uint64(4000), env.balanceOf(t, "alice"))

	// Equal to the standing bid is not an improvement
	err = env.vault.Bid(stakeId, "bob", 1000)
	assert.ErrorIs(t, err, ErrBidTooLow)
	assert.Equal(t, uint64(5000), env.balanceOf(t, "bob"))

	require.NoError(t, env.vault.Bid(stakeId, "bob", 1001))
	assert.Equal(t, uint64(3999), env.balanceOf(t, "bob"))
	// The displaced bidder is made whole in the same operation
	assert.Equal(t, uint64(5000), env.balanceOf(t, "alice"))
}

func TestAuctionBidNoAuction(t *testing.T) {
	env := newTestEnv(t, defaultTestParams())
	stakeId := env.pooledStake(t, "holder", 1000)
	env.fund(t, "alice", 1000)

	err := env.vault.Bid(stakeId, "alice", 500)
	assert.ErrorIs(t, err, ErrNoAuction)
}

func TestAuctionBidInsufficientBalance(t *testing.T) {
	env := newTestEnv(t, defaultTestParams())
	stakeId := env.pooledStake(t, "holder", 1000)
	require.NoError(t, env.vault.StartAuction(stakeId))
	env.fund(t, "alice", 50)

	err := env.vault.Bid(stakeId, "alice", 100)
	assert.ErrorIs(t, err, token.ErrInsufficientBalance)
}

func TestAuctionSettleAndReclaim(t *testing.T) {
	params := defaultTestParams()
	params.AuctionWindow = 100 * time.Millisecond
	params.SeatTerm = 100 * time.Millisecond
	env := newTestEnv(t, params)
	stakeId := env.pooledStake(t, "holder", 10_000)
	require.NoError(t, env.vault.StartAuction(stakeId))
	env.fund(t, "alice", 5000)
	require.NoError(t, env.vault.Bid(stakeId, "alice", 2000))

	err := env.vault.Settle(stakeId)
	assert.ErrorIs(t, err, ErrAuctionStillOpen)

	time.Sleep(150 * time.Millisecond)

	err = env.vault.Bid(stakeId, "alice", 3000)
	assert.ErrorIs(t, err, ErrAuctionClosed)

	require.NoError(t, env.vault.Settle(stakeId))

	stake, err := env.db.GetStake(stakeId, nil)
	require.NoError(t, err)
	assert.Equal(t, models.CustodyAssigned, stake.Custody)

	seat, err := env.db.GetSeat(stakeId, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", seat.Holder)
	assert.Equal(t, uint64(2000), seat.LockedBid)
	assert.Equal(t, uint64(10_000), seat.Weight)
	assert.True(t, seat.Active)

	// Governance weight follows the seat, and the bid stays escrowed
	weight, err := env.vault.GovernanceWeight()
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), weight)
	assert.Equal(t, uint64(3000), env.balanceOf(t, "alice"))

	time.Sleep(150 * time.Millisecond)

	require.NoError(t, env.vault.Reclaim(stakeId))

	stake, err = env.db.GetStake(stakeId, nil)
	require.NoError(t, err)
	assert.Equal(t, models.CustodyPooled, stake.Custody)
	assert.Equal(t, uint64(5000), env.balanceOf(t, "alice"))

	weight, err = env.vault.GovernanceWeight()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), weight)

	// The pooled stake can be auctioned again
	require.NoError(t, env.vault.StartAuction(stakeId))
}

func TestAuctionReclaimBeforeTermEnd(t *testing.T) {
	params := defaultTestParams()
	params.AuctionWindow = 100 * time.Millisecond
	env := newTestEnv(t, params)
	stakeId := env.pooledStake(t, "holder", 1000)
	require.NoError(t, env.vault.StartAuction(stakeId))
	env.fund(t, "alice", 1000)
	require.NoError(t, env.vault.Bid(stakeId, "alice", 100))

	time.Sleep(150 * time.Millisecond)
	require.NoError(t, env.vault.Settle(stakeId))

	err := env.vault.Reclaim(stakeId)
	assert.ErrorIs(t, err, ErrTermActive)
}

func TestAuctionSettleNoBids(t *testing.T) {
	params := defaultTestParams()
	params.AuctionWindow = 100 * time.Millisecond
	env := newTestEnv(t, params)
	stakeId := env.pooledStake(t, "holder", 1000)
	require.NoError(t, env.vault.StartAuction(stakeId))

	time.Sleep(150 * time.Millisecond)
	require.NoError(t, env.vault.Settle(stakeId))

	// No winner: the stake stays pooled and a fresh auction may open
	stake, err := env.db.GetStake(stakeId, nil)
	require.NoError(t, err)
	assert.Equal(t, models.CustodyPooled, stake.Custody)
	require.NoError(t, env.vault.StartAuction(stakeId))
}
