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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulCompare(t *testing.T) {
	// Products past 64 bits still compare correctly
	big := uint64(1) << 63
	assert.True(t, mulGE(big, 3, big, 2))
	assert.False(t, mulGE(big, 2, big, 3))
	assert.True(t, mulGE(big, 2, big, 2))
	assert.False(t, mulGT(big, 2, big, 2))
	assert.True(t, mulGT(big, 3, big, 2))
}

func TestOverrideProposeRequiresWeight(t *testing.T) {
	env := newTestEnv(t, defaultTestParams())

	_, err := env.vault.ProposeOverride("nobody")
	assert.ErrorIs(t, err, ErrZeroWeight)

	// Excluded accounts carry zero weight no matter their balance
	env.fund(t, testProtocolAddr, 1000)
	_, err = env.vault.ProposeOverride(testProtocolAddr)
	assert.ErrorIs(t, err, ErrZeroWeight)

	env.fund(t, "alice", 1000)
	_, err = env.vault.ProposeOverride("alice")
	assert.NoError(t, err)
}

func TestOverrideVoting(t *testing.T) {
	env := newTestEnv(t, defaultTestParams())
	env.fund(t, "alice", 5100)
	env.fund(t, "bob", 4900)

	proposalId, err := env.vault.ProposeOverride("alice")
	require.NoError(t, err)

	err = env.vault.ExecuteOverride(proposalId)
	assert.ErrorIs(t, err, ErrVotingOpen)

	require.NoError(t, env.vault.VoteOverride(proposalId, "alice", true))

	// One ballot per voter
	err = env.vault.VoteOverride(proposalId, "alice", false)
	assert.ErrorIs(t, err, models.ErrAlreadyVoted)

	err = env.vault.VoteOverride(proposalId, "nobody", true)
	assert.ErrorIs(t, err, ErrZeroWeight)

	require.NoError(t, env.vault.VoteOverride(proposalId, "bob", false))

	proposal, err := env.db.GetOverrideProposal(proposalId, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(5100), proposal.ForWeight)
	assert.Equal(t, uint64(4900), proposal.AgainstWeight)
}

// Total supply 10,000 with a 20% quorum: 1,000 weight of ballots falls
// short, 2,000 exactly meets it.
func TestOverrideQuorum(t *testing.T) {
	params := defaultTestParams()
	params.OverrideVoting = 100 * time.Millisecond
	env := newTestEnv(t, params)
	env.fund(t, "alice", 1000)
	env.fund(t, "bob", 1000)
	env.fund(t, "whale", 8000)

	proposalId, err := env.vault.ProposeOverride("alice")
	require.NoError(t, err)
	require.NoError(t, env.vault.VoteOverride(proposalId, "alice", true))
	time.Sleep(150 * time.Millisecond)

	err = env.vault.ExecuteOverride(proposalId)
	assert.ErrorIs(t, err, ErrQuorumNotMet)

	proposalId, err = env.vault.ProposeOverride("alice")
	require.NoError(t, err)
	require.NoError(t, env.vault.VoteOverride(proposalId, "alice", true))
	require.NoError(t, env.vault.VoteOverride(proposalId, "bob", true))
	time.Sleep(150 * time.Millisecond)

	// 2,000 of 10,000 is exactly quorum, and unanimous support passes
	require.NoError(t, env.vault.ExecuteOverride(proposalId))
}

// Quorum is measured against the total supply, so excluded balances raise
// the bar even though they carry no voting weight themselves.
func TestOverrideQuorumCountsExcludedSupply(t *testing.T) {
	params := defaultTestParams()
	params.OverrideVoting = 100 * time.Millisecond
	env := newTestEnv(t, params)
	env.fund(t, "alice", 1500)
	env.fund(t, "bob", 5500)
	env.fund(t, testProtocolAddr, 3000)

	// 1,500 of the 10,000 total falls short of the 20% quorum even though
	// it clears 20% of the 7,000 non-excluded balance
	proposalId, err := env.vault.ProposeOverride("alice")
	require.NoError(t, err)
	require.NoError(t, env.vault.VoteOverride(proposalId, "alice", true))
	time.Sleep(150 * time.Millisecond)

	err = env.vault.ExecuteOverride(proposalId)
	assert.ErrorIs(t, err, ErrQuorumNotMet)

	proposalId, err = env.vault.ProposeOverride("bob")
	require.NoError(t, err)
	require.NoError(t, env.vault.VoteOverride(proposalId, "bob", true))
	time.Sleep(150 * time.Millisecond)

	require.NoError(t, env.vault.ExecuteOverride(proposalId))
}

// Support must strictly exceed the threshold: 49% fails, a bare majority
// passes.
func TestOverrideThreshold(t *testing.T) {
	params := defaultTestParams()
	params.OverrideVoting = 100 * time.Millisecond
	env := newTestEnv(t, params)
	env.fund(t, "alice", 4900)
	env.fund(t, "bob", 5100)

	proposalId, err := env.vault.ProposeOverride("alice")
	require.NoError(t, err)
	require.NoError(t, env.vault.VoteOverride(proposalId, "alice", true))
	require.NoError(t, env.vault.VoteOverride(proposalId, "bob", false))
	time.Sleep(150 * time.Millisecond)

	err = env.vault.ExecuteOverride(proposalId)
	assert.ErrorIs(t, err, ErrThresholdNotMet)

	proposalId, err = env.vault.ProposeOverride("alice")
	require.NoError(t, err)
	require.NoError(t, env.vault.VoteOverride(proposalId, "alice", false))
	require.NoError(t, env.vault.VoteOverride(proposalId, "bob", true))
	time.Sleep(150 * time.Millisecond)

	require.NoError(t, env.vault.ExecuteOverride(proposalId))
}

func TestOverrideExactlyHalfFails(t *testing.T) {
	params := defaultTestParams()
	params.OverrideVoting = 100 * time.Millisecond
	env := newTestEnv(t, params)
	env.fund(t, "alice", 5000)
	env.fund(t, "bob", 5000)

	proposalId, err := env.vault.ProposeOverride("alice")
	require.NoError(t, err)
	require.NoError(t, env.vault.VoteOverride(proposalId, "alice", true))
	require.NoError(t, env.vault.VoteOverride(proposalId, "bob", false))
	time.Sleep(150 * time.Millisecond)

	err = env.vault.ExecuteOverride(proposalId)
	assert.ErrorIs(t, err, ErrThresholdNotMet)
}

func TestOverrideVoteAfterDeadline(t *testing.T) {
	params := defaultTestParams()
	params.OverrideVoting = 100 * time.Millisecond
	env := newTestEnv(t, params)
	env.fund(t, "alice", 1000)

	proposalId, err := env.vault.ProposeOverride("alice")
	require.NoError(t, err)
	time.Sleep(150 * time.Millisecond)

	err = env.vault.VoteOverride(proposalId, "alice", true)
	assert.ErrorIs(t, err, ErrVotingClosed)
}

// A passing override sweeps every active seat back to the pool in one
// atomic step and refunds the escrowed bids.
func TestOverrideExecuteSweepsSeats(t *testing.T) {
	params := defaultTestParams()
	params.AuctionWindow = 100 * time.Millisecond
	params.OverrideVoting = 100 * time.Millisecond
	env := newTestEnv(t, params)

	firstStake := env.pooledStake(t, "holder-1", 4000)
	secondStake := env.pooledStake(t, "holder-2", 6000)
	env.fund(t, "alice", 3000)
	env.fund(t, "bob", 3000)
	require.NoError(t, env.vault.StartAuction(firstStake))
	require.NoError(t, env.vault.StartAuction(secondStake))
	require.NoError(t, env.vault.Bid(firstStake, "alice", 500))
	require.NoError(t, env.vault.Bid(secondStake, "bob", 700))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, env.vault.Settle(firstStake))
	require.NoError(t, env.vault.Settle(secondStake))

	weight, err := env.vault.GovernanceWeight()
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), weight)

	proposalId, err := env.vault.ProposeOverride("alice")
	require.NoError(t, err)
	require.NoError(t, env.vault.VoteOverride(proposalId, "alice", true))
	require.NoError(t, env.vault.VoteOverride(proposalId, "bob", true))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, env.vault.ExecuteOverride(proposalId))

	weight, err = env.vault.GovernanceWeight()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), weight)

	for _, stakeId := range []uint64{firstStake, secondStake} {
		stake, err := env.db.GetStake(stakeId, nil)
		require.NoError(t, err)
		assert.Equal(t, models.CustodyPooled, stake.Custody)
	}
	assert.Equal(t, uint64(3000), env.balanceOf(t, "alice"))
	assert.Equal(t, uint64(3000), env.balanceOf(t, "bob"))

	err = env.vault.ExecuteOverride(proposalId)
	assert.ErrorIs(t, err, ErrAlreadyExecuted)

	// Cooldown starts from execution
	_, err = env.vault.ProposeOverride("alice")
	assert.ErrorIs(t, err, ErrCooldownActive)
}
