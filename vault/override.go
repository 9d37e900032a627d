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
	"errors"
	"math/bits"
	"time"

	"github.com/openequity/tessera/database"
	"github.com/openequity/tessera/database/models"
	"github.com/openequity/tessera/event"
)

var (
	// ErrCooldownActive is returned when a proposal arrives too soon after
	// the last executed override
	ErrCooldownActive = errors.New("override cooldown active")

	// ErrZeroWeight is returned when the caller holds no governance-eligible
	// balance
	ErrZeroWeight = errors.New("no governance-eligible balance")

	// ErrVotingClosed is returned for votes after the proposal deadline
	ErrVotingClosed = errors.New("voting closed")

	// ErrVotingOpen is returned for execution before the proposal deadline
	ErrVotingOpen = errors.New("voting still open")

	// ErrAlreadyExecuted is returned for a repeat execution
	ErrAlreadyExecuted = errors.New("override already executed")

	// ErrQuorumNotMet is returned when votes cast fall short of the quorum
	ErrQuorumNotMet = errors.New("quorum not met")

	// ErrThresholdNotMet is returned when support doesn't strictly exceed
	// the threshold
	ErrThresholdNotMet = errors.New("threshold not met")
)

// mulGE reports a*b >= c*d over the full 128-bit products
func mulGE(a, b, c, d uint64) bool {
	hi1, lo1 := bits.Mul64(a, b)
	hi2, lo2 := bits.Mul64(c, d)
	if hi1 != hi2 {
		return hi1 > hi2
	}
	return lo1 >= lo2
}

// mulGT reports a*b > c*d over the full 128-bit products
func mulGT(a, b, c, d uint64) bool {
	hi1, lo1 := bits.Mul64(a, b)
	hi2, lo2 := bits.Mul64(c, d)
	if hi1 != hi2 {
		return hi1 > hi2
	}
	return lo1 > lo2
}

// ProposeOverride opens an emergency proposal to reclaim every active seat.
// Any holder with governance-eligible balance may propose, subject to a
// cooldown measured from the last executed override.
func (v *Vault) ProposeOverride(proposer string) (uint64, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	now := time.Now()
	var proposalID uint64
	txn := v.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		weight, err := v.tokens.GovernanceWeightOf(txn, proposer)
		if err != nil {
			return err
		}
		if weight == 0 {
			return ErrZeroWeight
		}
		last, err := v.db.GetLastExecutedOverride(txn)
		if err != nil {
			return err
		}
		if last != nil && last.ExecutedAt != nil &&
			now.Before(last.ExecutedAt.Add(v.params.OverrideCooldown)) {
			return ErrCooldownActive
		}
		proposal := &models.OverrideProposal{
			Proposer:  proposer,
			CreatedAt: now,
			Deadline:  now.Add(v.params.OverrideVoting),
		}
		if err := v.db.SetOverrideProposal(proposal, txn); err != nil {
			return err
		}
		proposalID = proposal.ID
		return nil
	})
	v.countOp("propose_override", err)
	if err != nil {
		return 0, err
	}
	v.publish(
		event.OverrideProposedEventType,
		event.OverrideEvent{ProposalID: proposalID},
	)
	return proposalID, nil
}

// VoteOverride records a ballot weighted by the voter's governance-eligible
// balance at this instant. One ballot per voter per proposal; excluded
// accounts always weigh zero and cannot vote.
func (v *Vault) VoteOverride(
	proposalId uint64,
	voter string,
	support bool,
) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	now := time.Now()
	var weight uint64
	txn := v.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		proposal, err := v.db.GetOverrideProposal(proposalId, txn)
		if err != nil {
			return err
		}
		if !now.Before(proposal.Deadline) {
			return ErrVotingClosed
		}
		existing, err := v.db.GetOverrideVote(proposalId, voter, txn)
		if err != nil {
			return err
		}
		if existing != nil {
			return models.ErrAlreadyVoted
		}
		weight, err = v.tokens.GovernanceWeightOf(txn, voter)
		if err != nil {
			return err
		}
		if weight == 0 {
			return ErrZeroWeight
		}
		vote := &models.OverrideVote{
			ProposalID: proposalId,
			Voter:      voter,
			Support:    support,
			Weight:     weight,
			VotedAt:    now,
		}
		if err := v.db.SetOverrideVote(vote, txn); err != nil {
			return err
		}
		if support {
			proposal.ForWeight += weight
		} else {
			proposal.AgainstWeight += weight
		}
		return v.db.SetOverrideProposal(proposal, txn)
	})
	v.countOp("vote_override", err)
	if err != nil {
		return err
	}
	v.publish(
		event.OverrideVotedEventType,
		event.OverrideEvent{
			ProposalID: proposalId,
			Voter:      voter,
			ForWeight:  weight,
		},
	)
	return nil
}

// ExecuteOverride finalizes a proposal after its deadline. Quorum is checked
// in basis points of the total supply and support in basis points of votes
// cast (strictly greater). On success every active seat is reclaimed in one
// atomic sweep and governance weight drops to zero.
func (v *Vault) ExecuteOverride(proposalId uint64) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	now := time.Now()
	var swept int
	txn := v.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		proposal, err := v.db.GetOverrideProposal(proposalId, txn)
		if err != nil {
			return err
		}
		if proposal.Executed {
			return ErrAlreadyExecuted
		}
		if now.Before(proposal.Deadline) {
			return ErrVotingOpen
		}
		total, err := v.tokens.TotalSupply(txn)
		if err != nil {
			return err
		}
		votesCast := proposal.ForWeight + proposal.AgainstWeight
		if !mulGE(votesCast, 10000, v.params.OverrideQuorumBps, total) {
			return ErrQuorumNotMet
		}
		if !mulGT(
			proposal.ForWeight, 10000,
			v.params.OverrideThresholdBps, votesCast,
		) {
			return ErrThresholdNotMet
		}
		seats, err := v.db.GetActiveSeats(txn)
		if err != nil {
			return err
		}
		for i := range seats {
			if err := v.releaseSeat(txn, &seats[i], now); err != nil {
				return err
			}
		}
		swept = len(seats)
		executedAt := now
		proposal.Executed = true
		proposal.ExecutedAt = &executedAt
		return v.db.SetOverrideProposal(proposal, txn)
	})
	v.countOp("execute_override", err)
	if err != nil {
		return err
	}
	v.logger.Info(
		"override executed",
		"component", "vault",
		"proposal_id", proposalId,
		"seats_swept", swept,
	)
	v.publish(
		event.OverrideExecutedEventType,
		event.OverrideEvent{
			ProposalID: proposalId,
			SeatsSwept: swept,
		},
	)
	return nil
}
