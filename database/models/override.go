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
	ErrOverrideProposalNotFound = errors.New("override proposal not found")
	ErrAlreadyVoted             = errors.New("already voted on proposal")
)

// OverrideProposal is an emergency balance-holder vote to forcibly reclaim
// every active governance seat. Weights accumulate as votes are recorded so
// execution is a pure threshold check.
type OverrideProposal struct {
	ID            uint64 `gorm:"primarykey"`
	Proposer      string `gorm:"size:128;not null"`
	CreatedAt     time.Time
	Deadline      time.Time
	ForWeight     uint64 `gorm:"not null;default:0"`
	AgainstWeight uint64 `gorm:"not null;default:0"`
	Executed      bool
	ExecutedAt    *time.Time
}

// TableName returns the table name
func (OverrideProposal) TableName() string {
	return "override_proposal"
}

// OverrideVote is the per-voter ballot record for an override proposal.
// The unique index enforces one ballot per voter per proposal.
type OverrideVote struct {
	ID         uint64 `gorm:"primarykey"`
	ProposalID uint64 `gorm:"uniqueIndex:idx_override_vote,priority:1;not null"`
	Voter      string `gorm:"uniqueIndex:idx_override_vote,priority:2;size:128;not null"`
	Support    bool
	Weight     uint64 `gorm:"not null"`
	VotedAt    time.Time
}

// TableName returns the table name
func (OverrideVote) TableName() string {
	return "override_vote"
}
