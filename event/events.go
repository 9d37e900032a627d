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

package event

import "time"

// Certificate lifecycle events
const (
	AgreementCreatedEventType    EventType = "agreement.created"
	AgreementAmendedEventType    EventType = "agreement.amended"
	RightIssuedEventType         EventType = "right.issued"
	RightVoidedEventType         EventType = "right.voided"
	StakeMintedEventType         EventType = "stake.minted"
	StakeRevokedEventType        EventType = "stake.revoked"
	StakeBurnedEventType         EventType = "stake.burned"
	TransitionInitiatedEventType EventType = "transition.initiated"
)

// Vault and governance events
const (
	StakeDepositedEventType   EventType = "vault.deposited"
	TokensReleasedEventType   EventType = "vault.released"
	TokensClaimedEventType    EventType = "vault.claimed"
	AuctionOpenedEventType    EventType = "auction.opened"
	AuctionBidEventType       EventType = "auction.bid"
	AuctionSettledEventType   EventType = "auction.settled"
	SeatReclaimedEventType    EventType = "seat.reclaimed"
	OverrideProposedEventType EventType = "override.proposed"
	OverrideVotedEventType    EventType = "override.voted"
	OverrideExecutedEventType EventType = "override.executed"
)

type AgreementEvent struct {
	AgreementID   []byte
	PredecessorID []byte
	Namespace     string
	Version       string
}

type RightEvent struct {
	RightID       uint64
	Owner         string
	Units         uint64
	FullyRedeemed bool
}

type StakeEvent struct {
	StakeID      uint64
	Owner        string
	Units        uint64
	UnitsRemoved uint64
}

type TransitionEvent struct {
	VaultRef string
	At       time.Time
}

type DepositEvent struct {
	StakeID  uint64
	Holder   string
	Credited uint64
}

type TokenFlowEvent struct {
	Holder string
	Amount uint64
}

type AuctionEvent struct {
	StakeID uint64
	Bidder  string
	Amount  uint64
}

type SeatEvent struct {
	StakeID uint64
	Holder  string
	Weight  uint64
}

type OverrideEvent struct {
	ProposalID    uint64
	Voter         string
	ForWeight     uint64
	AgainstWeight uint64
	SeatsSwept    int
}
