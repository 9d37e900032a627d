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
	"time"

	"github.com/openequity/tessera/database"
	"github.com/openequity/tessera/database/models"
	"github.com/openequity/tessera/event"
)

var (
	// ErrNotPooled is returned when the stake isn't in pooled custody
	ErrNotPooled = errors.New("stake not pooled")

	// ErrAuctionOpen is returned when an unsettled auction already exists
	// for the stake
	ErrAuctionOpen = errors.New("auction already open")

	// ErrNoAuction is returned when no open auction exists for the stake
	ErrNoAuction = errors.New("no open auction")

	// ErrBidTooLow is returned when a bid fails to meet the floor or to
	// strictly exceed the current high bid
	ErrBidTooLow = errors.New("bid too low")

	// ErrAuctionClosed is returned for bids after the window closes
	ErrAuctionClosed = errors.New("auction window closed")

	// ErrAuctionStillOpen is returned for settlement before the window
	// closes
	ErrAuctionStillOpen = errors.New("auction window still open")

	// ErrTermActive is returned for reclaim before the seat's term ends
	ErrTermActive = errors.New("seat term still active")
)

// StartAuction opens a seat auction for a pooled stake. Fails ErrNotPooled
// unless the stake sits unassigned in vault custody and ErrAuctionOpen if an
// unsettled auction already exists. Permissionless.
func (v *Vault) StartAuction(stakeId uint64) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	now := time.Now()
	txn := v.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		stake, err := v.db.GetStake(stakeId, txn)
		if err != nil {
			return err
		}
		if stake.Custody != models.CustodyPooled {
			return ErrNotPooled
		}
		open, err := v.db.GetOpenAuction(stakeId, txn)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrAuctionOpen
		}
		auction := &models.SeatAuction{
			StakeID:  stakeId,
			OpenedAt: now,
			ClosesAt: now.Add(v.params.AuctionWindow),
		}
		return v.db.SetAuction(auction, txn)
	})
	v.countOp("start_auction", err)
	if err != nil {
		return err
	}
	v.publish(
		event.AuctionOpenedEventType,
		event.AuctionEvent{StakeID: stakeId},
	)
	return nil
}

// Bid escrows a bid on an open auction. The bid must meet the configured
// floor (a percentage of the stake's unit count) and strictly exceed the
// current high bid; the displaced bidder's escrow is refunded in the same
// operation, so the vault never holds two live deposits for one auction.
func (v *Vault) Bid(stakeId uint64, bidder string, amount uint64) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	now := time.Now()
	txn := v.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		auction, err := v.db.GetOpenAuction(stakeId, txn)
		if err != nil {
			return err
		}
		if auction == nil {
			return ErrNoAuction
		}
		if !now.Before(auction.ClosesAt) {
			return ErrAuctionClosed
		}
		stake, err := v.db.GetStake(stakeId, txn)
		if err != nil {
			return err
		}
		floor := bpsOf(stake.Units, v.params.AuctionFloorBps)
		if amount < floor {
			return ErrBidTooLow
		}
		if amount <= auction.HighBid {
			return ErrBidTooLow
		}
		// Escrow the new bid before releasing the old one
		if err := v.tokens.Transfer(
			txn, bidder, bidder, v.params.VaultAddress, amount, now,
		); err != nil {
			return err
		}
		if auction.HighBidder != "" {
			if err := v.tokens.Transfer(
				txn,
				v.params.VaultAddress,
				v.params.VaultAddress,
				auction.HighBidder,
				auction.HighBid,
				now,
			); err != nil {
				return err
			}
		}
		auction.HighBidder = bidder
		auction.HighBid = amount
		return v.db.SetAuction(auction, txn)
	})
	v.countOp("bid", err)
	if err != nil {
		return err
	}
	v.publish(
		event.AuctionBidEventType,
		event.AuctionEvent{
			StakeID: stakeId,
			Bidder:  bidder,
			Amount:  amount,
		},
	)
	return nil
}

// Settle closes an auction after its window. With no bids the stake stays
// pooled; otherwise it is assigned to the winning bidder for a fixed term,
// the winning bid stays escrowed, and governance weight grows by the
// stake's unit count. Permissionless.
func (v *Vault) Settle(stakeId uint64) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	now := time.Now()
	var seatEvt *event.SeatEvent
	txn := v.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		auction, err := v.db.GetOpenAuction(stakeId, txn)
		if err != nil {
			return err
		}
		if auction == nil {
			return ErrNoAuction
		}
		if now.Before(auction.ClosesAt) {
			return ErrAuctionStillOpen
		}
		auction.Settled = true
		if err := v.db.SetAuction(auction, txn); err != nil {
			return err
		}
		if auction.HighBidder == "" {
			return nil
		}
		stake, err := v.db.GetStake(stakeId, txn)
		if err != nil {
			return err
		}
		stake.Custody = models.CustodyAssigned
		if err := v.db.SetStake(stake, txn); err != nil {
			return err
		}
		seat := &models.Seat{
			StakeID:   stakeId,
			Holder:    auction.HighBidder,
			TermStart: now,
			TermEnd:   now.Add(v.params.SeatTerm),
			LockedBid: auction.HighBid,
			Weight:    stake.Units,
			Active:    true,
		}
		if err := v.db.SetSeat(seat, txn); err != nil {
			return err
		}
		seatEvt = &event.SeatEvent{
			StakeID: stakeId,
			Holder:  seat.Holder,
			Weight:  seat.Weight,
		}
		return nil
	})
	v.countOp("settle", err)
	if err != nil {
		return err
	}
	if seatEvt != nil {
		v.publish(event.AuctionSettledEventType, *seatEvt)
	}
	return nil
}

// Reclaim forcibly returns a seat's stake to the pool after the term ends,
// refunding the escrowed bid. Permissionless.
func (v *Vault) Reclaim(stakeId uint64) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	now := time.Now()
	var seatEvt event.SeatEvent
	txn := v.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		seat, err := v.db.GetSeat(stakeId, txn)
		if err != nil {
			return err
		}
		if !seat.Active {
			return models.ErrSeatNotFound
		}
		if now.Before(seat.TermEnd) {
			return ErrTermActive
		}
		if err := v.releaseSeat(txn, seat, now); err != nil {
			return err
		}
		seatEvt = event.SeatEvent{
			StakeID: stakeId,
			Holder:  seat.Holder,
			Weight:  seat.Weight,
		}
		return nil
	})
	v.countOp("reclaim", err)
	if err != nil {
		return err
	}
	v.publish(event.SeatReclaimedEventType, seatEvt)
	return nil
}

// releaseSeat moves an assigned stake back to the pool, deactivates its
// seat, and refunds the escrowed bid
func (v *Vault) releaseSeat(
	txn *database.Txn,
	seat *models.Seat,
	now time.Time,
) error {
	stake, err := v.db.GetStake(seat.StakeID, txn)
	if err != nil {
		return err
	}
	stake.Custody = models.CustodyPooled
	if err := v.db.SetStake(stake, txn); err != nil {
		return err
	}
	seat.Active = false
	if err := v.db.SetSeat(seat, txn); err != nil {
		return err
	}
	if seat.LockedBid > 0 {
		if err := v.tokens.Transfer(
			txn,
			v.params.VaultAddress,
			v.params.VaultAddress,
			seat.Holder,
			seat.LockedBid,
			now,
		); err != nil {
			return err
		}
	}
	v.logger.Debug(
		"seat released",
		"component", "vault",
		"stake_id", seat.StakeID,
		"holder", seat.Holder,
	)
	return nil
}

// GovernanceWeight returns the summed weight of all active seats
func (v *Vault) GovernanceWeight() (uint64, error) {
	return v.db.GetGovernanceWeight(nil)
}
