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

package token

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/openequity/tessera/database"
	"github.com/openequity/tessera/database/models"
)

var (
	// ErrCapacityExceeded is returned when a mint would exceed the supply cap
	ErrCapacityExceeded = errors.New("supply cap exceeded")

	// ErrInsufficientBalance is returned when a transfer exceeds the source balance
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrLockupActive is returned when a locked account transfers to a
	// destination that isn't allow-listed
	ErrLockupActive = errors.New("account lockup active")

	// ErrUnauthorized is returned when the caller lacks the required capability
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrInvalidAmount is returned for zero amounts and cap decreases
	ErrInvalidAmount = errors.New("invalid amount")
)

// Ledger is the capped-supply fungible balance ledger. Per-account lockup
// restricts transfers to allow-listed destinations, which lets locked
// balances participate in bidding and voting without creating open-market
// pressure.
type Ledger struct {
	logger *slog.Logger
	db     *database.Database
}

// NewLedger creates a new balance ledger backed by the given database
func NewLedger(logger *slog.Logger, db *database.Database) *Ledger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Ledger{
		logger: logger,
		db:     db,
	}
}

// Init creates the singleton supply row if it doesn't exist yet
func (l *Ledger) Init(
	txn *database.Txn,
	supplyCap uint64,
	governanceAuthority string,
) error {
	if _, err := l.db.GetTokenState(txn); err == nil {
		return nil
	} else if !errors.Is(err, models.ErrTokenStateNotFound) {
		return err
	}
	state := &models.TokenState{
		SupplyCap:           supplyCap,
		GovernanceAuthority: governanceAuthority,
	}
	return l.db.SetTokenState(state, txn)
}

// Mint credits newly created balance to the given address. Fails
// ErrCapacityExceeded if total supply would pass the cap.
func (l *Ledger) Mint(
	txn *database.Txn,
	to string,
	amount uint64,
) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	state, err := l.db.GetTokenState(txn)
	if err != nil {
		return err
	}
	if state.TotalSupply+amount > state.SupplyCap ||
		state.TotalSupply+amount < state.TotalSupply {
		return ErrCapacityExceeded
	}
	account, err := l.db.GetOrCreateAccount(to, txn)
	if err != nil {
		return err
	}
	state.TotalSupply += amount
	account.Balance += amount
	if err := l.db.SetTokenState(state, txn); err != nil {
		return err
	}
	if err := l.db.SetAccount(account, txn); err != nil {
		return err
	}
	l.logger.Debug(
		"minted balance",
		"component", "token",
		"to", to,
		"amount", amount,
		"total_supply", state.TotalSupply,
	)
	return nil
}

// Transfer moves balance between accounts. The initiating identity must hold
// the source account; a locked source may only send to allow-listed
// destinations.
func (l *Ledger) Transfer(
	txn *database.Txn,
	initiator string,
	from string,
	to string,
	amount uint64,
	now time.Time,
) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if initiator != from {
		return ErrUnauthorized
	}
	source, err := l.db.GetAccount(from, txn)
	if err != nil {
		return err
	}
	if source.Balance < amount {
		return ErrInsufficientBalance
	}
	dest, err := l.db.GetOrCreateAccount(to, txn)
	if err != nil {
		return err
	}
	if source.LockupUntil != nil && now.Before(*source.LockupUntil) &&
		!dest.AllowListed {
		return ErrLockupActive
	}
	source.Balance -= amount
	dest.Balance += amount
	if err := l.db.SetAccount(source, txn); err != nil {
		return err
	}
	if err := l.db.SetAccount(dest, txn); err != nil {
		return err
	}
	return nil
}

// SetLockup sets the lockup expiry for an account, creating it if needed
func (l *Ledger) SetLockup(
	txn *database.Txn,
	address string,
	until time.Time,
) error {
	account, err := l.db.GetOrCreateAccount(address, txn)
	if err != nil {
		return err
	}
	account.LockupUntil = &until
	return l.db.SetAccount(account, txn)
}

// LockupUntil returns the account's lockup expiry, or nil when the account
// is unknown or was never locked
func (l *Ledger) LockupUntil(
	txn *database.Txn,
	address string,
) (*time.Time, error) {
	account, err := l.db.GetAccount(address, txn)
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return account.LockupUntil, nil
}

// SetAllowListed marks an account as a permitted destination for transfers
// from locked accounts
func (l *Ledger) SetAllowListed(
	txn *database.Txn,
	address string,
	allowed bool,
) error {
	account, err := l.db.GetOrCreateAccount(address, txn)
	if err != nil {
		return err
	}
	account.AllowListed = allowed
	return l.db.SetAccount(account, txn)
}

// SetGovernanceExcluded marks an account as carrying zero governance weight
func (l *Ledger) SetGovernanceExcluded(
	txn *database.Txn,
	address string,
	excluded bool,
) error {
	account, err := l.db.GetOrCreateAccount(address, txn)
	if err != nil {
		return err
	}
	account.GovernanceExcluded = excluded
	return l.db.SetAccount(account, txn)
}

// IncreaseCap raises the supply cap. Only the distinguished governance
// authority may do this, never the original issuer.
func (l *Ledger) IncreaseCap(
	txn *database.Txn,
	caller string,
	newCap uint64,
) error {
	state, err := l.db.GetTokenState(txn)
	if err != nil {
		return err
	}
	if state.GovernanceAuthority == "" ||
		caller != state.GovernanceAuthority {
		return ErrUnauthorized
	}
	if newCap < state.SupplyCap {
		return ErrInvalidAmount
	}
	state.SupplyCap = newCap
	return l.db.SetTokenState(state, txn)
}

// BalanceOf returns the balance held by the given address. An unknown
// address holds zero.
func (l *Ledger) BalanceOf(
	txn *database.Txn,
	address string,
) (uint64, error) {
	account, err := l.db.GetAccount(address, txn)
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return account.Balance, nil
}

// GovernanceWeightOf returns the governance-eligible balance for the given
// address. Excluded accounts always weigh zero.
func (l *Ledger) GovernanceWeightOf(
	txn *database.Txn,
	address string,
) (uint64, error) {
	account, err := l.db.GetAccount(address, txn)
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if account.GovernanceExcluded {
		return 0, nil
	}
	return account.Balance, nil
}

// EligibleSupply returns the total supply minus governance-excluded balances
func (l *Ledger) EligibleSupply(txn *database.Txn) (uint64, error) {
	state, err := l.db.GetTokenState(txn)
	if err != nil {
		return 0, err
	}
	excluded, err := l.db.GetExcludedBalance(txn)
	if err != nil {
		return 0, err
	}
	if excluded > state.TotalSupply {
		return 0, nil
	}
	return state.TotalSupply - excluded, nil
}

// TotalSupply returns the currently minted supply
func (l *Ledger) TotalSupply(txn *database.Txn) (uint64, error) {
	state, err := l.db.GetTokenState(txn)
	if err != nil {
		return 0, err
	}
	return state.TotalSupply, nil
}
