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

package cert

import (
	"io"
	"log/slog"
	"time"

	"github.com/openequity/tessera/database"
	"github.com/openequity/tessera/database/models"
)

// RightsLedger mints and tracks conditional rights
type RightsLedger struct {
	logger *slog.Logger
	db     *database.Database
}

// NewRightsLedger creates a new conditional-right ledger backed by the given database
func NewRightsLedger(
	logger *slog.Logger,
	db *database.Database,
) *RightsLedger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &RightsLedger{
		logger: logger,
		db:     db,
	}
}

// IssueParams are the caller-supplied inputs for issuing a right
type IssueParams struct {
	Owner       string
	AgreementID []byte
	MaxUnits    uint64
	UnitType    string
	NotBefore   *time.Time
}

// Issue mints a new conditional right under the referenced agreement and
// returns its id. Fails ErrInvalidRecipient for an empty owner,
// ErrInvalidUnits for zero max units, and models.ErrAgreementNotFound if the
// agreement is absent. NotBefore is deliberately not validated against the
// current time; backdating is permitted.
func (l *RightsLedger) Issue(
	txn *database.Txn,
	params IssueParams,
	now time.Time,
) (*models.Right, error) {
	if params.Owner == "" {
		return nil, ErrInvalidRecipient
	}
	if params.MaxUnits == 0 {
		return nil, ErrInvalidUnits
	}
	if _, err := l.db.GetAgreement(params.AgreementID, txn); err != nil {
		return nil, err
	}
	right := &models.Right{
		Owner:       params.Owner,
		AgreementID: params.AgreementID,
		IssuedAt:    now,
		NotBefore:   params.NotBefore,
		UnitType:    params.UnitType,
		MaxUnits:    params.MaxUnits,
	}
	if err := l.db.SetRight(right, txn); err != nil {
		return nil, err
	}
	l.logger.Debug(
		"right issued",
		"component", "rights",
		"right_id", right.ID,
		"owner", params.Owner,
		"max_units", params.MaxUnits,
	)
	return right, nil
}

// Void cancels an unfulfilled right. Voiding is available regardless of the
// agreement's revocation mode: it cancels a promise, not a confirmed right.
// Fails ErrAlreadyVoided on a repeat void and ErrInvalidState if the right
// was already fully redeemed.
func (l *RightsLedger) Void(
	txn *database.Txn,
	id uint64,
	reasonHash []byte,
) (*models.Right, error) {
	right, err := l.db.GetRight(id, txn)
	if err != nil {
		return nil, err
	}
	if right.Voided {
		return nil, ErrAlreadyVoided
	}
	if right.FullyRedeemed {
		return nil, ErrInvalidState
	}
	right.Voided = true
	right.LastReasonHash = reasonHash
	if err := l.db.SetRight(right, txn); err != nil {
		return nil, err
	}
	l.logger.Debug(
		"right voided",
		"component", "rights",
		"right_id", id,
	)
	return right, nil
}

// RecordRedemption applies a partial or full redemption of the given number
// of units against the right. The fully-redeemed flag is set exactly when
// the running total reaches the maximum, never on an earlier partial
// redemption. Fails ErrInvalidUnits for zero units or a total past the
// maximum, ErrInvalidState against a voided or fully-redeemed right, and
// ErrNotRedeemable before the right's not-before time.
func (l *RightsLedger) RecordRedemption(
	txn *database.Txn,
	id uint64,
	units uint64,
	reasonHash []byte,
	now time.Time,
) (*models.Right, error) {
	right, err := l.db.GetRight(id, txn)
	if err != nil {
		return nil, err
	}
	if right.Voided || right.FullyRedeemed {
		return nil, ErrInvalidState
	}
	if right.NotBefore != nil && now.Before(*right.NotBefore) {
		return nil, ErrNotRedeemable
	}
	if units == 0 {
		return nil, ErrInvalidUnits
	}
	if right.RedeemedUnits+units > right.MaxUnits {
		return nil, ErrInvalidUnits
	}
	right.RedeemedUnits += units
	right.FullyRedeemed = right.RedeemedUnits == right.MaxUnits
	right.LastReasonHash = reasonHash
	if err := l.db.SetRight(right, txn); err != nil {
		return nil, err
	}
	l.logger.Debug(
		"redemption recorded",
		"component", "rights",
		"right_id", id,
		"units", units,
		"redeemed_units", right.RedeemedUnits,
		"fully_redeemed", right.FullyRedeemed,
	)
	return right, nil
}

// Get returns the stored right for the given id
func (l *RightsLedger) Get(
	txn *database.Txn,
	id uint64,
) (*models.Right, error) {
	return l.db.GetRight(id, txn)
}
