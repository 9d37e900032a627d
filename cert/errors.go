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

import "errors"

var (
	// ErrImmutable is returned when amending an agreement whose mutable flag is unset
	ErrImmutable = errors.New("agreement is immutable")

	// ErrInvalidRecipient is returned when issuing to an empty or invalid owner
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrInvalidUnits is returned for zero amounts or redemptions past the maximum
	ErrInvalidUnits = errors.New("invalid units")

	// ErrInvalidVesting is returned unless start <= cliff <= end
	ErrInvalidVesting = errors.New("invalid vesting window")

	// ErrInvalidParameters is returned for malformed inputs not covered by a
	// more specific sentinel, such as an unknown revocation mode
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrAlreadyVoided is returned when voiding a right a second time
	ErrAlreadyVoided = errors.New("right already voided")

	// ErrAlreadyRevoked is returned when revoking a stake a second time
	ErrAlreadyRevoked = errors.New("stake already revoked")

	// ErrInvalidState is returned for operations against a voided,
	// fully-redeemed, or burned record
	ErrInvalidState = errors.New("record in invalid state for operation")

	// ErrRevocationDisabled is returned when the governing agreement's
	// revocation mode forbids the revocation
	ErrRevocationDisabled = errors.New("revocation disabled by agreement")

	// ErrStakeFullyVested is returned when an unvested-only revocation finds
	// nothing left to remove
	ErrStakeFullyVested = errors.New("stake fully vested")

	// ErrNotRedeemable is returned when redeeming before the right's
	// not-before time
	ErrNotRedeemable = errors.New("right not yet redeemable")

	// ErrNotOwner is returned when a caller operates on a record they don't hold
	ErrNotOwner = errors.New("caller does not own record")
)
