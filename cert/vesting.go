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
	"math/bits"
	"time"

	"github.com/openequity/tessera/database/models"
)

// VestedUnits returns the number of units vested at the given instant for a
// live (non-revoked) position. Zero before the cliff, everything at or after
// the end, linear in between. A zero-length window vests fully at start.
// The intermediate product uses 128-bit math so large unit counts over long
// windows can't overflow.
func VestedUnits(units uint64, start, cliff, end, now time.Time) uint64 {
	if now.Before(cliff) {
		return 0
	}
	if !now.Before(end) {
		return units
	}
	duration := end.Unix() - start.Unix()
	if duration <= 0 {
		return units
	}
	elapsed := now.Unix() - start.Unix()
	if elapsed <= 0 {
		return 0
	}
	// units * elapsed / duration; elapsed < duration here, so the quotient
	// fits in 64 bits
	hi, lo := bits.Mul64(units, uint64(elapsed))
	quot, _ := bits.Div64(hi, lo, uint64(duration))
	return quot
}

// StakeVestedUnits returns the vested quantity for a stake at the given
// instant. A revoked stake's units were frozen at the revocation instant, so
// the live vesting computation is bypassed entirely and the stored snapshot
// is returned for all subsequent queries.
func StakeVestedUnits(stake *models.Stake, now time.Time) uint64 {
	if stake.Revoked {
		return stake.Units
	}
	return VestedUnits(
		stake.Units,
		stake.VestStart,
		stake.VestCliff,
		stake.VestEnd,
		now,
	)
}
