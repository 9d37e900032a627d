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

package database

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/openequity/tessera/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := New(&Config{
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestNewInMemory(t *testing.T) {
	db, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestStakeRoundtrip(t *testing.T) {
	db := newTestDatabase(t)
	now := time.Now()
	stake := &models.Stake{
		Owner:       "alice",
		AgreementID: bytes.Repeat([]byte{0x01}, 32),
		Units:       1000,
		UnitType:    "common",
		VestStart:   now,
		VestCliff:   now,
		VestEnd:     now,
		Custody:     models.CustodyOwner,
	}
	require.NoError(t, db.SetStake(stake, nil))
	require.NotZero(t, stake.ID)

	stored, err := db.GetStake(stake.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Owner)
	assert.Equal(t, uint64(1000), stored.Units)
	assert.Equal(t, models.CustodyOwner, stored.Custody)

	_, err = db.GetStake(9999, nil)
	assert.ErrorIs(t, err, models.ErrStakeNotFound)
}

func TestTxnRollback(t *testing.T) {
	db := newTestDatabase(t)
	boom := errors.New("boom")
	now := time.Now()

	var stakeId uint64
	txn := db.Transaction(true)
	err := txn.Do(func(txn *Txn) error {
		stake := &models.Stake{
			Owner:       "alice",
			AgreementID: bytes.Repeat([]byte{0x01}, 32),
			Units:       100,
			VestStart:   now,
			VestCliff:   now,
			VestEnd:     now,
		}
		if err := db.SetStake(stake, txn); err != nil {
			return err
		}
		stakeId = stake.ID
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// The failed transaction must leave no trace
	_, err = db.GetStake(stakeId, nil)
	assert.ErrorIs(t, err, models.ErrStakeNotFound)
}

func TestDocumentBlobWriteOnce(t *testing.T) {
	db := newTestDatabase(t)
	contentHash := bytes.Repeat([]byte{0xaa}, 32)

	_, err := db.GetDocumentBlob(contentHash, nil)
	assert.ErrorIs(t, err, ErrBlobKeyNotFound)

	require.NoError(t, db.SetDocumentBlob(contentHash, []byte("doc-v1"), nil))

	// A second store under the same hash leaves the original bytes in place
	require.NoError(t, db.SetDocumentBlob(contentHash, []byte("doc-v2"), nil))

	content, err := db.GetDocumentBlob(contentHash, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("doc-v1"), content)
}

func TestReasonBlobRoundtrip(t *testing.T) {
	db := newTestDatabase(t)
	reasonHash := bytes.Repeat([]byte{0xbb}, 32)

	require.NoError(t, db.SetReasonBlob(reasonHash, []byte("for cause"), nil))

	payload, err := db.GetReasonBlob(reasonHash, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("for cause"), payload)
}

func TestIdempotencyRecordRoundtrip(t *testing.T) {
	db := newTestDatabase(t)

	_, err := db.GetIdempotencyRecord("missing", nil)
	assert.ErrorIs(t, err, models.ErrIdempotencyKeyNotFound)

	record := &models.IdempotencyRecord{
		Key:        "issue-1",
		ParamsHash: bytes.Repeat([]byte{0xcc}, 32),
		ResultID:   42,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, db.SetIdempotencyRecord(record, nil))

	stored, err := db.GetIdempotencyRecord("issue-1", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), stored.ResultID)
	assert.Equal(t, record.ParamsHash, stored.ParamsHash)
}

func TestGovernanceWeight(t *testing.T) {
	db := newTestDatabase(t)
	now := time.Now()

	weight, err := db.GetGovernanceWeight(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), weight)

	require.NoError(t, db.SetSeat(&models.Seat{
		StakeID:   1,
		Holder:    "alice",
		TermStart: now,
		TermEnd:   now.Add(time.Hour),
		Weight:    4000,
		Active:    true,
	}, nil))
	require.NoError(t, db.SetSeat(&models.Seat{
		StakeID:   2,
		Holder:    "bob",
		TermStart: now,
		TermEnd:   now.Add(time.Hour),
		Weight:    6000,
		Active:    true,
	}, nil))
	require.NoError(t, db.SetSeat(&models.Seat{
		StakeID:   3,
		Holder:    "carol",
		TermStart: now,
		TermEnd:   now.Add(time.Hour),
		Weight:    5000,
		Active:    false,
	}, nil))

	// Only active seats carry weight
	weight, err = db.GetGovernanceWeight(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), weight)

	seats, err := db.GetActiveSeats(nil)
	require.NoError(t, err)
	assert.Len(t, seats, 2)
}

func TestExcludedBalance(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.SetAccount(&models.Account{
		Address: "alice",
		Balance: 600,
	}, nil))
	require.NoError(t, db.SetAccount(&models.Account{
		Address:            "protocol",
		Balance:            400,
		GovernanceExcluded: true,
	}, nil))

	excluded, err := db.GetExcludedBalance(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), excluded)
}

func TestAllocationRoundtrip(t *testing.T) {
	db := newTestDatabase(t)

	alloc, err := db.GetAllocation("alice", nil)
	require.NoError(t, err)
	assert.Nil(t, alloc)

	require.NoError(t, db.SetAllocation(&models.Allocation{
		Holder: "alice",
		Amount: 1000,
	}, nil))

	alloc, err = db.GetAllocation("alice", nil)
	require.NoError(t, err)
	require.NotNil(t, alloc)
	assert.Equal(t, uint64(1000), alloc.Amount)
}
