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

package coordinator

import (
	"bytes"
	"testing"
	"time"

	"github.com/openequity/tessera/cert"
	"github.com/openequity/tessera/database"
	"github.com/openequity/tessera/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "issuer-1"

func newTestCoordinator(t *testing.T) (*Coordinator, *database.Database) {
	t.Helper()
	db, err := database.New(&database.Config{
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	c := New(Config{
		Database: db,
		Registry: cert.NewRegistry(nil, db),
		Rights:   cert.NewRightsLedger(nil, db),
		Stakes:   cert.NewStakeLedger(nil, db),
	})
	require.NoError(t, c.Bootstrap(testIssuer))
	return c, db
}

func testAgreementParams() cert.AgreementParams {
	return cert.AgreementParams{
		Namespace:                "acme",
		ContentHash:              bytes.Repeat([]byte{0x01}, 32),
		RightsRoot:               bytes.Repeat([]byte{0x02}, 32),
		DocPointer:               "ipfs://doc-v1",
		Version:                  "1.0.0",
		Mutable:                  true,
		RevocationMode:           models.RevocationModeUnvestedOnly,
		DefaultRevocableUnvested: true,
	}
}

func TestCoordinatorUnauthorized(t *testing.T) {
	c, _ := newTestCoordinator(t)

	_, err := c.CreateAgreement("intruder", testAgreementParams())
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.IssueRight("intruder", "key-1", cert.IssueParams{
		Owner:    "alice",
		MaxUnits: 100,
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCoordinatorBootstrapIdempotent(t *testing.T) {
	c, db := newTestCoordinator(t)
	require.NoError(t, c.Bootstrap("someone-else"))

	// The original authority survives a repeat bootstrap
	state, err := db.GetCoordinatorState(nil)
	require.NoError(t, err)
	assert.Equal(t, testIssuer, state.Authority)
}

func TestCoordinatorIssueIdempotency(t *testing.T) {
	c, _ := newTestCoordinator(t)
	agreementId, err := c.CreateAgreement(testIssuer, testAgreementParams())
	require.NoError(t, err)

	params := cert.IssueParams{
		Owner:       "alice",
		AgreementID: agreementId,
		MaxUnits:    1000,
		UnitType:    "common",
	}
	id1, err := c.IssueRight(testIssuer, "issue-key-1", params)
	require.NoError(t, err)

	// Same key, identical parameters: same id, no double mint
	id2, err := c.IssueRight(testIssuer, "issue-key-1", params)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	rights, err := c.rights.Get(nil, id1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), rights.MaxUnits)

	// Same key, different parameters: always rejected
	params.MaxUnits = 2000
	_, err = c.IssueRight(testIssuer, "issue-key-1", params)
	assert.ErrorIs(t, err, ErrIdempotenceMismatch)

	// A fresh key mints a fresh right
	params.MaxUnits = 1000
	id3, err := c.IssueRight(testIssuer, "issue-key-2", params)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestCoordinatorVoidIdempotency(t *testing.T) {
	c, _ := newTestCoordinator(t)
	agreementId, err := c.CreateAgreement(testIssuer, testAgreementParams())
	require.NoError(t, err)

	rightId, err := c.IssueRight(testIssuer, "issue-1", cert.IssueParams{
		Owner:       "alice",
		AgreementID: agreementId,
		MaxUnits:    100,
		UnitType:    "common",
	})
	require.NoError(t, err)

	reasonHash := bytes.Repeat([]byte{0x09}, 32)
	reason := []byte("terminated for cause")
	require.NoError(
		t,
		c.VoidRight(testIssuer, "void-1", rightId, reasonHash, reason),
	)

	// The reason payload is retained under its hash
	payload, err := c.db.GetReasonBlob(reasonHash, nil)
	require.NoError(t, err)
	assert.Equal(t, reason, payload)

	// Replay with the same key is a successful no-op rather than
	// AlreadyVoided
	require.NoError(
		t,
		c.VoidRight(testIssuer, "void-1", rightId, reasonHash, reason),
	)

	// A fresh key hits the terminal-state check
	err = c.VoidRight(testIssuer, "void-2", rightId, reasonHash, nil)
	assert.ErrorIs(t, err, cert.ErrAlreadyVoided)
}

func TestCoordinatorRedeem(t *testing.T) {
	c, _ := newTestCoordinator(t)
	agreementId, err := c.CreateAgreement(testIssuer, testAgreementParams())
	require.NoError(t, err)

	rightId, err := c.IssueRight(testIssuer, "issue-1", cert.IssueParams{
		Owner:       "alice",
		AgreementID: agreementId,
		MaxUnits:    1000,
		UnitType:    "common",
	})
	require.NoError(t, err)

	now := time.Now()
	params := RedeemParams{
		RightID:   rightId,
		Units:     400,
		VestStart: now,
		VestCliff: now.Add(365 * 24 * time.Hour),
		VestEnd:   now.Add(1460 * 24 * time.Hour),
	}
	stakeId, err := c.Redeem(testIssuer, "redeem-1", params)
	require.NoError(t, err)

	// The stake carries the right's owner and the agreement's default
	// revocable-unvested flag
	stake, err := c.stakes.Get(nil, stakeId)
	require.NoError(t, err)
	assert.Equal(t, "alice", stake.Owner)
	assert.Equal(t, uint64(400), stake.Units)
	assert.True(t, stake.RevocableUnvested)

	right, err := c.rights.Get(nil, rightId)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), right.RedeemedUnits)
	assert.False(t, right.FullyRedeemed)

	// Replay returns the same stake with no second mint
	stakeId2, err := c.Redeem(testIssuer, "redeem-1", params)
	require.NoError(t, err)
	assert.Equal(t, stakeId, stakeId2)
	right, err = c.rights.Get(nil, rightId)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), right.RedeemedUnits)
}

func TestCoordinatorRedeemFailureUnbindsNothing(t *testing.T) {
	c, _ := newTestCoordinator(t)
	agreementId, err := c.CreateAgreement(testIssuer, testAgreementParams())
	require.NoError(t, err)

	rightId, err := c.IssueRight(testIssuer, "issue-1", cert.IssueParams{
		Owner:       "alice",
		AgreementID: agreementId,
		MaxUnits:    100,
		UnitType:    "common",
	})
	require.NoError(t, err)

	now := time.Now()
	// Over-redemption fails whole and leaves the key unbound
	_, err = c.Redeem(testIssuer, "redeem-1", RedeemParams{
		RightID:   rightId,
		Units:     200,
		VestStart: now,
		VestCliff: now,
		VestEnd:   now,
	})
	assert.ErrorIs(t, err, cert.ErrInvalidUnits)

	// The same key can then succeed with valid parameters
	_, err = c.Redeem(testIssuer, "redeem-1", RedeemParams{
		RightID:   rightId,
		Units:     100,
		VestStart: now,
		VestCliff: now,
		VestEnd:   now,
	})
	assert.NoError(t, err)
}

func TestCoordinatorRotateAuthority(t *testing.T) {
	c, _ := newTestCoordinator(t)

	err := c.RotateAuthority("intruder", "intruder")
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, c.RotateAuthority(testIssuer, "issuer-2"))

	_, err = c.CreateAgreement(testIssuer, testAgreementParams())
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.CreateAgreement("issuer-2", testAgreementParams())
	assert.NoError(t, err)
}

func TestCoordinatorTransitionGate(t *testing.T) {
	c, _ := newTestCoordinator(t)
	agreementId, err := c.CreateAgreement(testIssuer, testAgreementParams())
	require.NoError(t, err)

	rightId, err := c.IssueRight(testIssuer, "issue-1", cert.IssueParams{
		Owner:       "alice",
		AgreementID: agreementId,
		MaxUnits:    100,
		UnitType:    "common",
	})
	require.NoError(t, err)

	err = c.InitiateTransition("intruder", "vault-1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, c.InitiateTransition(testIssuer, "vault-1"))

	transitioned, vaultRef, err := c.Transitioned()
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, "vault-1", vaultRef)

	// One-way: the gate never reopens
	err = c.InitiateTransition(testIssuer, "vault-2")
	assert.ErrorIs(t, err, ErrAlreadyTransitioned)

	// Every issuance-side operation is frozen, even for the old authority
	now := time.Now()
	_, err = c.CreateAgreement(testIssuer, testAgreementParams())
	assert.ErrorIs(t, err, ErrTransitioned)
	_, err = c.AmendAgreement(testIssuer, agreementId, cert.AmendmentParams{
		NewVersion: "2.0.0",
	})
	assert.ErrorIs(t, err, ErrTransitioned)
	_, err = c.IssueRight(testIssuer, "issue-2", cert.IssueParams{
		Owner:       "bob",
		AgreementID: agreementId,
		MaxUnits:    100,
	})
	assert.ErrorIs(t, err, ErrTransitioned)
	err = c.VoidRight(testIssuer, "void-1", rightId, nil, nil)
	assert.ErrorIs(t, err, ErrTransitioned)
	_, err = c.Redeem(testIssuer, "redeem-1", RedeemParams{
		RightID:   rightId,
		Units:     10,
		VestStart: now,
		VestCliff: now,
		VestEnd:   now,
	})
	assert.ErrorIs(t, err, ErrTransitioned)
	err = c.Revoke(testIssuer, 1, nil, nil)
	assert.ErrorIs(t, err, ErrTransitioned)
	err = c.RotateAuthority(testIssuer, "issuer-3")
	assert.ErrorIs(t, err, ErrTransitioned)
}
