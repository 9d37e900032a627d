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
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/openequity/tessera/database"
	"github.com/openequity/tessera/database/models"
	"golang.org/x/crypto/blake2b"
)

// Registry stores versioned, content-addressed agreements and their
// append-only amendment chains
type Registry struct {
	logger *slog.Logger
	db     *database.Database
}

// NewRegistry creates a new agreement registry backed by the given database
func NewRegistry(logger *slog.Logger, db *database.Database) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Registry{
		logger: logger,
		db:     db,
	}
}

// AgreementParams are the caller-supplied inputs for creating an agreement.
// ContentHash is an opaque hash of the canonicalized off-chain document; the
// registry never parses or canonicalizes content itself. Document optionally
// carries the document bytes for retention in the blob store.
type AgreementParams struct {
	Namespace                string
	ContentHash              []byte
	RightsRoot               []byte
	DocPointer               string
	Document                 []byte
	Version                  string
	Mutable                  bool
	RevocationMode           uint8
	DefaultRevocableUnvested bool
}

// ComputeAgreementID derives the deterministic agreement identifier from the
// issuer namespace, content hash, and version string. Each field is
// length-prefixed before hashing so no two distinct input triples can
// produce the same preimage.
func ComputeAgreementID(
	namespace string,
	contentHash []byte,
	version string,
) []byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 can only fail with a bad key; we pass none
		panic(err)
	}
	for _, field := range [][]byte{
		[]byte(namespace),
		contentHash,
		[]byte(version),
	} {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(field))) //nolint:gosec
		h.Write(lenBuf[:])
		h.Write(field)
	}
	return h.Sum(nil)
}

// Create registers a new agreement and returns its deterministic identifier.
// Fails with models.ErrAgreementExists if the derived identifier collides
// with a stored record.
func (r *Registry) Create(
	txn *database.Txn,
	params AgreementParams,
	now time.Time,
) ([]byte, error) {
	if params.RevocationMode > models.RevocationModeAny {
		return nil, fmt.Errorf(
			"%w: unknown revocation mode %d",
			ErrInvalidParameters,
			params.RevocationMode,
		)
	}
	id := ComputeAgreementID(
		params.Namespace,
		params.ContentHash,
		params.Version,
	)
	exists, err := r.db.AgreementExists(id, txn)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrAgreementExists
	}
	agreement := &models.Agreement{
		ID:                       id,
		Namespace:                params.Namespace,
		ContentHash:              params.ContentHash,
		RightsRoot:               params.RightsRoot,
		DocPointer:               params.DocPointer,
		Version:                  params.Version,
		Mutable:                  params.Mutable,
		RevocationMode:           params.RevocationMode,
		DefaultRevocableUnvested: params.DefaultRevocableUnvested,
		CreatedAt:                now,
	}
	if err := r.db.SetAgreement(agreement, txn); err != nil {
		return nil, err
	}
	if len(params.Document) > 0 {
		if err := r.db.SetDocumentBlob(
			params.ContentHash, params.Document, txn,
		); err != nil {
			return nil, err
		}
	}
	r.logger.Debug(
		"agreement created",
		"component", "registry",
		"agreement_id", fmt.Sprintf("%x", id),
		"namespace", params.Namespace,
		"version", params.Version,
	)
	return id, nil
}

// AmendmentParams are the caller-supplied inputs for amending an agreement.
// Namespace, revocation mode, and the default-revocable flag are inherited
// from the predecessor and cannot be changed through amendment.
type AmendmentParams struct {
	NewContentHash []byte
	NewRightsRoot  []byte
	NewDocPointer  string
	NewDocument    []byte
	NewVersion     string
}

// Amend registers a new agreement superseding oldId and returns the new
// identifier. The old record is never mutated; the new record's predecessor
// points at it. Fails with models.ErrAgreementNotFound if oldId is absent,
// ErrImmutable if the old record doesn't permit amendment, and
// models.ErrAgreementExists if the derived identifier collides.
func (r *Registry) Amend(
	txn *database.Txn,
	oldId []byte,
	params AmendmentParams,
	now time.Time,
) ([]byte, error) {
	oldAgreement, err := r.db.GetAgreement(oldId, txn)
	if err != nil {
		return nil, err
	}
	if !oldAgreement.Mutable {
		return nil, ErrImmutable
	}
	newId := ComputeAgreementID(
		oldAgreement.Namespace,
		params.NewContentHash,
		params.NewVersion,
	)
	exists, err := r.db.AgreementExists(newId, txn)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrAgreementExists
	}
	newAgreement := &models.Agreement{
		ID:                       newId,
		Namespace:                oldAgreement.Namespace,
		ContentHash:              params.NewContentHash,
		RightsRoot:               params.NewRightsRoot,
		DocPointer:               params.NewDocPointer,
		Version:                  params.NewVersion,
		Mutable:                  oldAgreement.Mutable,
		RevocationMode:           oldAgreement.RevocationMode,
		DefaultRevocableUnvested: oldAgreement.DefaultRevocableUnvested,
		PredecessorID:            oldId,
		CreatedAt:                now,
	}
	if err := r.db.SetAgreement(newAgreement, txn); err != nil {
		return nil, err
	}
	if len(params.NewDocument) > 0 {
		if err := r.db.SetDocumentBlob(
			params.NewContentHash, params.NewDocument, txn,
		); err != nil {
			return nil, err
		}
	}
	r.logger.Debug(
		"agreement amended",
		"component", "registry",
		"old_agreement_id", fmt.Sprintf("%x", oldId),
		"new_agreement_id", fmt.Sprintf("%x", newId),
	)
	return newId, nil
}

// Get returns the stored agreement for the given identifier
func (r *Registry) Get(
	txn *database.Txn,
	id []byte,
) (*models.Agreement, error) {
	return r.db.GetAgreement(id, txn)
}
