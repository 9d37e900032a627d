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
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrBlobKeyNotFound is returned by blob operations when a key is missing
var ErrBlobKeyNotFound = errors.New("blob key not found")

// Key prefixes for the blob store. Blobs are content-addressed: the caller
// supplies the hash, we never parse or canonicalize the content.
var (
	blobPrefixDocument = []byte("d")
	blobPrefixReason   = []byte("r")
)

// badgerLogger wraps our logger to implement badger.Logger
type badgerLogger struct {
	logger *slog.Logger
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.logger.Error(fmt.Sprintf(format, args...), "component", "blob")
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.logger.Warn(fmt.Sprintf(format, args...), "component", "blob")
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.logger.Info(fmt.Sprintf(format, args...), "component", "blob")
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.logger.Debug(fmt.Sprintf(format, args...), "component", "blob")
}

// openBlob opens the badger blob store. Uses an in-memory store if dataDir
// is empty.
func openBlob(dataDir string, logger *slog.Logger) (*badger.DB, error) {
	var opts badger.Options
	if dataDir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		blobDir := filepath.Join(dataDir, "blob")
		opts = badger.DefaultOptions(blobDir)
	}
	opts = opts.WithLogger(badgerLogger{logger: logger})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	return db, nil
}

func blobDocumentKey(contentHash []byte) []byte {
	return append(blobPrefixDocument, contentHash...)
}

func blobReasonKey(reasonHash []byte) []byte {
	return append(blobPrefixReason, reasonHash...)
}

// SetDocumentBlob stores the opaque document bytes under the caller-supplied
// content hash. Write-once: storing different bytes under an existing hash
// is the caller's defect, so an existing key is left untouched.
func (d *Database) SetDocumentBlob(
	contentHash []byte,
	content []byte,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetDocumentBlob(contentHash, content, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	key := blobDocumentKey(contentHash)
	if _, err := txn.Blob().Get(key); err == nil {
		// Already stored
		return nil
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return txn.Blob().Set(key, content)
}

// GetDocumentBlob returns the document bytes stored under the given content hash
func (d *Database) GetDocumentBlob(
	contentHash []byte,
	txn *Txn,
) ([]byte, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	item, err := txn.Blob().Get(blobDocumentKey(contentHash))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBlobKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// SetReasonBlob stores an opaque reason payload under the caller-supplied
// reason hash
func (d *Database) SetReasonBlob(
	reasonHash []byte,
	payload []byte,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Release()
		if err := d.SetReasonBlob(reasonHash, payload, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	return txn.Blob().Set(blobReasonKey(reasonHash), payload)
}

// GetReasonBlob returns the reason payload stored under the given reason hash
func (d *Database) GetReasonBlob(
	reasonHash []byte,
	txn *Txn,
) ([]byte, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	item, err := txn.Blob().Get(blobReasonKey(reasonHash))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBlobKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}
