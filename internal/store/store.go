// Package store persists the medicine collection in BadgerDB. The whole
// collection lives under a single namespaced key as a JSON array; writes
// replace the full collection in one transaction.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	apperrors "github.com/dosewise/dosewise/internal/errors"
	"github.com/dosewise/dosewise/internal/medicine"
)

const medicinesKey = "medicines:all"

// Store is the durable MedicineStore backed by BadgerDB.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the badger database under dataDir.
func Open(dataDir string) (*Store, error) {
	opts := badger.DefaultOptions(filepath.Join(dataDir, "badger")).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetAll reads the full medicine collection. A missing key is an empty
// collection, not an error.
func (s *Store) GetAll(ctx context.Context) ([]medicine.Medicine, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(medicinesKey))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			raw = append([]byte{}, v...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return []medicine.Medicine{}, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStorageRead.Code, apperrors.ErrStorageRead.Message)
	}

	var medicines []medicine.Medicine
	if err := json.Unmarshal(raw, &medicines); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStorageRead.Code, "stored medicine collection is corrupt")
	}
	return medicines, nil
}

// SaveAll replaces the full medicine collection. The write is a single
// badger transaction, so the caller sees all of it persisted or none.
func (s *Store) SaveAll(ctx context.Context, medicines []medicine.Medicine) error {
	raw, err := json.Marshal(medicines)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrStorageWrite.Code, apperrors.ErrStorageWrite.Message)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(medicinesKey), raw)
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrStorageWrite.Code, apperrors.ErrStorageWrite.Message)
	}
	return nil
}
