// Package localstore keeps the device-local copy of the transaction
// collection as a single JSON array inside a blob store.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/boddenberg/finance-core/internal/domain"
	"github.com/boddenberg/finance-core/internal/port"
)

// DefaultKey is the blob key holding the collection.
const DefaultKey = "transactions"

// Store implements port.TransactionStore on top of a port.BlobStore.
// Every read-modify-write runs under one mutex, so concurrent writers in the
// same process never drop each other's records.
type Store struct {
	blobs port.BlobStore
	key   string
	mu    sync.Mutex
}

// New creates a Store. An empty key selects DefaultKey.
func New(blobs port.BlobStore, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{blobs: blobs, key: key}
}

// List returns the whole collection; a missing key is an empty collection.
func (s *Store) List(ctx context.Context) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx)
	if err != nil {
		return nil, &domain.ErrPersistence{Op: "list", Err: err}
	}
	return txs, nil
}

// Get returns the record with id, or *domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx)
	if err != nil {
		return nil, &domain.ErrPersistence{Op: "get", Err: err}
	}
	for i := range txs {
		if txs[i].ID == id {
			tx := txs[i]
			return &tx, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
}

// Upsert replaces the record with tx.ID in place, or appends tx.
func (s *Store) Upsert(ctx context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx)
	if err != nil {
		return &domain.ErrPersistence{Op: "upsert", Err: err}
	}

	replaced := false
	for i := range txs {
		if txs[i].ID == tx.ID {
			txs[i] = tx
			replaced = true
			break
		}
	}
	if !replaced {
		txs = append(txs, tx)
	}

	if err := s.save(ctx, txs); err != nil {
		return &domain.ErrPersistence{Op: "upsert", Err: err}
	}
	return nil
}

// Update applies fn to the record with id and stores the result.
// It returns *domain.ErrNotFound when no record matches.
func (s *Store) Update(ctx context.Context, id string, fn func(domain.Transaction) domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx)
	if err != nil {
		return nil, &domain.ErrPersistence{Op: "update", Err: err}
	}

	idx := -1
	for i := range txs {
		if txs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}

	updated := fn(txs[idx])
	updated.ID = id
	txs[idx] = updated

	if err := s.save(ctx, txs); err != nil {
		return nil, &domain.ErrPersistence{Op: "update", Err: err}
	}
	return &updated, nil
}

// Delete removes every record with id. Unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx)
	if err != nil {
		return &domain.ErrPersistence{Op: "delete", Err: err}
	}

	kept := txs[:0]
	for _, tx := range txs {
		if tx.ID != id {
			kept = append(kept, tx)
		}
	}
	if len(kept) == len(txs) {
		return nil
	}

	if err := s.save(ctx, kept); err != nil {
		return &domain.ErrPersistence{Op: "delete", Err: err}
	}
	return nil
}

// Clear drops the whole collection.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blobs.Remove(ctx, s.key); err != nil {
		return &domain.ErrPersistence{Op: "clear", Err: err}
	}
	return nil
}

func (s *Store) load(ctx context.Context) ([]domain.Transaction, error) {
	data, err := s.blobs.Get(ctx, s.key)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return []domain.Transaction{}, nil
	}
	if err != nil {
		return nil, err
	}

	var txs []domain.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return txs, nil
}

func (s *Store) save(ctx context.Context, txs []domain.Transaction) error {
	data, err := json.Marshal(txs)
	if err != nil {
		return err
	}
	return s.blobs.Set(ctx, s.key, data)
}
