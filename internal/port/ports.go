// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from the remote API, the blob store backends and the device bridges.
package port

import (
	"context"

	"github.com/boddenberg/finance-core/internal/domain"
)

// RemoteTransactions is the CRUD surface of the remote transaction API.
// Every failure (network, timeout, non-2xx) is reported as an error.
type RemoteTransactions interface {
	ListTransactions(ctx context.Context, params domain.ListParams) ([]domain.Transaction, error)
	CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, tx domain.Transaction) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// BlobStore is a durable key-value store of opaque values.
// Get returns domain.ErrKeyNotFound for a missing key; Remove of a missing
// key is not an error.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// TransactionStore is the typed local copy of the transaction collection.
type TransactionStore interface {
	List(ctx context.Context) ([]domain.Transaction, error)
	Get(ctx context.Context, id string) (*domain.Transaction, error)
	Upsert(ctx context.Context, tx domain.Transaction) error
	Update(ctx context.Context, id string, fn func(domain.Transaction) domain.Transaction) (*domain.Transaction, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
