package service

import (
	"context"
	"errors"
	"time"

	"github.com/boddenberg/finance-core/internal/domain"
	"github.com/boddenberg/finance-core/internal/infra/observability"
	"github.com/boddenberg/finance-core/internal/infra/resilience"
	"github.com/boddenberg/finance-core/internal/port"
	"github.com/boddenberg/finance-core/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/transactions")

const (
	msgLocalOnly      = "remote unavailable; change saved on this device only"
	msgLocalSnapshot  = "remote unavailable; showing transactions stored on this device"
	msgLocalNotSynced = "saved remotely; local copy could not be updated"
)

// TransactionService is the single CRUD surface over transactions. Every
// operation tries the remote API first and falls back to the local store when
// the remote leg fails. Records written during an outage are not replayed to
// the remote later.
type TransactionService struct {
	remote  port.RemoteTransactions
	local   port.TransactionStore
	metrics *observability.Metrics
	logger  *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewTransactionService creates the service with all dependencies injected.
func NewTransactionService(
	remote port.RemoteTransactions,
	local port.TransactionStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		remote:  remote,
		local:   local,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// List returns one page from the remote API, or the whole local collection
// when the remote is unreachable.
func (s *TransactionService) List(ctx context.Context, params domain.ListParams) (*domain.Result[[]domain.Transaction], error) {
	ctx, span := tracer.Start(ctx, "TransactionService.List")
	defer span.End()
	defer s.observe("list", time.Now())

	txs, err := s.remote.ListTransactions(ctx, params)
	if err == nil {
		s.metrics.IncrRemoteSuccess("list")
		span.SetAttributes(attribute.String("source", string(domain.SourceRemote)))
		return &domain.Result[[]domain.Transaction]{Data: txs, Source: domain.SourceRemote}, nil
	}
	s.remoteFailed("list", "", err)

	local, lerr := s.local.List(ctx)
	if lerr != nil {
		s.persistenceFailed("list", "", lerr)
		return nil, lerr
	}

	s.metrics.IncrFallback("list")
	span.SetAttributes(attribute.String("source", string(domain.SourceLocalFallback)))
	return &domain.Result[[]domain.Transaction]{
		Data:    local,
		Source:  domain.SourceLocalFallback,
		Message: msgLocalSnapshot,
	}, nil
}

// Get returns the record with id. The local copy wins; on a local miss the
// fetched snapshot is searched, which covers records created elsewhere and
// only known to the remote.
func (s *TransactionService) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	tx, err := s.local.Get(ctx, id)
	if err == nil {
		return tx, nil
	}
	if !isNotFound(err) {
		s.persistenceFailed("get", id, err)
		return nil, err
	}

	snapshot, lerr := s.List(ctx, domain.ListParams{})
	if lerr != nil {
		return nil, err
	}
	for i := range snapshot.Data {
		if snapshot.Data[i].ID == id {
			found := snapshot.Data[i]
			return &found, nil
		}
	}
	return nil, err
}

// Create validates draft, assigns an id and timestamps, and stores the record.
func (s *TransactionService) Create(ctx context.Context, draft domain.TransactionDraft) (*domain.Result[domain.Transaction], error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Create")
	defer span.End()

	if err := validation.Check(draft); err != nil {
		return nil, err
	}
	defer s.observe("create", time.Now())

	now := s.now().UTC()
	tx := domain.Transaction{
		ID:          s.newID(),
		Amount:      draft.Amount,
		Category:    draft.Category,
		Description: draft.Description,
		Type:        draft.Type,
		Date:        draft.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	span.SetAttributes(attribute.String("transaction.id", tx.ID))

	created, err := s.remote.CreateTransaction(ctx, tx)
	if err == nil {
		s.metrics.IncrRemoteSuccess("create")
		record := tx
		if created != nil && created.ID != "" {
			record = *created
		}
		return s.remoteResult("create", record, s.local.Upsert(ctx, record)), nil
	}
	s.remoteFailed("create", tx.ID, err)

	if lerr := s.local.Upsert(ctx, tx); lerr != nil {
		s.persistenceFailed("create", tx.ID, lerr)
		return nil, lerr
	}

	s.metrics.IncrFallback("create")
	return &domain.Result[domain.Transaction]{Data: tx, Source: domain.SourceLocalFallback, Message: msgLocalOnly}, nil
}

// Update merges patch over the record with id. It returns *domain.ErrNotFound
// when the remote is unreachable and the local store does not know id.
func (s *TransactionService) Update(ctx context.Context, id string, patch domain.TransactionPatch) (*domain.Result[domain.Transaction], error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	if err := validation.CheckPatch(patch); err != nil {
		return nil, err
	}
	defer s.observe("update", time.Now())

	now := s.now().UTC()
	merge := func(tx domain.Transaction) domain.Transaction {
		out := patch.Apply(tx)
		out.ID = id
		out.UpdatedAt = now
		return out
	}

	// The PUT body is the full record when the local copy is known.
	base := domain.Transaction{ID: id}
	known := false
	if stored, err := s.local.Get(ctx, id); err == nil {
		base, known = *stored, true
	} else if !isNotFound(err) {
		s.logger.Warn("local read before update failed",
			zap.String("transaction_id", id),
			zap.Error(err),
		)
	}
	candidate := merge(base)

	updated, err := s.remote.UpdateTransaction(ctx, id, candidate)
	if err == nil {
		s.metrics.IncrRemoteSuccess("update")
		record, haveRecord := candidate, known
		if updated != nil && updated.ID != "" {
			record, haveRecord = *updated, true
		}
		var lerr error
		if haveRecord {
			lerr = s.local.Upsert(ctx, record)
		}
		return s.remoteResult("update", record, lerr), nil
	}
	s.remoteFailed("update", id, err)

	merged, lerr := s.local.Update(ctx, id, merge)
	if lerr != nil {
		if !isNotFound(lerr) {
			s.persistenceFailed("update", id, lerr)
		}
		return nil, lerr
	}

	s.metrics.IncrFallback("update")
	return &domain.Result[domain.Transaction]{Data: *merged, Source: domain.SourceLocalFallback, Message: msgLocalOnly}, nil
}

// Delete removes id remotely and locally. Data holds the deleted id.
func (s *TransactionService) Delete(ctx context.Context, id string) (*domain.Result[string], error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))
	defer s.observe("delete", time.Now())

	err := s.remote.DeleteTransaction(ctx, id)
	if err == nil {
		s.metrics.IncrRemoteSuccess("delete")
		res := &domain.Result[string]{Data: id, Source: domain.SourceRemote}
		if lerr := s.local.Delete(ctx, id); lerr != nil {
			s.persistenceFailed("delete", id, lerr)
			res.Message = msgLocalNotSynced
		}
		return res, nil
	}
	s.remoteFailed("delete", id, err)

	if lerr := s.local.Delete(ctx, id); lerr != nil {
		s.persistenceFailed("delete", id, lerr)
		return nil, lerr
	}

	s.metrics.IncrFallback("delete")
	return &domain.Result[string]{Data: id, Source: domain.SourceLocalFallback, Message: msgLocalOnly}, nil
}

// remoteResult tags a remote success; a failed local write only adds a message.
func (s *TransactionService) remoteResult(op string, tx domain.Transaction, localErr error) *domain.Result[domain.Transaction] {
	res := &domain.Result[domain.Transaction]{Data: tx, Source: domain.SourceRemote}
	if localErr != nil {
		s.persistenceFailed(op, tx.ID, localErr)
		res.Message = msgLocalNotSynced
	}
	return res
}

func (s *TransactionService) remoteFailed(op, id string, err error) {
	s.metrics.IncrRemoteFailure(op)
	if resilience.IsOpen(err) {
		s.logger.Warn("remote circuit open, serving from local store",
			zap.String("operation", op),
			zap.String("transaction_id", id),
		)
		return
	}
	s.logger.Warn("remote call failed, falling back to local store",
		zap.String("operation", op),
		zap.String("transaction_id", id),
		zap.Error(err),
	)
}

func (s *TransactionService) persistenceFailed(op, id string, err error) {
	s.metrics.IncrPersistenceError(op)
	s.logger.Error("local store failed",
		zap.String("operation", op),
		zap.String("transaction_id", id),
		zap.Error(err),
	)
}

func (s *TransactionService) observe(op string, start time.Time) {
	s.metrics.RecordDuration(op, time.Since(start))
}

func isNotFound(err error) bool {
	var nf *domain.ErrNotFound
	return errors.As(err, &nf)
}
