package service

import (
	"context"
	"time"

	"github.com/boddenberg/finance-core/internal/analytics"
	"github.com/boddenberg/finance-core/internal/domain"
	"github.com/boddenberg/finance-core/internal/infra/cache"

	"go.opentelemetry.io/otel/attribute"
)

// TransactionLister is the read side of TransactionService.
type TransactionLister interface {
	List(ctx context.Context, params domain.ListParams) (*domain.Result[[]domain.Transaction], error)
}

// AnalyticsService aggregates the reconciled transaction list.
type AnalyticsService struct {
	transactions TransactionLister
	limit        int
	now          func() time.Time

	// snapshots holds the last loaded list; nil disables caching.
	snapshots *cache.InMemory[*domain.Result[[]domain.Transaction]]
}

const snapshotKey = "transactions"

// NewAnalyticsService creates the service. limit is the page size requested
// when loading transactions for aggregation.
func NewAnalyticsService(transactions TransactionLister, limit int) *AnalyticsService {
	return &AnalyticsService{transactions: transactions, limit: limit, now: time.Now}
}

// WithSnapshotCache reuses a loaded transaction list across aggregations for
// the cache's TTL. Reports may then lag writes by up to that TTL.
func (a *AnalyticsService) WithSnapshotCache(c *cache.InMemory[*domain.Result[[]domain.Transaction]]) *AnalyticsService {
	a.snapshots = c
	return a
}

// Invalidate drops the cached snapshot, if any.
func (a *AnalyticsService) Invalidate() {
	if a.snapshots != nil {
		a.snapshots.Delete(snapshotKey)
	}
}

// Summary aggregates the transactions dated within [from, to]. A zero bound
// defaults to the current month's bound.
func (a *AnalyticsService) Summary(ctx context.Context, from, to time.Time) (*domain.Summary, error) {
	ctx, span := tracer.Start(ctx, "AnalyticsService.Summary")
	defer span.End()

	start, end := analytics.MonthBounds(a.now())
	if !from.IsZero() {
		start = from
	}
	if !to.IsZero() {
		end = to
	}
	if end.Before(start) {
		return nil, &domain.ErrValidation{Messages: []string{"from must not be after to"}}
	}
	span.SetAttributes(
		attribute.String("period.from", start.Format(time.DateOnly)),
		attribute.String("period.to", end.Format(time.DateOnly)),
	)

	res, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	summary := analytics.Summarize(analytics.InRange(res.Data, start, end))
	summary.Period = &domain.Period{From: start, To: end}
	summary.Source = res.Source
	return &summary, nil
}

// Categories returns the expense breakdown over every known transaction.
func (a *AnalyticsService) Categories(ctx context.Context) ([]domain.CategoryTotal, domain.Source, error) {
	ctx, span := tracer.Start(ctx, "AnalyticsService.Categories")
	defer span.End()

	res, err := a.load(ctx)
	if err != nil {
		return nil, "", err
	}
	return analytics.TopCategories(analytics.GroupByCategory(res.Data), analytics.TotalExpenses(res.Data)), res.Source, nil
}

// CompoundInterest projects principal over periods compounding steps.
func (a *AnalyticsService) CompoundInterest(principal, rate float64, periods int) (*domain.InterestProjection, error) {
	var msgs []string
	if principal < 0 {
		msgs = append(msgs, "principal must not be negative")
	}
	if periods < 0 {
		msgs = append(msgs, "periods must not be negative")
	}
	if len(msgs) > 0 {
		return nil, &domain.ErrValidation{Messages: msgs}
	}

	amount := analytics.CompoundInterest(principal, rate, periods)
	return &domain.InterestProjection{
		Principal: principal,
		Rate:      rate,
		Periods:   periods,
		Amount:    amount,
		Interest:  amount - principal,
	}, nil
}

func (a *AnalyticsService) load(ctx context.Context) (*domain.Result[[]domain.Transaction], error) {
	if a.snapshots != nil {
		if res, ok := a.snapshots.Get(snapshotKey); ok {
			return res, nil
		}
	}

	res, err := a.transactions.List(ctx, domain.ListParams{Page: 1, Limit: a.limit})
	if err != nil {
		return nil, err
	}
	if a.snapshots != nil {
		a.snapshots.Set(snapshotKey, res)
	}
	return res, nil
}
