// Package supabase provides a remote transaction backend on Supabase
// (PostgREST). It implements port.RemoteTransactions over a single table.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/boddenberg/finance-core/internal/domain"
	"github.com/boddenberg/finance-core/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

const serviceName = "supabase/transactions"

// Config locates the project and the transactions table.
type Config struct {
	URL        string
	AnonKey    string
	ServiceKey string
	Table      string
	// Timeout bounds each operation including retries.
	Timeout time.Duration
}

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	table          string
	timeout        time.Duration
	cb             *gobreaker.CircuitBreaker
	bulkhead       *resilience.Bulkhead
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, sc Config, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	table := sc.Table
	if table == "" {
		table = "transactions"
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        sc.URL,
		apiKey:         sc.AnonKey,
		serviceRoleKey: sc.ServiceKey,
		table:          table,
		timeout:        sc.Timeout,
		cb:             cb,
		bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:            cfg,
		logger:         logger,
	}
}

// row maps table columns to domain.Transaction.
type row struct {
	ID          string     `json:"id"`
	Amount      float64    `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Date        string     `json:"date"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

func toRow(tx domain.Transaction) row {
	r := row{
		ID:          tx.ID,
		Amount:      tx.Amount,
		Category:    tx.Category,
		Description: tx.Description,
		Type:        string(tx.Type),
		Date:        tx.Date.UTC().Format(time.RFC3339),
	}
	if !tx.CreatedAt.IsZero() {
		r.CreatedAt = &tx.CreatedAt
	}
	if !tx.UpdatedAt.IsZero() {
		r.UpdatedAt = &tx.UpdatedAt
	}
	return r
}

func (r row) toDomain() (domain.Transaction, error) {
	date, err := domain.ParseDate(r.Date)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx := domain.Transaction{
		ID:          r.ID,
		Amount:      r.Amount,
		Category:    r.Category,
		Description: r.Description,
		Type:        domain.TransactionType(r.Type),
		Date:        date,
	}
	if r.CreatedAt != nil {
		tx.CreatedAt = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		tx.UpdatedAt = *r.UpdatedAt
	}
	return tx, nil
}

// ListTransactions returns one page ordered by date, newest first.
func (c *Client) ListTransactions(ctx context.Context, params domain.ListParams) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactions")
	defer span.End()

	page, limit := params.Page, params.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	span.SetAttributes(attribute.Int("page", page), attribute.Int("limit", limit))

	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "date.desc")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa((page-1)*limit))

	rows, err := c.call(ctx, http.MethodGet, c.table+"?"+q.Encode(), nil, "")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		tx, err := r.toDomain()
		if err != nil {
			c.logger.Warn("supabase: skipping undecodable row", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// CreateTransaction inserts tx and returns the stored row.
func (c *Client) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", tx.ID))

	rows, err := c.call(ctx, http.MethodPost, c.table, toRow(tx), "return=representation")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return c.first(rows, tx.ID)
}

// UpdateTransaction overwrites the row with the given id.
func (c *Client) UpdateTransaction(ctx context.Context, id string, tx domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	tx.ID = id
	rows, err := c.call(ctx, http.MethodPatch, c.table+"?id=eq."+url.QueryEscape(id), toRow(tx), "return=representation")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return c.first(rows, id)
}

// DeleteTransaction removes the row with the given id. Deleting a missing row
// succeeds.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	if _, err := c.call(ctx, http.MethodDelete, c.table+"?id=eq."+url.QueryEscape(id), nil, "return=minimal"); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// first returns the single row PostgREST echoes back for a write. An empty
// representation means no row matched.
func (c *Client) first(rows []row, id string) (*domain.Transaction, error) {
	if len(rows) == 0 {
		return nil, &domain.ErrExternalService{
			Service: serviceName,
			Err:     &domain.ErrStatus{Service: serviceName, StatusCode: http.StatusNotFound},
		}
	}
	tx, err := rows[0].toDomain()
	if err != nil {
		return nil, &domain.ErrExternalService{Service: serviceName, Err: fmt.Errorf("decode row %s: %w", id, err)}
	}
	return &tx, nil
}

// call runs one request through bulkhead, circuit breaker and retry under the
// client timeout and decodes the returned rows.
func (c *Client) call(ctx context.Context, method, path string, in any, prefer string) ([]row, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrExternalService{Service: serviceName, Err: err}
	}
	defer c.bulkhead.Release()

	var rows []row
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, method, path, in, prefer)
			if err != nil {
				return err
			}
			rows = nil
			if len(body) == 0 {
				return nil
			}
			if err := json.Unmarshal(body, &rows); err != nil {
				return resilience.Permanent(fmt.Errorf("decode %s response: %w", method, err))
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%s %s timed out after %s: %w", method, c.table, c.timeout, err)
		}
		return nil, &domain.ErrExternalService{Service: serviceName, Err: err}
	}
	return rows, nil
}
