// Package client holds the HTTP clients for remote APIs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
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
)

var tracer = otel.Tracer("client")

const (
	serviceName = "transactions"

	// DefaultPageLimit is the page size sent when the caller leaves it unset.
	DefaultPageLimit = 50
)

// TransactionsClient calls the remote transaction API.
// It is stateless apart from its breaker and bulkhead.
type TransactionsClient struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
}

// NewTransactionsClient creates a new TransactionsClient. timeout bounds each
// operation including retries.
func NewTransactionsClient(httpClient *http.Client, baseURL string, timeout time.Duration, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *TransactionsClient {
	return &TransactionsClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		timeout:    timeout,
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
	}
}

// ListTransactions fetches one page: GET /transactions?page=&limit=.
func (c *TransactionsClient) ListTransactions(ctx context.Context, params domain.ListParams) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionsClient.ListTransactions")
	defer span.End()

	page, limit := params.Page, params.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	span.SetAttributes(attribute.Int("page", page), attribute.Int("limit", limit))

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var out []domain.Transaction
	if err := c.do(ctx, http.MethodGet, "/transactions?"+q.Encode(), nil, &out); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if out == nil {
		out = []domain.Transaction{}
	}
	return out, nil
}

// CreateTransaction posts tx and returns the server's record.
func (c *TransactionsClient) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionsClient.CreateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", tx.ID))

	var out domain.Transaction
	if err := c.do(ctx, http.MethodPost, "/transactions", tx, &out); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &out, nil
}

// UpdateTransaction replaces the record with PUT /transactions/{id}.
func (c *TransactionsClient) UpdateTransaction(ctx context.Context, id string, tx domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionsClient.UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	var out domain.Transaction
	if err := c.do(ctx, http.MethodPut, "/transactions/"+url.PathEscape(id), tx, &out); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &out, nil
}

// DeleteTransaction removes the record with DELETE /transactions/{id}.
func (c *TransactionsClient) DeleteTransaction(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "TransactionsClient.DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	if err := c.do(ctx, http.MethodDelete, "/transactions/"+url.PathEscape(id), nil, nil); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// do runs one request through bulkhead, circuit breaker and retry under the
// client timeout. Any 2xx is success; out is left untouched for empty bodies.
func (c *TransactionsClient) do(ctx context.Context, method, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &domain.ErrExternalService{Service: serviceName, Err: err}
		}
		body = b
	}

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrExternalService{Service: serviceName, Err: err}
	}
	defer c.bulkhead.Release()

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			return c.roundTrip(ctx, method, path, body, out)
		})
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%s %s timed out after %s: %w", method, path, c.timeout, err)
		}
		return &domain.ErrExternalService{Service: serviceName, Err: err}
	}
	return nil
}

func (c *TransactionsClient) roundTrip(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &domain.ErrStatus{Service: serviceName, StatusCode: resp.StatusCode}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return resilience.Permanent(statusErr)
		}
		return statusErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resilience.Permanent(fmt.Errorf("decode %s response: %w", method, err))
	}
	return nil
}
