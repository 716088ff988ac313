package service

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/finance-core/internal/domain"
	"github.com/boddenberg/finance-core/internal/infra/observability"
	"github.com/boddenberg/finance-core/internal/port"

	"go.uber.org/zap"
)

// transactionEventDuration is the length of an event created from a transaction.
const transactionEventDuration = time.Hour

// CalendarService wraps a CalendarStore with permission checks and labelled errors.
type CalendarService struct {
	store   port.CalendarStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewCalendarService creates the service.
func NewCalendarService(store port.CalendarStore, metrics *observability.Metrics, logger *zap.Logger) *CalendarService {
	return &CalendarService{store: store, metrics: metrics, logger: logger}
}

// RequestAccess asks for calendar permission and reports whether it was granted.
func (c *CalendarService) RequestAccess(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "CalendarService.RequestAccess")
	defer span.End()

	granted, err := c.store.RequestAccess(ctx)
	if err != nil {
		c.logger.Error("failed to request calendar access", zap.Error(err))
		return false, &domain.ErrBridge{Code: domain.CodeCalendarError, Message: "Failed to request calendar access", Err: err}
	}
	return granted, nil
}

// CreateEvent saves a new event.
func (c *CalendarService) CreateEvent(ctx context.Context, req domain.CalendarEventRequest) (*domain.CalendarEvent, error) {
	ctx, span := tracer.Start(ctx, "CalendarService.CreateEvent")
	defer span.End()

	if err := c.authorized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, &domain.ErrValidation{Messages: []string{"Title is required"}}
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, &domain.ErrValidation{Messages: []string{"End date must not be before start date"}}
	}

	ev, err := c.store.SaveEvent(ctx, domain.CalendarEvent{
		Title:     req.Title,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Notes:     req.Notes,
	})
	if err != nil {
		c.logger.Error("failed to save calendar event", zap.String("title", req.Title), zap.Error(err))
		return nil, &domain.ErrBridge{Code: domain.CodeCalendarSaveError, Message: "Failed to save event", Err: err}
	}
	c.metrics.IncrCalendarEvent("create")
	return ev, nil
}

// ListEvents returns the events overlapping [start, end].
func (c *CalendarService) ListEvents(ctx context.Context, start, end time.Time) ([]domain.CalendarEvent, error) {
	ctx, span := tracer.Start(ctx, "CalendarService.ListEvents")
	defer span.End()

	if err := c.authorized(); err != nil {
		return nil, err
	}
	events, err := c.store.Events(ctx, start, end)
	if err != nil {
		c.logger.Error("failed to list calendar events", zap.Error(err))
		return nil, &domain.ErrBridge{Code: domain.CodeCalendarError, Message: "Failed to get events", Err: err}
	}
	return events, nil
}

// DeleteEvent removes the event with id.
func (c *CalendarService) DeleteEvent(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "CalendarService.DeleteEvent")
	defer span.End()

	if err := c.authorized(); err != nil {
		return false, err
	}
	if err := c.store.RemoveEvent(ctx, id); err != nil {
		if isNotFound(err) {
			return false, &domain.ErrBridge{Code: domain.CodeCalendarEventNotFound, Message: "Event not found", Err: err}
		}
		c.logger.Error("failed to delete calendar event", zap.String("event_id", id), zap.Error(err))
		return false, &domain.ErrBridge{Code: domain.CodeCalendarDeleteError, Message: "Failed to delete event", Err: err}
	}
	c.metrics.IncrCalendarEvent("delete")
	return true, nil
}

// SyncTransaction creates a one-hour event for tx starting at its date.
func (c *CalendarService) SyncTransaction(ctx context.Context, tx domain.Transaction) (*domain.CalendarEvent, error) {
	ev, err := c.CreateEvent(ctx, domain.CalendarEventRequest{
		Title:     "Transaction: " + tx.Description,
		StartDate: tx.Date,
		EndDate:   tx.Date.Add(transactionEventDuration),
		Notes:     tx.Category,
	})
	if err != nil {
		return nil, err
	}
	c.metrics.IncrCalendarEvent("sync")
	return ev, nil
}

func (c *CalendarService) authorized() error {
	if c.store.Authorized() {
		return nil
	}
	return &domain.ErrBridge{Code: domain.CodeCalendarPermission, Message: "Calendar access not granted"}
}
