package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/finance-core/internal/domain"
	"github.com/boddenberg/finance-core/internal/infra/device"
	"github.com/boddenberg/finance-core/internal/infra/observability"
	"github.com/boddenberg/finance-core/internal/service"

	"go.uber.org/zap"
)

func newCalendar(autoGrant bool) *service.CalendarService {
	return service.NewCalendarService(device.NewCalendar(autoGrant), observability.NewMetrics(), zap.NewNop())
}

func bridgeCode(err error) string {
	var be *domain.ErrBridge
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func TestCalendar_PermissionDeniedBeforeAccess(t *testing.T) {
	svc := newCalendar(true)
	ctx := context.Background()
	now := time.Now()

	if _, err := svc.CreateEvent(ctx, domain.CalendarEventRequest{Title: "x", StartDate: now, EndDate: now}); bridgeCode(err) != domain.CodeCalendarPermission {
		t.Errorf("create: expected CALENDAR_PERMISSION, got %v", err)
	}
	if _, err := svc.ListEvents(ctx, now, now); !domain.IsPermissionDenied(err) {
		t.Errorf("list: expected permission denied, got %v", err)
	}
	if _, err := svc.DeleteEvent(ctx, "id"); !domain.IsPermissionDenied(err) {
		t.Errorf("delete: expected permission denied, got %v", err)
	}
}

func TestCalendar_DeniedAccessStaysDenied(t *testing.T) {
	svc := newCalendar(false)

	granted, err := svc.RequestAccess(context.Background())
	if err != nil || granted {
		t.Fatalf("expected access denied, got %v %v", granted, err)
	}
	if _, err := svc.ListEvents(context.Background(), time.Now(), time.Now()); !domain.IsPermissionDenied(err) {
		t.Errorf("expected permission denied, got %v", err)
	}
}

func TestCalendar_CreateListDelete(t *testing.T) {
	svc := newCalendar(true)
	ctx := context.Background()
	if ok, _ := svc.RequestAccess(ctx); !ok {
		t.Fatal("expected access granted")
	}

	start := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	ev, err := svc.CreateEvent(ctx, domain.CalendarEventRequest{Title: "Rent", StartDate: start, EndDate: start.Add(time.Hour), Notes: "monthly"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ev.ID == "" || ev.Notes != "monthly" {
		t.Errorf("unexpected event %+v", ev)
	}

	events, err := svc.ListEvents(ctx, start.Add(-time.Hour), start.Add(2*time.Hour))
	if err != nil || len(events) != 1 {
		t.Fatalf("expected one event, got %v %v", events, err)
	}

	ok, err := svc.DeleteEvent(ctx, ev.ID)
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, err := svc.DeleteEvent(ctx, ev.ID); bridgeCode(err) != domain.CodeCalendarEventNotFound {
		t.Errorf("expected CALENDAR_EVENT_NOT_FOUND, got %v", err)
	}
}

func TestCalendar_CreateValidatesInput(t *testing.T) {
	svc := newCalendar(true)
	ctx := context.Background()
	_, _ = svc.RequestAccess(ctx)
	now := time.Now()

	var ve *domain.ErrValidation
	if _, err := svc.CreateEvent(ctx, domain.CalendarEventRequest{Title: " ", StartDate: now, EndDate: now}); !errors.As(err, &ve) {
		t.Errorf("expected validation error for blank title, got %v", err)
	}
	if _, err := svc.CreateEvent(ctx, domain.CalendarEventRequest{Title: "x", StartDate: now, EndDate: now.Add(-time.Minute)}); !errors.As(err, &ve) {
		t.Errorf("expected validation error for inverted range, got %v", err)
	}
}

func TestCalendar_SyncTransaction(t *testing.T) {
	svc := newCalendar(true)
	ctx := context.Background()
	_, _ = svc.RequestAccess(ctx)

	date := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
	ev, err := svc.SyncTransaction(ctx, domain.Transaction{ID: "tx-1", Description: "Groceries", Category: "Food", Date: date})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if ev.Title != "Transaction: Groceries" {
		t.Errorf("unexpected title %q", ev.Title)
	}
	if !ev.StartDate.Equal(date) || ev.EndDate.Sub(ev.StartDate) != time.Hour {
		t.Errorf("expected one hour event at the transaction date, got %v..%v", ev.StartDate, ev.EndDate)
	}
	if !strings.Contains(ev.Notes, "Food") {
		t.Errorf("expected category in notes, got %q", ev.Notes)
	}
}
