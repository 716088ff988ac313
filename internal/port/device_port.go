package port

import (
	"context"
	"time"

	"github.com/boddenberg/finance-core/internal/domain"
)

// BatterySource reads the platform battery state.
type BatterySource interface {
	ReadBattery(ctx context.Context) (domain.BatteryInfo, error)
	// RequestOptimizationDisable asks the platform to exempt the app from
	// battery optimization. It reports whether the request was issued.
	RequestOptimizationDisable(ctx context.Context) (bool, error)
}

// CalendarStore is the platform calendar.
type CalendarStore interface {
	RequestAccess(ctx context.Context) (bool, error)
	Authorized() bool
	SaveEvent(ctx context.Context, ev domain.CalendarEvent) (*domain.CalendarEvent, error)
	Events(ctx context.Context, start, end time.Time) ([]domain.CalendarEvent, error)
	// RemoveEvent returns domain.ErrNotFound for an unknown id.
	RemoveEvent(ctx context.Context, id string) error
}
