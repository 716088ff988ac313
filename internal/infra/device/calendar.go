package device

import (
	"context"
	"crypto/rand"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/finance-core/internal/domain"

	"github.com/oklog/ulid/v2"
)

// Calendar is an in-memory device calendar. Access starts denied and is
// granted by RequestAccess when autoGrant is set.
type Calendar struct {
	mu        sync.RWMutex
	autoGrant bool
	granted   bool
	events    map[string]domain.CalendarEvent
	entropy   io.Reader
}

// NewCalendar creates an empty calendar.
func NewCalendar(autoGrant bool) *Calendar {
	return &Calendar{
		autoGrant: autoGrant,
		events:    make(map[string]domain.CalendarEvent),
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
}

// RequestAccess asks for calendar permission and reports the outcome.
func (c *Calendar) RequestAccess(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoGrant {
		c.granted = true
	}
	return c.granted, nil
}

// Authorized reports whether access has been granted.
func (c *Calendar) Authorized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.granted
}

// SaveEvent stores ev under a new ULID and returns the stored event.
func (c *Calendar) SaveEvent(ctx context.Context, ev domain.CalendarEvent) (*domain.CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now()), c.entropy)
	if err != nil {
		return nil, err
	}
	ev.ID = id.String()
	c.events[ev.ID] = ev
	return &ev, nil
}

// Events returns events overlapping [start, end], earliest first.
func (c *Calendar) Events(ctx context.Context, start, end time.Time) ([]domain.CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []domain.CalendarEvent{}
	for _, ev := range c.events {
		if ev.StartDate.After(end) || ev.EndDate.Before(start) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

// RemoveEvent deletes the event with id.
func (c *Calendar) RemoveEvent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.events[id]; !ok {
		return &domain.ErrNotFound{Resource: "calendar event", ID: id}
	}
	delete(c.events, id)
	return nil
}
