package service

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/finance-core/internal/domain"
	"github.com/boddenberg/finance-core/internal/infra/observability"
	"github.com/boddenberg/finance-core/internal/port"

	"go.uber.org/zap"
)

// subscriberBuffer is the per-subscriber channel size. Slow subscribers miss
// intermediate readings rather than blocking the monitor.
const subscriberBuffer = 8

// BatteryService wraps a BatterySource with labelled errors and a polling
// monitor that publishes state transitions to subscribers.
type BatteryService struct {
	source   port.BatterySource
	interval time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	last   *domain.BatteryInfo
	nextID int
	subs   map[int]chan domain.BatteryInfo
	closed bool
}

// NewBatteryService creates the service. interval is the monitor polling period.
func NewBatteryService(source port.BatterySource, interval time.Duration, metrics *observability.Metrics, logger *zap.Logger) *BatteryService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &BatteryService{
		source:   source,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
		subs:     make(map[int]chan domain.BatteryInfo),
	}
}

// GetInfo reads the current battery state.
func (b *BatteryService) GetInfo(ctx context.Context) (*domain.BatteryInfo, error) {
	ctx, span := tracer.Start(ctx, "BatteryService.GetInfo")
	defer span.End()

	info, err := b.source.ReadBattery(ctx)
	if err != nil {
		b.logger.Error("failed to get battery info", zap.Error(err))
		return nil, &domain.ErrBridge{Code: domain.CodeBatteryError, Message: "Failed to get battery info", Err: err}
	}
	b.metrics.SetBatteryLevel(info.LevelPercent)
	return &info, nil
}

// RequestOptimizationDisable asks the platform to exempt the app from battery
// optimization and reports whether the request was issued.
func (b *BatteryService) RequestOptimizationDisable(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "BatteryService.RequestOptimizationDisable")
	defer span.End()

	ok, err := b.source.RequestOptimizationDisable(ctx)
	if err != nil {
		b.logger.Error("failed to request battery optimization disable", zap.Error(err))
		return false, &domain.ErrBridge{
			Code:    domain.CodeBatteryOptimizationError,
			Message: "Failed to request battery optimization disable",
			Err:     err,
		}
	}
	return ok, nil
}

// IsOptimizationEnabled reports the optimization flag; read failures count as false.
func (b *BatteryService) IsOptimizationEnabled(ctx context.Context) bool {
	info, err := b.GetInfo(ctx)
	if err != nil {
		return false
	}
	return info.OptimizationEnabled
}

// CheckLowBattery logs a warning and returns true for a low, discharging battery.
// Read failures are logged and count as not low.
func (b *BatteryService) CheckLowBattery(ctx context.Context) bool {
	info, err := b.GetInfo(ctx)
	if err != nil {
		return false
	}
	if !info.IsLow() {
		return false
	}
	b.metrics.IncrLowBattery()
	b.logger.Warn("low battery detected", zap.Int("level", info.LevelPercent))
	return true
}

// StartMonitoring starts the polling loop. Calling it while running is a no-op.
// The loop stops on StopMonitoring or when ctx is cancelled.
func (b *BatteryService) StartMonitoring(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	b.last = nil
	go b.monitor(ctx, b.done)

	b.logger.Info("battery monitoring started", zap.Duration("interval", b.interval))
}

// StopMonitoring stops the polling loop and waits for it to exit.
// Calling it while stopped is a no-op.
func (b *BatteryService) StopMonitoring() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	b.logger.Info("battery monitoring stopped")
}

// Monitoring reports whether the polling loop is running.
func (b *BatteryService) Monitoring() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancel != nil
}

// Close stops monitoring and closes every subscriber channel so open event
// streams end. Subscribers arriving after Close get a closed channel.
func (b *BatteryService) Close() {
	b.StopMonitoring()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Subscribe returns a channel of battery state transitions and a function
// that unsubscribes and closes it.
func (b *BatteryService) Subscribe() (<-chan domain.BatteryInfo, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.BatteryInfo, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

func (b *BatteryService) monitor(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		b.poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll reads the battery and publishes the reading when it differs from the
// previous one.
func (b *BatteryService) poll(ctx context.Context) {
	info, err := b.source.ReadBattery(ctx)
	if err != nil {
		if ctx.Err() == nil {
			b.logger.Warn("battery poll failed", zap.Error(err))
		}
		return
	}
	b.metrics.SetBatteryLevel(info.LevelPercent)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last != nil && *b.last == info {
		return
	}
	b.last = &info

	if info.IsLow() {
		b.metrics.IncrLowBattery()
		b.logger.Warn("low battery detected", zap.Int("level", info.LevelPercent))
	}
	for _, ch := range b.subs {
		select {
		case ch <- info:
		default:
		}
	}
}
