package device

import (
	"context"
	"sync"

	"github.com/boddenberg/finance-core/internal/domain"
)

// Static is a settable battery source for hosts without a battery and for tests.
type Static struct {
	mu   sync.Mutex
	info domain.BatteryInfo
	err  error
}

// NewStatic creates a source that reports info until changed.
func NewStatic(info domain.BatteryInfo) *Static {
	return &Static{info: info}
}

// Set replaces the reported state.
func (s *Static) Set(info domain.BatteryInfo) {
	s.mu.Lock()
	s.info = info
	s.mu.Unlock()
}

// Fail makes every subsequent call return err; nil restores normal operation.
func (s *Static) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// ReadBattery returns the configured state.
func (s *Static) ReadBattery(ctx context.Context) (domain.BatteryInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.BatteryInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.BatteryInfo{}, s.err
	}
	return s.info, nil
}

// RequestOptimizationDisable clears the optimization flag.
func (s *Static) RequestOptimizationDisable(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	s.info.OptimizationEnabled = false
	return true, nil
}
