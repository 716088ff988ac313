// Package device provides battery and calendar backends for the device
// bridge services.
package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/boddenberg/finance-core/internal/domain"
)

// ErrNoBattery is returned when no battery supply exists under the sysfs root.
var ErrNoBattery = errors.New("no battery found")

// Sysfs reads the battery from the Linux power_supply class,
// e.g. /sys/class/power_supply/BAT0/{type,capacity,status}.
type Sysfs struct {
	root string
}

// NewSysfs creates a reader rooted at root (normally /sys/class/power_supply).
func NewSysfs(root string) *Sysfs {
	return &Sysfs{root: root}
}

// ReadBattery returns the state of the first supply whose type is Battery.
// Linux has no per-app battery optimization, so OptimizationEnabled is false.
func (s *Sysfs) ReadBattery(ctx context.Context) (domain.BatteryInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.BatteryInfo{}, err
	}

	dir, err := s.batteryDir()
	if err != nil {
		return domain.BatteryInfo{}, err
	}

	raw, err := readAttr(dir, "capacity")
	if err != nil {
		return domain.BatteryInfo{}, err
	}
	level, err := strconv.Atoi(raw)
	if err != nil {
		return domain.BatteryInfo{}, fmt.Errorf("parse capacity %q: %w", raw, err)
	}

	status, err := readAttr(dir, "status")
	if err != nil {
		return domain.BatteryInfo{}, err
	}

	return domain.BatteryInfo{
		LevelPercent: clampPercent(level),
		IsCharging:   strings.EqualFold(status, "Charging"),
	}, nil
}

// RequestOptimizationDisable is a no-op on Linux and reports that nothing was requested.
func (s *Sysfs) RequestOptimizationDisable(ctx context.Context) (bool, error) {
	return false, ctx.Err()
}

func (s *Sysfs) batteryDir() (string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.root, err)
	}
	for _, e := range entries {
		dir := filepath.Join(s.root, e.Name())
		if typ, err := readAttr(dir, "type"); err == nil && typ == "Battery" {
			return dir, nil
		}
	}
	return "", ErrNoBattery
}

func readAttr(dir, name string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return strings.TrimSpace(string(b)), nil
}

func clampPercent(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
