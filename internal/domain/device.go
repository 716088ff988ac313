package domain

import "time"

// ============================================================
// Device bridges
// ============================================================

// BatteryInfo is a snapshot of the device battery state.
type BatteryInfo struct {
	LevelPercent        int  `json:"level"`
	IsCharging          bool `json:"isCharging"`
	OptimizationEnabled bool `json:"batteryOptimizationEnabled"`
}

// LowBatteryThreshold is the level under which a discharging battery counts as low.
const LowBatteryThreshold = 20

// IsLow reports a discharging battery under LowBatteryThreshold.
func (b BatteryInfo) IsLow() bool {
	return b.LevelPercent < LowBatteryThreshold && !b.IsCharging
}

// CalendarEvent is a device calendar entry.
type CalendarEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Notes     string    `json:"notes,omitempty"`
}

// CalendarEventRequest is the input of CalendarService.CreateEvent.
type CalendarEventRequest struct {
	Title     string    `json:"title"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Notes     string    `json:"notes,omitempty"`
}

// Bridge failure codes. They are stable and safe to show to clients.
const (
	CodeBatteryError             = "BATTERY_ERROR"
	CodeBatteryOptimizationError = "BATTERY_OPTIMIZATION_ERROR"
	CodeCalendarError            = "CALENDAR_ERROR"
	CodeCalendarPermission       = "CALENDAR_PERMISSION"
	CodeCalendarSaveError        = "CALENDAR_SAVE_ERROR"
	CodeCalendarEventNotFound    = "CALENDAR_EVENT_NOT_FOUND"
	CodeCalendarDeleteError      = "CALENDAR_DELETE_ERROR"
)
