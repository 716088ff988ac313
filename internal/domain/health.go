package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// SyncStats is returned by GET /v1/sync/stats.
// Counters are cumulative since process start.
type SyncStats struct {
	RemoteSuccess     int64   `json:"remoteSuccess"`
	RemoteFailures    int64   `json:"remoteFailures"`
	Fallbacks         int64   `json:"fallbacks"`
	PersistenceErrors int64   `json:"persistenceErrors"`
	FallbackRate      float64 `json:"fallbackRate"`
	Period            string  `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// Envelope is the uniform success body of the /v1 API.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Source  Source `json:"source,omitempty"`
	Message string `json:"message,omitempty"`
}

// ListResponse wraps paginated list results. Total is the size of the
// collection the page was cut from when it is known, otherwise the page size.
type ListResponse[T any] struct {
	Success bool   `json:"success"`
	Data    []T    `json:"data"`
	Source  Source `json:"source,omitempty"`
	Message string `json:"message,omitempty"`
	Total   int    `json:"total"`
	Page    int    `json:"page"`
	Limit   int    `json:"limit"`
	HasMore bool   `json:"hasMore"`
}
