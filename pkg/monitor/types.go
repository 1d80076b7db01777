package monitor

import (
	"time"
)

// HealthStatus classifies an installation's most recent health score.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"   // score >= 90
	StatusDegraded  HealthStatus = "degraded"  // 70-89
	StatusUnhealthy HealthStatus = "unhealthy" // 50-69
	StatusCritical  HealthStatus = "critical"  // < 50
)

// statusForScore maps a clamped score onto its status band.
func statusForScore(score int) HealthStatus {
	switch {
	case score >= 90:
		return StatusHealthy
	case score >= 70:
		return StatusDegraded
	case score >= 50:
		return StatusUnhealthy
	default:
		return StatusCritical
	}
}

// AlertType categorizes an alert.
type AlertType string

const (
	AlertPerformance AlertType = "performance"
	AlertError       AlertType = "error"
	AlertMemory      AlertType = "memory"
	AlertCrash       AlertType = "crash"
	AlertSecurity    AlertType = "security"
)

// Severity grades an alert or reported error.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is a single monitoring alert. Resolved is a one-way transition;
// alerts live until the retention sweep deletes them.
type Alert struct {
	ID             string                 `json:"id"`
	InstallationID string                 `json:"installation_id"`
	Type           AlertType              `json:"type"`
	Severity       Severity               `json:"severity"`
	Message        string                 `json:"message"`
	Data           map[string]interface{} `json:"data,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	Resolved       bool                   `json:"resolved"`
	ResolvedAt     *time.Time             `json:"resolved_at,omitempty"`
}

// HealthCheck is the outcome of the most recent health sweep for one
// installation. It is recomputed wholesale every sweep.
type HealthCheck struct {
	InstallationID  string       `json:"installation_id"`
	Status          HealthStatus `json:"status"`
	Score           int          `json:"score"`
	Issues          []string     `json:"issues,omitempty"`
	Recommendations []string     `json:"recommendations,omitempty"`
	LastCheck       time.Time    `json:"last_check"`
}

// PerformanceSample records a single plugin invocation.
type PerformanceSample struct {
	Operation  string    `json:"operation"`
	DurationMs float64   `json:"duration_ms"`
	Success    bool      `json:"success"`
	Timestamp  time.Time `json:"timestamp"`
}

// ErrorSample records a single reported plugin error.
type ErrorSample struct {
	Operation string    `json:"operation"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// PluginMetrics is a point-in-time copy of one installation's counters and
// bounded sample history.
type PluginMetrics struct {
	InstallationID        string              `json:"installation_id"`
	TotalInvocations      int64               `json:"total_invocations"`
	SuccessfulInvocations int64               `json:"successful_invocations"`
	FailedInvocations     int64               `json:"failed_invocations"`
	AvgResponseTimeMs     float64             `json:"avg_response_time_ms"`
	ErrorRate             float64             `json:"error_rate"`
	MemoryBytes           int64               `json:"memory_bytes"`
	CPUFraction           float64             `json:"cpu_fraction"`
	LastActivity          time.Time           `json:"last_activity"`
	PerformanceSamples    []PerformanceSample `json:"performance_samples,omitempty"`
	ErrorSamples          []ErrorSample       `json:"error_samples,omitempty"`
}

// SystemHealthSummary aggregates the current state across all tracked
// installations.
type SystemHealthSummary struct {
	TotalInstallations int                  `json:"total_installations"`
	StatusCounts       map[HealthStatus]int `json:"status_counts"`
	ActiveAlerts       int                  `json:"active_alerts"`
	SeverityCounts     map[Severity]int     `json:"severity_counts"`
}

// ring is a fixed-capacity buffer that overwrites its oldest entry on
// overflow. Pushes are O(1); the monitor's hot path depends on that.
type ring[T any] struct {
	buf  []T
	head int
	size int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ring[T]) len() int { return r.size }

// snapshot returns the buffered entries oldest-first.
func (r *ring[T]) snapshot() []T {
	out := make([]T, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}
