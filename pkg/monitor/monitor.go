package monitor

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/velomail/pluginkit/pkg/events"
	"github.com/velomail/pluginkit/pkg/observability"
)

// Config holds health monitor tuning. Zero values are replaced by defaults.
type Config struct {
	// SweepInterval is how often health checks are recomputed.
	SweepInterval time.Duration
	// RetentionSweepInterval is how often expired alerts are purged.
	RetentionSweepInterval time.Duration
	// AlertRetention is how long alerts are kept, resolved or not.
	AlertRetention time.Duration

	// ErrorRateThreshold above which an installation is penalized (0..1).
	ErrorRateThreshold float64
	// ResponseTimeThresholdMs above which average latency is penalized.
	ResponseTimeThresholdMs float64
	// MemoryThresholdBytes above which memory use is penalized.
	MemoryThresholdBytes int64
	// CPUThreshold above which CPU use is penalized (0..1).
	CPUThreshold float64
	// IdleThreshold after which inactivity is penalized.
	IdleThreshold time.Duration

	// PerformanceSampleCap bounds the per-installation invocation history.
	PerformanceSampleCap int
	// ErrorSampleCap bounds the per-installation error history.
	ErrorSampleCap int
}

// DefaultConfig returns the monitor defaults.
func DefaultConfig() Config {
	return Config{
		SweepInterval:           time.Minute,
		RetentionSweepInterval:  time.Hour,
		AlertRetention:          24 * time.Hour,
		ErrorRateThreshold:      0.10,
		ResponseTimeThresholdMs: 5000,
		MemoryThresholdBytes:    512 * 1024 * 1024,
		CPUThreshold:            0.8,
		IdleThreshold:           24 * time.Hour,
		PerformanceSampleCap:    100,
		ErrorSampleCap:          50,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.SweepInterval <= 0 {
		c.SweepInterval = def.SweepInterval
	}
	if c.RetentionSweepInterval <= 0 {
		c.RetentionSweepInterval = def.RetentionSweepInterval
	}
	if c.AlertRetention <= 0 {
		c.AlertRetention = def.AlertRetention
	}
	if c.ErrorRateThreshold <= 0 {
		c.ErrorRateThreshold = def.ErrorRateThreshold
	}
	if c.ResponseTimeThresholdMs <= 0 {
		c.ResponseTimeThresholdMs = def.ResponseTimeThresholdMs
	}
	if c.MemoryThresholdBytes <= 0 {
		c.MemoryThresholdBytes = def.MemoryThresholdBytes
	}
	if c.CPUThreshold <= 0 {
		c.CPUThreshold = def.CPUThreshold
	}
	if c.IdleThreshold <= 0 {
		c.IdleThreshold = def.IdleThreshold
	}
	if c.PerformanceSampleCap <= 0 {
		c.PerformanceSampleCap = def.PerformanceSampleCap
	}
	if c.ErrorSampleCap <= 0 {
		c.ErrorSampleCap = def.ErrorSampleCap
	}
	return c
}

// installationRecord is the mutable per-installation state behind the
// monitor's lock. PluginMetrics snapshots are built from it on demand.
type installationRecord struct {
	installationID        string
	createdAt             time.Time
	totalInvocations      int64
	successfulInvocations int64
	failedInvocations     int64
	avgResponseTimeMs     float64
	errorRate             float64
	memoryBytes           int64
	cpuFraction           float64
	lastActivity          time.Time
	perf                  *ring[PerformanceSample]
	errs                  *ring[ErrorSample]
}

// Monitor tracks per-installation telemetry fed by the plugin execution
// bridge and turns it into health checks and alerts on periodic sweeps.
// All state is in memory; nothing survives a restart.
type Monitor struct {
	cfg Config
	bus *events.Bus
	obs *observability.Metrics
	log *logrus.Logger

	// now is swappable for tests.
	now func() time.Time

	mu      sync.RWMutex
	records map[string]*installationRecord
	checks  map[string]*HealthCheck
	alerts  map[string]*Alert

	healthTicker    *time.Ticker
	retentionTicker *time.Ticker
	done            chan struct{}
	wg              sync.WaitGroup
	started         bool
	stopped         bool
}

// New creates a monitor. bus and obs may be nil; log falls back to a
// default logger.
func New(cfg Config, bus *events.Bus, obs *observability.Metrics, log *logrus.Logger) *Monitor {
	if log == nil {
		log = logrus.New()
	}
	return &Monitor{
		cfg:     cfg.withDefaults(),
		bus:     bus,
		obs:     obs,
		log:     log,
		now:     time.Now,
		records: make(map[string]*installationRecord),
		checks:  make(map[string]*HealthCheck),
		alerts:  make(map[string]*Alert),
		done:    make(chan struct{}),
	}
}

// Start launches the periodic health and alert-retention sweeps. It is a
// no-op on a started or shut-down monitor.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.started || m.stopped {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.healthTicker = time.NewTicker(m.cfg.SweepInterval)
	m.retentionTicker = time.NewTicker(m.cfg.RetentionSweepInterval)
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.done:
				return
			case <-m.healthTicker.C:
				m.runHealthSweep()
			case <-m.retentionTicker.C:
				m.runRetentionSweep()
			}
		}
	}()

	m.log.WithFields(logrus.Fields{
		"sweep_interval":     m.cfg.SweepInterval,
		"retention_interval": m.cfg.RetentionSweepInterval,
	}).Info("health monitor started")
}

// Shutdown stops both sweeps and clears all state. Safe to call multiple
// times; timers stop before maps clear so a late tick never sees torn state.
func (m *Monitor) Shutdown() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	started := m.started
	m.mu.Unlock()

	if started {
		m.healthTicker.Stop()
		m.retentionTicker.Stop()
		close(m.done)
		m.wg.Wait()
	}

	m.mu.Lock()
	m.records = make(map[string]*installationRecord)
	m.checks = make(map[string]*HealthCheck)
	m.alerts = make(map[string]*Alert)
	m.mu.Unlock()

	m.log.Info("health monitor shut down")
}

// RecordInvocation ingests one plugin call. It is called inline on the
// invocation hot path: counter updates, a ring-buffer push, and immediate
// threshold evaluation, nothing more.
func (m *Monitor) RecordInvocation(installationID, operation string, durationMs float64, success bool) {
	now := m.now()

	m.mu.Lock()
	rec := m.recordFor(installationID)

	rec.totalInvocations++
	if success {
		rec.successfulInvocations++
	} else {
		rec.failedInvocations++
	}

	n := float64(rec.totalInvocations)
	rec.avgResponseTimeMs = (rec.avgResponseTimeMs*(n-1) + durationMs) / n
	rec.errorRate = float64(rec.failedInvocations) / float64(rec.totalInvocations)
	rec.lastActivity = now
	rec.perf.push(PerformanceSample{
		Operation:  operation,
		DurationMs: durationMs,
		Success:    success,
		Timestamp:  now,
	})

	var created []*Alert
	if rec.errorRate > m.cfg.ErrorRateThreshold {
		created = append(created, m.newAlertLocked(installationID, AlertError, SeverityHigh,
			fmt.Sprintf("error rate %.1f%% exceeds %.1f%%", rec.errorRate*100, m.cfg.ErrorRateThreshold*100),
			map[string]interface{}{
				"error_rate": rec.errorRate,
				"operation":  operation,
			}))
	}
	if rec.avgResponseTimeMs > m.cfg.ResponseTimeThresholdMs {
		created = append(created, m.newAlertLocked(installationID, AlertPerformance, SeverityMedium,
			fmt.Sprintf("average response time %.0fms exceeds %.0fms", rec.avgResponseTimeMs, m.cfg.ResponseTimeThresholdMs),
			map[string]interface{}{
				"avg_response_time_ms": rec.avgResponseTimeMs,
				"operation":            operation,
			}))
	}
	m.mu.Unlock()

	if m.obs != nil {
		result := "success"
		if !success {
			result = "failure"
		}
		m.obs.InvocationsTotal.WithLabelValues(result).Inc()
		m.obs.InvocationDuration.WithLabelValues(result).Observe(durationMs / 1000)
	}
	m.publishAlerts(created)
}

// RecordError ingests an error reported by the execution bridge. High and
// critical severities raise an alert immediately.
func (m *Monitor) RecordError(installationID, operation string, err error, severity Severity) {
	now := m.now()
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}

	m.mu.Lock()
	rec := m.recordFor(installationID)
	rec.lastActivity = now
	rec.errs.push(ErrorSample{
		Operation: operation,
		Message:   message,
		Severity:  severity,
		Timestamp: now,
	})

	var created []*Alert
	if severity == SeverityHigh || severity == SeverityCritical {
		alertType := AlertError
		if severity == SeverityCritical {
			alertType = AlertCrash
		}
		created = append(created, m.newAlertLocked(installationID, alertType, severity,
			fmt.Sprintf("plugin error in %s: %s", operation, message),
			map[string]interface{}{"operation": operation}))
	}
	m.mu.Unlock()

	if m.obs != nil {
		m.obs.PluginErrorsTotal.WithLabelValues(string(severity)).Inc()
	}
	m.publishAlerts(created)
}

// UpdateResourceUsage ingests resource gauges from the sandbox and evaluates
// the memory and CPU thresholds immediately.
func (m *Monitor) UpdateResourceUsage(installationID string, memoryBytes int64, cpuFraction float64) {
	m.mu.Lock()
	rec := m.recordFor(installationID)
	rec.memoryBytes = memoryBytes
	rec.cpuFraction = cpuFraction

	var created []*Alert
	if memoryBytes > m.cfg.MemoryThresholdBytes {
		created = append(created, m.newAlertLocked(installationID, AlertMemory, SeverityHigh,
			fmt.Sprintf("memory use %dMB exceeds %dMB", memoryBytes/(1024*1024), m.cfg.MemoryThresholdBytes/(1024*1024)),
			map[string]interface{}{"memory_bytes": memoryBytes}))
	}
	if cpuFraction > m.cfg.CPUThreshold {
		created = append(created, m.newAlertLocked(installationID, AlertPerformance, SeverityMedium,
			fmt.Sprintf("cpu use %.0f%% exceeds %.0f%%", cpuFraction*100, m.cfg.CPUThreshold*100),
			map[string]interface{}{"cpu_fraction": cpuFraction}))
	}
	m.mu.Unlock()

	m.publishAlerts(created)
}

// GetMetrics returns a copy of the metrics for one installation.
func (m *Monitor) GetMetrics(installationID string) (PluginMetrics, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[installationID]
	if !ok {
		return PluginMetrics{}, false
	}
	return rec.snapshot(), true
}

// GetAllMetrics returns a copy of every tracked installation's metrics.
func (m *Monitor) GetAllMetrics() []PluginMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]PluginMetrics, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstallationID < out[j].InstallationID })
	return out
}

// GetHealthCheck returns the result of the most recent health sweep for one
// installation. Installations never swept yet have no health check.
func (m *Monitor) GetHealthCheck(installationID string) (HealthCheck, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hc, ok := m.checks[installationID]
	if !ok {
		return HealthCheck{}, false
	}
	return *hc, true
}

// GetActiveAlerts returns unresolved alerts, optionally filtered to one
// installation (empty id means all), oldest first.
func (m *Monitor) GetActiveAlerts(installationID string) []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Alert, 0)
	for _, a := range m.alerts {
		if a.Resolved {
			continue
		}
		if installationID != "" && a.InstallationID != installationID {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// ResolveAlert marks an alert resolved. Resolution is terminal; resolving an
// already-resolved or unknown alert is a no-op. Returns whether the call
// transitioned the alert.
func (m *Monitor) ResolveAlert(id string) bool {
	now := m.now()

	m.mu.Lock()
	a, ok := m.alerts[id]
	if !ok || a.Resolved {
		m.mu.Unlock()
		return false
	}
	a.Resolved = true
	a.ResolvedAt = &now
	resolved := *a
	m.mu.Unlock()

	if m.obs != nil {
		m.obs.AlertsResolvedTotal.Inc()
		m.obs.AlertsActive.Dec()
	}
	if m.bus != nil {
		m.bus.Publish(events.TopicAlertResolved, resolved)
	}
	m.log.WithFields(logrus.Fields{
		"alert_id":        resolved.ID,
		"installation_id": resolved.InstallationID,
	}).Info("alert resolved")
	return true
}

// GetSystemHealthSummary aggregates health status and active alert counts
// across all installations.
func (m *Monitor) GetSystemHealthSummary() SystemHealthSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := SystemHealthSummary{
		TotalInstallations: len(m.records),
		StatusCounts:       make(map[HealthStatus]int),
		SeverityCounts:     make(map[Severity]int),
	}
	for _, hc := range m.checks {
		summary.StatusCounts[hc.Status]++
	}
	for _, a := range m.alerts {
		if a.Resolved {
			continue
		}
		summary.ActiveAlerts++
		summary.SeverityCounts[a.Severity]++
	}
	return summary
}

// recordFor lazily creates the record for an installation. Caller holds mu.
func (m *Monitor) recordFor(installationID string) *installationRecord {
	rec, ok := m.records[installationID]
	if !ok {
		rec = &installationRecord{
			installationID: installationID,
			createdAt:      m.now(),
			perf:           newRing[PerformanceSample](m.cfg.PerformanceSampleCap),
			errs:           newRing[ErrorSample](m.cfg.ErrorSampleCap),
		}
		m.records[installationID] = rec
	}
	return rec
}

// newAlertLocked creates and stores an alert. Caller holds mu; publication
// happens after the lock is released.
func (m *Monitor) newAlertLocked(installationID string, t AlertType, sev Severity, message string, data map[string]interface{}) *Alert {
	a := &Alert{
		ID:             uuid.NewString(),
		InstallationID: installationID,
		Type:           t,
		Severity:       sev,
		Message:        message,
		Data:           data,
		Timestamp:      m.now(),
	}
	m.alerts[a.ID] = a
	return a
}

func (m *Monitor) publishAlerts(created []*Alert) {
	for _, a := range created {
		if m.obs != nil {
			m.obs.AlertsCreatedTotal.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
			m.obs.AlertsActive.Inc()
		}
		m.log.WithFields(logrus.Fields{
			"alert_id":        a.ID,
			"installation_id": a.InstallationID,
			"type":            a.Type,
			"severity":        a.Severity,
		}).Warn(a.Message)
		if m.bus != nil {
			m.bus.Publish(events.TopicAlert, *a)
		}
	}
}

func (r *installationRecord) snapshot() PluginMetrics {
	return PluginMetrics{
		InstallationID:        r.installationID,
		TotalInvocations:      r.totalInvocations,
		SuccessfulInvocations: r.successfulInvocations,
		FailedInvocations:     r.failedInvocations,
		AvgResponseTimeMs:     r.avgResponseTimeMs,
		ErrorRate:             r.errorRate,
		MemoryBytes:           r.memoryBytes,
		CPUFraction:           r.cpuFraction,
		LastActivity:          r.lastActivity,
		PerformanceSamples:    r.perf.snapshot(),
		ErrorSamples:          r.errs.snapshot(),
	}
}
