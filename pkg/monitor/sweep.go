package monitor

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Fixed score penalties applied by the health sweep.
const (
	penaltyErrorRate    = 30
	penaltyResponseTime = 20
	penaltyMemory       = 20
	penaltyCPU          = 20
	penaltyIdle         = 10
)

// runHealthSweep recomputes every installation's health check from scratch.
// The previous check is replaced wholesale; there is no incremental
// patching and no hysteresis between sweeps. Installations whose status
// lands in unhealthy or critical raise a fresh alert on every breaching
// sweep; alerts are not deduplicated against open ones.
func (m *Monitor) runHealthSweep() {
	start := m.now()

	m.mu.Lock()
	var created []*Alert
	type scored struct {
		id    string
		score int
	}
	scores := make([]scored, 0, len(m.records))

	for id, rec := range m.records {
		score := 100
		var issues, recommendations []string

		if rec.errorRate > m.cfg.ErrorRateThreshold {
			score -= penaltyErrorRate
			issues = append(issues, fmt.Sprintf("error rate %.1f%% exceeds %.1f%%",
				rec.errorRate*100, m.cfg.ErrorRateThreshold*100))
			recommendations = append(recommendations, "inspect recent error samples and consider disabling the plugin")
		}
		if rec.avgResponseTimeMs > m.cfg.ResponseTimeThresholdMs {
			score -= penaltyResponseTime
			issues = append(issues, fmt.Sprintf("average response time %.0fms exceeds %.0fms",
				rec.avgResponseTimeMs, m.cfg.ResponseTimeThresholdMs))
			recommendations = append(recommendations, "profile slow operations or raise the plugin's latency budget")
		}
		if rec.memoryBytes > m.cfg.MemoryThresholdBytes {
			score -= penaltyMemory
			issues = append(issues, fmt.Sprintf("memory use %dMB exceeds %dMB",
				rec.memoryBytes/(1024*1024), m.cfg.MemoryThresholdBytes/(1024*1024)))
			recommendations = append(recommendations, "check the plugin for leaks or reduce its working set")
		}
		if rec.cpuFraction > m.cfg.CPUThreshold {
			score -= penaltyCPU
			issues = append(issues, fmt.Sprintf("cpu use %.0f%% exceeds %.0f%%",
				rec.cpuFraction*100, m.cfg.CPUThreshold*100))
			recommendations = append(recommendations, "throttle the plugin's background work")
		}
		// Records that never logged an invocation or error count as idle
		// since their creation.
		lastActive := rec.lastActivity
		if lastActive.IsZero() {
			lastActive = rec.createdAt
		}
		if start.Sub(lastActive) > m.cfg.IdleThreshold {
			score -= penaltyIdle
			issues = append(issues, fmt.Sprintf("no activity for %s", start.Sub(lastActive).Round(time.Minute)))
			recommendations = append(recommendations, "verify the plugin is still wired to its triggers")
		}
		if score < 0 {
			score = 0
		}

		status := statusForScore(score)
		m.checks[id] = &HealthCheck{
			InstallationID:  id,
			Status:          status,
			Score:           score,
			Issues:          issues,
			Recommendations: recommendations,
			LastCheck:       start,
		}
		scores = append(scores, scored{id: id, score: score})

		switch status {
		case StatusUnhealthy:
			created = append(created, m.newAlertLocked(id, AlertPerformance, SeverityHigh,
				fmt.Sprintf("installation unhealthy: health score %d", score),
				map[string]interface{}{"score": score, "issues": issues}))
		case StatusCritical:
			created = append(created, m.newAlertLocked(id, AlertPerformance, SeverityCritical,
				fmt.Sprintf("installation critical: health score %d", score),
				map[string]interface{}{"score": score, "issues": issues}))
		}
	}
	m.mu.Unlock()

	if m.obs != nil {
		for _, s := range scores {
			m.obs.HealthScore.WithLabelValues(s.id).Set(float64(s.score))
		}
		m.obs.HealthSweepsTotal.Inc()
		m.obs.HealthSweepDuration.Observe(m.now().Sub(start).Seconds())
	}
	m.publishAlerts(created)
}

// runRetentionSweep deletes alerts older than the retention window.
// Resolution state does not matter: stale open alerts age out too.
func (m *Monitor) runRetentionSweep() {
	cutoff := m.now().Add(-m.cfg.AlertRetention)

	m.mu.Lock()
	removed, removedActive := 0, 0
	for id, a := range m.alerts {
		if a.Timestamp.Before(cutoff) {
			if !a.Resolved {
				removedActive++
			}
			delete(m.alerts, id)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 {
		if m.obs != nil {
			m.obs.AlertsActive.Sub(float64(removedActive))
		}
		m.log.WithFields(logrus.Fields{
			"removed": removed,
			"cutoff":  cutoff,
		}).Debug("alert retention sweep completed")
	}
}
