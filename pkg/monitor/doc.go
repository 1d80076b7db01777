// Package monitor tracks the health of running plugin installations.
//
// # Overview
//
// The execution bridge feeds the monitor a telemetry tuple per plugin call
// (RecordInvocation / RecordError / UpdateResourceUsage). The monitor keeps
// per-installation counters, a moving-average response time, and two bounded
// ring buffers of recent samples. Two periodic sweeps run in the background:
// a health sweep that recomputes each installation's 0-100 score and status
// band from scratch, and a retention sweep that deletes alerts older than
// the retention window.
//
// Ingestion stays O(1) and performs no I/O because the invocation caller
// blocks on it. All state is in memory and rebuilt fresh each process run.
//
// # Alert lifecycle
//
// created (resolved=false) -> resolved (resolved=true, terminal). Every
// breaching sweep creates a new alert; nothing coalesces repeats for the
// same condition, so consumers must tolerate duplicates.
//
// # Related Packages
//
//   - pkg/events: alert / alertResolved publications
//   - pkg/observability: exported Prometheus metrics
package monitor
