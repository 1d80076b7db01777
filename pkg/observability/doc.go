// Package observability provides the Prometheus metric set and structured
// logger construction for the plugin subsystem.
package observability
