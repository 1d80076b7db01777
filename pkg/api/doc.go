// Package api exposes the plugin subsystem over HTTP: catalog search and
// lookup, dependency resolution, compatibility checks, and health
// monitoring ingestion and queries. All endpoints speak JSON under
// /api/v1.
package api
