// Package registry maintains the plugin catalog.
//
// The catalog merges two worlds: plugins installed locally under the
// plugin root, and entries published by remote registries. Local entries
// always win when both know the same plugin ID, so a user's installed
// version is what the rest of the system sees. Remote responses are
// cached with a TTL and each source is fetched on its own timeout, so one
// unreachable registry degrades the catalog instead of breaking it.
//
// Refreshes are shared across concurrent callers and can be triggered by
// a schedule, by the HTTP API, or by filesystem changes under the plugin
// root.
package registry
