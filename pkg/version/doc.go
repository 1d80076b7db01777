// Package version provides semantic version validation, comparison, range
// matching, and host compatibility checks for the plugin subsystem.
//
// All helpers are fail-closed: malformed versions or ranges yield a safe
// default (false, 0, UpdateNone) and a logged warning instead of an error or
// panic, so a single bad version string can never abort catalog processing.
package version
