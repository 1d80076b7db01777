// Package config loads plugin subsystem configuration from environment
// variables, with typed helpers and validation at startup.
package config
