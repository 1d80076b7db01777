// Package manifest defines the plugin manifest format and its loader.
//
// A manifest (plugin.yaml) declares a plugin's identity, version, category,
// supported platforms, tags, and dependency ranges. Manifests are validated
// once at load time with a complete structured error list and are immutable
// afterwards; downstream code never re-validates them.
package manifest
