// Package resolver resolves plugin dependency graphs before installation.
//
// # Overview
//
// Resolution consumes an in-memory catalog snapshot supplied by the caller
// and produces structured data: a post-order install sequence when the graph
// is satisfiable, and otherwise the precise list of missing plugins and
// version conflicts. Nothing in this package performs I/O or throws; a
// failed resolution is a value, and the caller decides what to do with it.
//
// # Usage Example
//
//	res := resolver.New(log)
//	result := res.Resolve(ctx, manifest.Dependencies, registry.ResolverSnapshot())
//	if !result.Resolvable {
//		// surface result.Missing / result.Conflicts to the user
//	}
//	for _, id := range result.ResolutionOrder {
//		// install dependencies before dependents
//	}
//
// # Related Packages
//
//   - pkg/version: range matching and version comparison
//   - pkg/registry: catalog snapshots
package resolver
