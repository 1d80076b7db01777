package resolver

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/velomail/pluginkit/pkg/manifest"
	"github.com/velomail/pluginkit/pkg/version"
)

var tracer = otel.Tracer("pluginkit/resolver")

// Candidate is one entry of the catalog snapshot supplied by the caller:
// the single installable version of a plugin plus its declared dependencies.
type Candidate struct {
	ID           string                `json:"id"`
	Version      string                `json:"version"`
	Dependencies []manifest.Dependency `json:"dependencies,omitempty"`
}

// Conflict records a version requirement the available candidate cannot
// satisfy, or a dependency cycle.
type Conflict struct {
	PluginID    string `json:"plugin_id"`
	Version     string `json:"version,omitempty"`
	Requirement string `json:"requirement"`
	RequiredBy  string `json:"required_by"`
}

// Result is the structured outcome of a resolution run. Failures are data,
// not errors: the caller decides whether to proceed.
type Result struct {
	Resolvable      bool       `json:"resolvable"`
	Conflicts       []Conflict `json:"conflicts"`
	Missing         []string   `json:"missing"`
	ResolutionOrder []string   `json:"resolution_order"`
}

// Resolver resolves plugin dependency graphs against a catalog snapshot.
// It is pure and synchronous: no I/O, no shared state, safe to call from
// any goroutine.
type Resolver struct {
	log *logrus.Logger
}

// New creates a resolver.
func New(log *logrus.Logger) *Resolver {
	if log == nil {
		log = logrus.New()
	}
	return &Resolver{log: log}
}

const requirementCycle = "circular dependency"

// Resolve resolves direct against the supplied catalog snapshot.
//
// Version ranges accumulate per plugin id from every requirement source
// discovered (the direct dependencies plus, transitively, each resolved
// plugin's non-optional dependencies); a candidate must satisfy every range
// ever recorded for its id. Traversal is an iterative depth-first walk with
// an explicit stack and resolved/resolving sets; revisiting an id that is
// still in resolving means a cycle, which fails resolution without
// recursing further. A plugin is appended to ResolutionOrder only after all
// of its own non-optional dependencies resolved, so dependencies always
// precede their dependents.
func (r *Resolver) Resolve(ctx context.Context, direct []manifest.Dependency, available []Candidate) Result {
	_, span := tracer.Start(ctx, "Resolve")
	defer span.End()
	span.SetAttributes(
		attribute.Int("direct_dependencies", len(direct)),
		attribute.Int("available_plugins", len(available)),
	)

	catalog := make(map[string]Candidate, len(available))
	for _, c := range available {
		catalog[c.ID] = c
	}

	requirements := make(map[string][]string)
	addRequirement := func(id, rng string) {
		for _, existing := range requirements[id] {
			if existing == rng {
				return
			}
		}
		requirements[id] = append(requirements[id], rng)
	}

	// firstViolated returns the first recorded range ver does not satisfy.
	firstViolated := func(id, ver string) (string, bool) {
		for _, rng := range requirements[id] {
			if !version.Satisfies(ver, rng) {
				return rng, false
			}
		}
		return "", true
	}

	resolved := make(map[string]bool)
	resolving := make(map[string]bool)
	failed := make(map[string]bool)
	missingSeen := make(map[string]bool)

	var (
		order     []string
		missing   []string
		conflicts []Conflict
	)

	type frame struct {
		id   string
		deps []manifest.Dependency
		next int
		ok   bool
	}

	// enter inspects id before descending into it. It returns the frame to
	// push, or nil plus whether id already counts as resolved.
	enter := func(id, requiredBy string) (*frame, bool) {
		if resolving[id] {
			r.log.WithFields(logrus.Fields{
				"plugin_id":   id,
				"required_by": requiredBy,
			}).Warn("circular plugin dependency detected")
			conflicts = append(conflicts, Conflict{
				PluginID:    id,
				Requirement: requirementCycle,
				RequiredBy:  requiredBy,
			})
			return nil, false
		}

		if failed[id] {
			return nil, false
		}

		if resolved[id] {
			// Another branch may have recorded new ranges since this id
			// resolved; they still apply.
			cand := catalog[id]
			if rng, ok := firstViolated(id, cand.Version); !ok {
				conflicts = append(conflicts, Conflict{
					PluginID:    id,
					Version:     cand.Version,
					Requirement: rng,
					RequiredBy:  requiredBy,
				})
				return nil, false
			}
			return nil, true
		}

		cand, ok := catalog[id]
		if !ok {
			if !missingSeen[id] {
				missingSeen[id] = true
				missing = append(missing, id)
			}
			r.log.WithFields(logrus.Fields{
				"plugin_id":   id,
				"required_by": requiredBy,
			}).Debug("required plugin not available")
			return nil, false
		}

		if rng, ok := firstViolated(id, cand.Version); !ok {
			conflicts = append(conflicts, Conflict{
				PluginID:    id,
				Version:     cand.Version,
				Requirement: rng,
				RequiredBy:  requiredBy,
			})
			failed[id] = true
			return nil, false
		}

		resolving[id] = true
		return &frame{id: id, deps: cand.Dependencies, ok: true}, true
	}

	walk := func(rootID, requiredBy string) {
		root, _ := enter(rootID, requiredBy)
		if root == nil {
			return
		}

		stack := []*frame{root}
		for len(stack) > 0 {
			f := stack[len(stack)-1]

			if f.next < len(f.deps) {
				dep := f.deps[f.next]
				f.next++

				// Optional dependencies are not requirement sources and
				// never fail their dependent.
				if dep.Optional {
					continue
				}

				addRequirement(dep.PluginID, dep.VersionRange)
				child, ok := enter(dep.PluginID, f.id)
				if child != nil {
					stack = append(stack, child)
				} else if !ok {
					f.ok = false
				}
				continue
			}

			delete(resolving, f.id)
			if f.ok {
				resolved[f.id] = true
				order = append(order, f.id)
			} else {
				failed[f.id] = true
			}

			stack = stack[:len(stack)-1]
			if len(stack) > 0 && !f.ok {
				stack[len(stack)-1].ok = false
			}
		}
	}

	for _, dep := range direct {
		if dep.Optional {
			if _, ok := catalog[dep.PluginID]; !ok {
				r.log.WithField("plugin_id", dep.PluginID).
					Debug("skipping unavailable optional dependency")
				continue
			}
		}
		addRequirement(dep.PluginID, dep.VersionRange)
		walk(dep.PluginID, "direct")
	}

	result := Result{
		Resolvable:      len(conflicts) == 0 && len(missing) == 0,
		Conflicts:       conflicts,
		Missing:         missing,
		ResolutionOrder: order,
	}
	span.SetAttributes(
		attribute.Bool("resolvable", result.Resolvable),
		attribute.Int("conflicts", len(conflicts)),
		attribute.Int("missing", len(missing)),
	)
	return result
}
