package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velomail/pluginkit/pkg/manifest"
)

func dep(id, rng string) manifest.Dependency {
	return manifest.Dependency{PluginID: id, VersionRange: rng}
}

func optDep(id, rng string) manifest.Dependency {
	return manifest.Dependency{PluginID: id, VersionRange: rng, Optional: true}
}

func TestResolveChainOrder(t *testing.T) {
	// A -> B -> C must install as C, B, A.
	available := []Candidate{
		{ID: "a", Version: "1.0.0", Dependencies: []manifest.Dependency{dep("b", "^1.0.0")}},
		{ID: "b", Version: "1.1.0", Dependencies: []manifest.Dependency{dep("c", "^2.0.0")}},
		{ID: "c", Version: "2.3.0"},
	}

	result := New(nil).Resolve(context.Background(), []manifest.Dependency{dep("a", "^1.0.0")}, available)

	assert.True(t, result.Resolvable)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.Missing)
	assert.Equal(t, []string{"c", "b", "a"}, result.ResolutionOrder)
}

func TestResolveCycleTerminates(t *testing.T) {
	available := []Candidate{
		{ID: "a", Version: "1.0.0", Dependencies: []manifest.Dependency{dep("b", "^1.0.0")}},
		{ID: "b", Version: "1.0.0", Dependencies: []manifest.Dependency{dep("a", "^1.0.0")}},
	}

	result := New(nil).Resolve(context.Background(), []manifest.Dependency{dep("a", "^1.0.0")}, available)

	assert.False(t, result.Resolvable)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "a", result.Conflicts[0].PluginID)
	assert.Equal(t, "circular dependency", result.Conflicts[0].Requirement)
	assert.Equal(t, "b", result.Conflicts[0].RequiredBy)
	assert.Empty(t, result.ResolutionOrder)
}

func TestResolveMissing(t *testing.T) {
	available := []Candidate{
		{ID: "a", Version: "1.0.0", Dependencies: []manifest.Dependency{dep("ghost", "^1.0.0")}},
	}

	result := New(nil).Resolve(context.Background(), []manifest.Dependency{dep("a", "^1.0.0")}, available)

	assert.False(t, result.Resolvable)
	assert.Equal(t, []string{"ghost"}, result.Missing)
	// a itself cannot resolve while its dependency is missing.
	assert.NotContains(t, result.ResolutionOrder, "a")
}

func TestResolveVersionConflict(t *testing.T) {
	available := []Candidate{
		{ID: "a", Version: "1.0.0", Dependencies: []manifest.Dependency{dep("shared", "^1.0.0")}},
		{ID: "shared", Version: "2.0.0"},
	}

	result := New(nil).Resolve(context.Background(), []manifest.Dependency{dep("a", "^1.0.0")}, available)

	assert.False(t, result.Resolvable)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "shared", result.Conflicts[0].PluginID)
	assert.Equal(t, "2.0.0", result.Conflicts[0].Version)
	assert.Equal(t, "^1.0.0", result.Conflicts[0].Requirement)
	assert.Equal(t, "a", result.Conflicts[0].RequiredBy)
}

func TestResolveRangesAccumulateAcrossBranches(t *testing.T) {
	// Both a and b require "shared"; the candidate must satisfy every range
	// ever recorded, so b's tighter requirement conflicts even though shared
	// already resolved for a.
	available := []Candidate{
		{ID: "a", Version: "1.0.0", Dependencies: []manifest.Dependency{dep("shared", "^1.0.0")}},
		{ID: "b", Version: "1.0.0", Dependencies: []manifest.Dependency{dep("shared", "~1.5.0")}},
		{ID: "shared", Version: "1.2.0"},
	}

	result := New(nil).Resolve(context.Background(), []manifest.Dependency{
		dep("a", "^1.0.0"),
		dep("b", "^1.0.0"),
	}, available)

	assert.False(t, result.Resolvable)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "shared", result.Conflicts[0].PluginID)
	assert.Equal(t, "~1.5.0", result.Conflicts[0].Requirement)
	// a resolved before the conflicting branch was discovered.
	assert.Contains(t, result.ResolutionOrder, "a")
	assert.NotContains(t, result.ResolutionOrder, "b")
}

func TestResolveDiamondSharedDependency(t *testing.T) {
	// a -> shared, b -> shared with compatible ranges: shared appears once,
	// before both dependents.
	available := []Candidate{
		{ID: "a", Version: "1.0.0", Dependencies: []manifest.Dependency{dep("shared", "^1.0.0")}},
		{ID: "b", Version: "1.0.0", Dependencies: []manifest.Dependency{dep("shared", ">=1.1.0")}},
		{ID: "shared", Version: "1.2.0"},
	}

	result := New(nil).Resolve(context.Background(), []manifest.Dependency{
		dep("a", "^1.0.0"),
		dep("b", "^1.0.0"),
	}, available)

	assert.True(t, result.Resolvable)
	assert.Equal(t, []string{"shared", "a", "b"}, result.ResolutionOrder)
}

func TestResolveOptionalDependencies(t *testing.T) {
	t.Run("missing optional direct dep is skipped", func(t *testing.T) {
		result := New(nil).Resolve(context.Background(),
			[]manifest.Dependency{optDep("ghost", "^1.0.0")},
			nil)

		assert.True(t, result.Resolvable)
		assert.Empty(t, result.Missing)
		assert.Empty(t, result.ResolutionOrder)
	})

	t.Run("missing optional transitive dep does not fail dependent", func(t *testing.T) {
		available := []Candidate{
			{ID: "a", Version: "1.0.0", Dependencies: []manifest.Dependency{optDep("ghost", "^1.0.0")}},
		}

		result := New(nil).Resolve(context.Background(),
			[]manifest.Dependency{dep("a", "^1.0.0")}, available)

		assert.True(t, result.Resolvable)
		assert.Equal(t, []string{"a"}, result.ResolutionOrder)
	})
}

func TestResolveDirectMissing(t *testing.T) {
	result := New(nil).Resolve(context.Background(),
		[]manifest.Dependency{dep("ghost", "^1.0.0")}, nil)

	assert.False(t, result.Resolvable)
	assert.Equal(t, []string{"ghost"}, result.Missing)
}

func TestResolveEmptyInput(t *testing.T) {
	result := New(nil).Resolve(context.Background(), nil, nil)

	assert.True(t, result.Resolvable)
	assert.Empty(t, result.ResolutionOrder)
}

func TestResolveSelfCycle(t *testing.T) {
	available := []Candidate{
		{ID: "a", Version: "1.0.0", Dependencies: []manifest.Dependency{dep("a", "^1.0.0")}},
	}

	result := New(nil).Resolve(context.Background(),
		[]manifest.Dependency{dep("a", "^1.0.0")}, available)

	assert.False(t, result.Resolvable)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "circular dependency", result.Conflicts[0].Requirement)
}

func TestResolveDeepGraph(t *testing.T) {
	// d <- c <- b <- a with an extra edge a -> d.
	available := []Candidate{
		{ID: "a", Version: "1.0.0", Dependencies: []manifest.Dependency{dep("b", "^1.0.0"), dep("d", "^1.0.0")}},
		{ID: "b", Version: "1.0.0", Dependencies: []manifest.Dependency{dep("c", "^1.0.0")}},
		{ID: "c", Version: "1.0.0", Dependencies: []manifest.Dependency{dep("d", "^1.0.0")}},
		{ID: "d", Version: "1.4.2"},
	}

	result := New(nil).Resolve(context.Background(),
		[]manifest.Dependency{dep("a", "^1.0.0")}, available)

	require.True(t, result.Resolvable)
	assert.Equal(t, []string{"d", "c", "b", "a"}, result.ResolutionOrder)
}
