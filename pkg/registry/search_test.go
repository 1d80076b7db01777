package registry

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velomail/pluginkit/pkg/manifest"
)

func searchRegistry(t *testing.T, entries ...RegistryEntry) *Registry {
	t.Helper()
	src := &fakeSource{url: "https://registry.example.com", entries: entries}
	r := New(Config{}, nil, []RemoteSource{src}, nil, nil, testLogger())
	require.NoError(t, r.Refresh(context.Background()))
	return r
}

func catalogEntry(id string, mutate func(*RegistryEntry)) RegistryEntry {
	e := RegistryEntry{
		Manifest: manifest.Manifest{
			ID:       id,
			Name:     id,
			Version:  "1.0.0",
			Category: manifest.CategoryUtilities,
			Type:     manifest.TypePanel,
		},
	}
	if mutate != nil {
		mutate(&e)
	}
	return e
}

func TestSearchFiltersAreConjunctive(t *testing.T) {
	r := searchRegistry(t,
		catalogEntry("match", func(e *RegistryEntry) {
			e.Manifest.Category = manifest.CategoryProductivity
			e.Manifest.Type = manifest.TypeSidebar
			e.Manifest.Tags = []string{"email", "tracking"}
			e.Verified = true
			e.Rating = 4.5
		}),
		catalogEntry("wrong-category", func(e *RegistryEntry) {
			e.Manifest.Type = manifest.TypeSidebar
			e.Manifest.Tags = []string{"email", "tracking"}
			e.Verified = true
			e.Rating = 4.5
		}),
		catalogEntry("unverified", func(e *RegistryEntry) {
			e.Manifest.Category = manifest.CategoryProductivity
			e.Manifest.Type = manifest.TypeSidebar
			e.Manifest.Tags = []string{"email", "tracking"}
			e.Rating = 4.5
		}),
		catalogEntry("low-rated", func(e *RegistryEntry) {
			e.Manifest.Category = manifest.CategoryProductivity
			e.Manifest.Type = manifest.TypeSidebar
			e.Manifest.Tags = []string{"email", "tracking"}
			e.Verified = true
			e.Rating = 2.0
		}),
	)

	res := r.SearchPlugins(context.Background(), Filter{
		Category:     manifest.CategoryProductivity,
		Type:         manifest.TypeSidebar,
		Tags:         []string{"email", "tracking"},
		VerifiedOnly: true,
		MinRating:    4.0,
	}, 10, 0)

	require.Equal(t, 1, res.TotalCount)
	assert.Equal(t, "match", res.Plugins[0].Manifest.ID)
}

func TestSearchQueryIsCaseInsensitive(t *testing.T) {
	r := searchRegistry(t,
		catalogEntry("by-name", func(e *RegistryEntry) { e.Manifest.Name = "Mail Tracker Pro" }),
		catalogEntry("by-description", func(e *RegistryEntry) { e.Manifest.Description = "tracks your MAIL opens" }),
		catalogEntry("by-author", func(e *RegistryEntry) { e.Manifest.Author = "mailtools gmbh" }),
		catalogEntry("by-tag", func(e *RegistryEntry) { e.Manifest.Tags = []string{"Mail"} }),
		catalogEntry("unrelated", func(e *RegistryEntry) { e.Manifest.Name = "Calendar Sync" }),
	)

	res := r.SearchPlugins(context.Background(), Filter{Query: "mail"}, 10, 0)
	assert.Equal(t, 4, res.TotalCount)
}

func TestSearchPlatformMembership(t *testing.T) {
	r := searchRegistry(t,
		catalogEntry("linux-only", func(e *RegistryEntry) { e.Manifest.Platforms = []string{"linux"} }),
		catalogEntry("everywhere", nil),
		catalogEntry("mac-only", func(e *RegistryEntry) { e.Manifest.Platforms = []string{"darwin"} }),
	)

	res := r.SearchPlugins(context.Background(), Filter{Platform: "linux"}, 10, 0)
	require.Equal(t, 2, res.TotalCount)
	ids := []string{res.Plugins[0].Manifest.ID, res.Plugins[1].Manifest.ID}
	assert.ElementsMatch(t, []string{"linux-only", "everywhere"}, ids)
}

func TestSearchFreeOnly(t *testing.T) {
	r := searchRegistry(t,
		catalogEntry("free", nil),
		catalogEntry("paid", func(e *RegistryEntry) { e.Price = 4.99 }),
	)

	res := r.SearchPlugins(context.Background(), Filter{FreeOnly: true}, 10, 0)
	require.Equal(t, 1, res.TotalCount)
	assert.Equal(t, "free", res.Plugins[0].Manifest.ID)
}

func TestSearchSortOrder(t *testing.T) {
	r := searchRegistry(t,
		catalogEntry("unverified-high", func(e *RegistryEntry) { e.Rating = 5.0; e.DownloadCount = 1000 }),
		catalogEntry("verified-low", func(e *RegistryEntry) { e.Verified = true; e.Rating = 3.0 }),
		catalogEntry("verified-high", func(e *RegistryEntry) { e.Verified = true; e.Rating = 4.0; e.DownloadCount = 10 }),
		catalogEntry("verified-high-popular", func(e *RegistryEntry) { e.Verified = true; e.Rating = 4.0; e.DownloadCount = 500 }),
	)

	res := r.SearchPlugins(context.Background(), Filter{}, 10, 0)
	require.Equal(t, 4, res.TotalCount)

	order := make([]string, 0, len(res.Plugins))
	for _, p := range res.Plugins {
		order = append(order, p.Manifest.ID)
	}
	assert.Equal(t, []string{"verified-high-popular", "verified-high", "verified-low", "unverified-high"}, order)
}

func TestSearchPagination(t *testing.T) {
	entries := make([]RegistryEntry, 0, 7)
	for i := 0; i < 7; i++ {
		entries = append(entries, catalogEntry(fmt.Sprintf("plugin-%d", i), nil))
	}
	r := searchRegistry(t, entries...)

	page1 := r.SearchPlugins(context.Background(), Filter{}, 3, 0)
	page2 := r.SearchPlugins(context.Background(), Filter{}, 3, 3)
	page3 := r.SearchPlugins(context.Background(), Filter{}, 3, 6)
	beyond := r.SearchPlugins(context.Background(), Filter{}, 3, 100)

	assert.Equal(t, 7, page1.TotalCount)
	assert.Len(t, page1.Plugins, 3)
	assert.Len(t, page2.Plugins, 3)
	assert.Len(t, page3.Plugins, 1)
	assert.Empty(t, beyond.Plugins)
	assert.Equal(t, 7, beyond.TotalCount)

	seen := map[string]bool{}
	for _, page := range [][]RegistryEntry{page1.Plugins, page2.Plugins, page3.Plugins} {
		for _, p := range page {
			assert.False(t, seen[p.Manifest.ID], "entry %s appeared twice", p.Manifest.ID)
			seen[p.Manifest.ID] = true
		}
	}
	assert.Len(t, seen, 7)
}

func TestSearchFacetsCoverWholeCatalog(t *testing.T) {
	r := searchRegistry(t,
		catalogEntry("a", func(e *RegistryEntry) {
			e.Manifest.Category = manifest.CategoryProductivity
			e.Manifest.Tags = []string{"email"}
		}),
		catalogEntry("b", func(e *RegistryEntry) {
			e.Manifest.Category = manifest.CategorySecurity
			e.Manifest.Type = manifest.TypeBackground
			e.Manifest.Tags = []string{"email", "spam"}
		}),
		catalogEntry("c", func(e *RegistryEntry) {
			e.Manifest.Category = manifest.CategorySecurity
			e.Manifest.Tags = []string{"Spam"}
		}),
	)

	// a narrow filter must not shrink the facets
	res := r.SearchPlugins(context.Background(), Filter{Category: manifest.CategoryProductivity}, 10, 0)
	require.Equal(t, 1, res.TotalCount)

	assert.Equal(t, 1, res.Facets.Categories[manifest.CategoryProductivity])
	assert.Equal(t, 2, res.Facets.Categories[manifest.CategorySecurity])
	assert.Equal(t, 2, res.Facets.Types[manifest.TypePanel])
	assert.Equal(t, 1, res.Facets.Types[manifest.TypeBackground])

	require.Len(t, res.Facets.Tags, 2)
	assert.Equal(t, TagCount{Tag: "email", Count: 2}, res.Facets.Tags[0])
	assert.Equal(t, TagCount{Tag: "spam", Count: 2}, res.Facets.Tags[1])
}

func TestSearchTagFacetsCapped(t *testing.T) {
	entries := make([]RegistryEntry, 0, 30)
	for i := 0; i < 30; i++ {
		tag := fmt.Sprintf("tag-%02d", i)
		entries = append(entries, catalogEntry(fmt.Sprintf("plugin-%02d", i), func(e *RegistryEntry) {
			e.Manifest.Tags = []string{tag}
		}))
	}
	r := searchRegistry(t, entries...)

	res := r.SearchPlugins(context.Background(), Filter{}, 10, 0)
	assert.Len(t, res.Facets.Tags, maxTagFacets)
}
