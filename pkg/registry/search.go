package registry

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultSearchLimit = 50
	maxTagFacets       = 20
)

// SearchPlugins filters, sorts, and paginates the catalog. Facets are
// always computed over the full catalog, not the filtered subset, so the
// UI can show how many plugins each category or tag would match.
func (r *Registry) SearchPlugins(ctx context.Context, filter Filter, limit, offset int) SearchResult {
	_, span := tracer.Start(ctx, "registry.SearchPlugins")
	defer span.End()

	if r.obs != nil {
		r.obs.SearchesTotal.Inc()
	}

	r.mu.RLock()
	all := make([]RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e)
	}
	r.mu.RUnlock()

	facets := computeFacets(all)

	matched := make([]RegistryEntry, 0, len(all))
	for _, e := range all {
		if matchesFilter(e, filter) {
			matched = append(matched, e)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Verified != b.Verified {
			return a.Verified
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if a.DownloadCount != b.DownloadCount {
			return a.DownloadCount > b.DownloadCount
		}
		return a.Manifest.ID < b.Manifest.ID
	})

	total := len(matched)
	span.SetAttributes(
		attribute.String("search.query", filter.Query),
		attribute.Int("search.matches", total),
	)

	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return SearchResult{
		Plugins:    matched[offset:end],
		TotalCount: total,
		Facets:     facets,
	}
}

func matchesFilter(e RegistryEntry, f Filter) bool {
	m := e.Manifest
	if f.Category != "" && m.Category != f.Category {
		return false
	}
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	// an empty platform list means the plugin runs everywhere
	if f.Platform != "" && len(m.Platforms) > 0 && !containsFold(m.Platforms, f.Platform) {
		return false
	}
	for _, tag := range f.Tags {
		if !containsFold(m.Tags, tag) {
			return false
		}
	}
	if f.VerifiedOnly && !e.Verified {
		return false
	}
	if f.FreeOnly && e.Price > 0 {
		return false
	}
	if f.MinRating > 0 && e.Rating < f.MinRating {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(m.Name), q) &&
			!strings.Contains(strings.ToLower(m.Description), q) &&
			!strings.Contains(strings.ToLower(m.Author), q) &&
			!anyContainsFold(m.Tags, q) {
			return false
		}
	}
	return true
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func anyContainsFold(list []string, lowered string) bool {
	for _, v := range list {
		if strings.Contains(strings.ToLower(v), lowered) {
			return true
		}
	}
	return false
}

func computeFacets(all []RegistryEntry) Facets {
	facets := Facets{
		Categories: make(map[string]int),
		Types:      make(map[string]int),
	}
	tagCounts := make(map[string]int)
	for _, e := range all {
		facets.Categories[e.Manifest.Category]++
		facets.Types[e.Manifest.Type]++
		for _, tag := range e.Manifest.Tags {
			tagCounts[strings.ToLower(tag)]++
		}
	}

	tags := make([]TagCount, 0, len(tagCounts))
	for tag, n := range tagCounts {
		tags = append(tags, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})
	if len(tags) > maxTagFacets {
		tags = tags[:maxTagFacets]
	}
	facets.Tags = tags
	return facets
}
