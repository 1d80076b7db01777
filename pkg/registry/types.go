package registry

import (
	"time"

	"github.com/velomail/pluginkit/pkg/manifest"
)

// SourceLocal marks entries discovered under the plugin root. Remote
// entries carry their registry URL instead.
const SourceLocal = "local"

// PackageDescriptor locates and authenticates a plugin package.
type PackageDescriptor struct {
	SourceURL string `json:"source_url"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// RegistryEntry is one catalog record: the validated manifest plus package
// and registry metadata. Entries are owned exclusively by the Registry;
// callers receive copies.
type RegistryEntry struct {
	Manifest manifest.Manifest `json:"manifest"`
	Package  PackageDescriptor `json:"package"`

	Verified      bool      `json:"verified"`
	Featured      bool      `json:"featured"`
	Rating        float64   `json:"rating"`
	DownloadCount int64     `json:"download_count"`
	Price         float64   `json:"price"`
	PublishedAt   time.Time `json:"published_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Source is SourceLocal or the remote registry URL the entry came from.
	Source string `json:"source"`
}

// Filter is the conjunction of search predicates; zero values match
// everything.
type Filter struct {
	Category     string   `json:"category,omitempty"`
	Type         string   `json:"type,omitempty"`
	Platform     string   `json:"platform,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Query        string   `json:"query,omitempty"`
	VerifiedOnly bool     `json:"verified_only,omitempty"`
	FreeOnly     bool     `json:"free_only,omitempty"`
	MinRating    float64  `json:"min_rating,omitempty"`
}

// TagCount is one tag facet bucket.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Facets aggregates the full unfiltered candidate set by category, type,
// and tag, so a UI can show "if you removed this filter" totals.
type Facets struct {
	Categories map[string]int `json:"categories"`
	Types      map[string]int `json:"types"`
	Tags       []TagCount     `json:"tags"`
}

// SearchResult is a page of the filtered, sorted catalog plus facets.
type SearchResult struct {
	Plugins    []RegistryEntry `json:"plugins"`
	TotalCount int             `json:"total_count"`
	Facets     Facets          `json:"facets"`
}

// Statistics summarizes the merged catalog.
type Statistics struct {
	TotalPlugins   int            `json:"total_plugins"`
	LocalPlugins   int            `json:"local_plugins"`
	VerifiedCount  int            `json:"verified_count"`
	FeaturedCount  int            `json:"featured_count"`
	TotalDownloads int64          `json:"total_downloads"`
	ByCategory     map[string]int `json:"by_category"`
	ByType         map[string]int `json:"by_type"`
}
