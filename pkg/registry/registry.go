package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/velomail/pluginkit/pkg/events"
	"github.com/velomail/pluginkit/pkg/manifest"
	"github.com/velomail/pluginkit/pkg/observability"
	"github.com/velomail/pluginkit/pkg/resolver"
)

var tracer = otel.Tracer("pluginkit/registry")

const remoteCacheSize = 64

// Config holds the registry construction parameters.
type Config struct {
	// PluginRoot is the directory scanned for locally installed plugins.
	PluginRoot string
	// CacheTTL bounds how long remote registry responses are reused
	// before the next refresh re-fetches them.
	CacheTTL time.Duration
}

// Registry maintains the merged plugin catalog: locally installed plugins
// discovered under PluginRoot and entries fetched from remote registries.
// Local entries always shadow remote entries with the same plugin ID.
type Registry struct {
	cfg     Config
	loader  manifest.Loader
	remotes []RemoteSource
	bus     *events.Bus
	obs     *observability.Metrics
	log     *logrus.Logger

	remoteCache *expirable.LRU[string, []RegistryEntry]
	refreshing  singleflight.Group

	mu      sync.RWMutex
	entries map[string]RegistryEntry

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool
}

// New builds a registry over the given plugin root and remote sources.
// The catalog is empty until the first Refresh.
func New(cfg Config, loader manifest.Loader, remotes []RemoteSource, bus *events.Bus, obs *observability.Metrics, log *logrus.Logger) *Registry {
	if loader == nil {
		loader = manifest.NewYAMLLoader()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Registry{
		cfg:         cfg,
		loader:      loader,
		remotes:     remotes,
		bus:         bus,
		obs:         obs,
		log:         log,
		remoteCache: expirable.NewLRU[string, []RegistryEntry](remoteCacheSize, nil, cfg.CacheTTL),
		entries:     make(map[string]RegistryEntry),
		done:        make(chan struct{}),
	}
}

// Refresh rebuilds the catalog from the plugin root and the remote sources.
// The remote response cache is purged first, so an explicit refresh always
// re-fetches every source. Concurrent callers share a single rebuild via
// singleflight; the catalog stays on its previous snapshot until the
// rebuild completes.
func (r *Registry) Refresh(ctx context.Context) error {
	return r.doRefresh(ctx, true)
}

// refreshCached rebuilds the catalog but reuses remote responses still
// inside the TTL. The filesystem watcher uses it: a burst of local installs
// needs the plugin root re-scanned, not the remote registries re-fetched.
func (r *Registry) refreshCached(ctx context.Context) error {
	return r.doRefresh(ctx, false)
}

func (r *Registry) doRefresh(ctx context.Context, purge bool) error {
	_, err, _ := r.refreshing.Do("refresh", func() (interface{}, error) {
		if purge {
			r.remoteCache.Purge()
		}
		return nil, r.refresh(ctx)
	})
	return err
}

func (r *Registry) refresh(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "registry.Refresh")
	defer span.End()
	start := time.Now()

	local := r.discoverLocal()
	remote, sources := r.fetchRemotes(ctx)

	merged := make(map[string]RegistryEntry, len(local)+len(remote))
	for _, e := range remote {
		// earlier sources take precedence over later ones
		if _, ok := merged[e.Manifest.ID]; !ok {
			merged[e.Manifest.ID] = e
		}
	}
	for id, e := range local {
		merged[id] = e
	}

	r.mu.Lock()
	r.entries = merged
	r.mu.Unlock()

	if r.obs != nil {
		r.obs.RegistryRefreshTotal.WithLabelValues("success").Inc()
		r.obs.CatalogPlugins.Set(float64(len(merged)))
		r.obs.CatalogLocalPlugins.Set(float64(len(local)))
	}
	span.SetAttributes(
		attribute.Int("registry.local_plugins", len(local)),
		attribute.Int("registry.total_plugins", len(merged)),
	)

	duration := time.Since(start)
	r.log.WithFields(logrus.Fields{
		"local_plugins": len(local),
		"total_plugins": len(merged),
		"sources":       sources,
		"duration":      duration,
	}).Info("registry refreshed")

	if r.bus != nil {
		r.bus.Publish(events.TopicRefreshed, events.RefreshedEvent{
			LocalPlugins:  len(local),
			RemotePlugins: len(merged) - len(local),
			Sources:       sources,
			Duration:      duration,
		})
	}
	return nil
}

// GetPlugin returns the catalog entry for id.
func (r *Registry) GetPlugin(id string) (RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// GetAllPlugins returns every catalog entry sorted by plugin ID.
func (r *Registry) GetAllPlugins() []RegistryEntry {
	r.mu.RLock()
	out := make([]RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.ID < out[j].Manifest.ID })
	return out
}

// GetFeaturedPlugins returns featured entries ordered by rating, highest
// first.
func (r *Registry) GetFeaturedPlugins() []RegistryEntry {
	r.mu.RLock()
	out := make([]RegistryEntry, 0)
	for _, e := range r.entries {
		if e.Featured {
			out = append(out, e)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].Manifest.ID < out[j].Manifest.ID
	})
	return out
}

// GetStatistics summarizes the current catalog snapshot.
func (r *Registry) GetStatistics() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Statistics{
		TotalPlugins: len(r.entries),
		ByCategory:   make(map[string]int),
		ByType:       make(map[string]int),
	}
	for _, e := range r.entries {
		if e.Source == SourceLocal {
			stats.LocalPlugins++
		}
		if e.Verified {
			stats.VerifiedCount++
		}
		if e.Featured {
			stats.FeaturedCount++
		}
		stats.TotalDownloads += e.DownloadCount
		stats.ByCategory[e.Manifest.Category]++
		stats.ByType[e.Manifest.Type]++
	}
	return stats
}

// ResolverSnapshot converts the catalog into dependency-resolution
// candidates.
func (r *Registry) ResolverSnapshot() []resolver.Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]resolver.Candidate, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, resolver.Candidate{
			ID:           e.Manifest.ID,
			Version:      e.Manifest.Version,
			Dependencies: e.Manifest.Dependencies,
		})
	}
	return out
}

// Close stops the plugin-root watcher if one is running. It is safe to
// call more than once.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	w := r.watcher
	close(r.done)
	r.mu.Unlock()

	var err error
	if w != nil {
		err = w.Close()
	}
	r.wg.Wait()
	return err
}
