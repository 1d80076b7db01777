package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/velomail/pluginkit/pkg/manifest"
)

// RemoteSource fetches catalog entries from one remote registry.
type RemoteSource interface {
	// URL identifies the source; it keys the response cache and is
	// stamped onto the entries it returns.
	URL() string
	Fetch(ctx context.Context) ([]RegistryEntry, error)
}

// HTTPSource fetches a JSON entry list from a registry endpoint. Each
// source carries its own client so a slow registry times out on its own
// budget without delaying the others.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource builds a source for the given endpoint with a per-request
// timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) URL() string { return s.url }

// Fetch downloads and decodes the registry's entry list. Entries with an
// invalid manifest are dropped rather than failing the whole fetch.
func (s *HTTPSource) Fetch(ctx context.Context) ([]RegistryEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching registry %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry %s returned status %d", s.url, resp.StatusCode)
	}

	var entries []RegistryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding registry %s response: %w", s.url, err)
	}

	valid := entries[:0]
	for _, e := range entries {
		if errs := manifest.Validate(&e.Manifest); len(errs) > 0 {
			continue
		}
		e.Source = s.url
		valid = append(valid, e)
	}
	return valid, nil
}

// fetchRemotes collects entries from every configured source in order,
// reusing cached responses within the TTL. A failing source is logged and
// skipped; its entries simply drop out of the merged catalog.
func (r *Registry) fetchRemotes(ctx context.Context) ([]RegistryEntry, []string) {
	var out []RegistryEntry
	sources := make([]string, 0, len(r.remotes))

	for _, src := range r.remotes {
		if cached, ok := r.remoteCache.Get(src.URL()); ok {
			out = append(out, cached...)
			sources = append(sources, src.URL())
			continue
		}

		entries, err := src.Fetch(ctx)
		if err != nil {
			if r.obs != nil {
				r.obs.RemoteFetchTotal.WithLabelValues(src.URL(), "failure").Inc()
			}
			r.log.WithError(err).WithField("source", src.URL()).
				Warn("remote registry fetch failed")
			continue
		}
		if r.obs != nil {
			r.obs.RemoteFetchTotal.WithLabelValues(src.URL(), "success").Inc()
		}
		r.remoteCache.Add(src.URL(), entries)
		out = append(out, entries...)
		sources = append(sources, src.URL())
	}
	return out, sources
}
