package registry

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of filesystem events (an install touches
// many files) into one refresh.
const watchDebounce = 2 * time.Second

// WatchPluginRoot refreshes the catalog whenever the plugin root changes
// on disk. The watcher runs until Close.
func (r *Registry) WatchPluginRoot(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(r.cfg.PluginRoot); err != nil {
		w.Close()
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return w.Close()
	}
	r.watcher = w
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		var debounce *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				r.log.WithField("path", ev.Name).Debug("plugin root changed")
				if debounce == nil {
					debounce = time.NewTimer(watchDebounce)
					fire = debounce.C
				} else {
					debounce.Reset(watchDebounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				r.log.WithError(err).Warn("plugin root watcher error")
			case <-fire:
				debounce = nil
				fire = nil
				if err := r.refreshCached(ctx); err != nil {
					r.log.WithError(err).Warn("watcher-triggered refresh failed")
				}
			case <-r.done:
				return
			}
		}
	}()
	return nil
}
