package registry

import (
	"os"
	"path/filepath"

	"github.com/velomail/pluginkit/pkg/version"
)

// discoverLocal scans the plugin root for installed plugins. The layout is
// <root>/<plugin-id>/<version>/plugin.yaml; when several versions of a
// plugin are installed side by side only the highest one is cataloged.
// Plugins whose manifest is missing or invalid are skipped so that one
// broken install cannot hide the rest.
func (r *Registry) discoverLocal() map[string]RegistryEntry {
	out := make(map[string]RegistryEntry)
	if r.cfg.PluginRoot == "" {
		return out
	}

	dirs, err := os.ReadDir(r.cfg.PluginRoot)
	if err != nil {
		r.log.WithError(err).WithField("plugin_root", r.cfg.PluginRoot).
			Debug("plugin root not readable")
		return out
	}

	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		pluginDir := filepath.Join(r.cfg.PluginRoot, d.Name())
		versionDir := highestVersionDir(pluginDir)
		if versionDir == "" {
			continue
		}

		installDir := filepath.Join(pluginDir, versionDir)
		m, err := r.loader.LoadFromDir(installDir)
		if err != nil {
			r.log.WithError(err).WithField("plugin_dir", installDir).
				Debug("skipping local plugin")
			continue
		}

		entry := RegistryEntry{
			Manifest: *m,
			Package:  PackageDescriptor{SourceURL: "file://" + installDir},
			Source:   SourceLocal,
		}
		if info, err := os.Stat(installDir); err == nil {
			entry.UpdatedAt = info.ModTime()
		}
		out[m.ID] = entry
	}
	return out
}

// highestVersionDir picks the version subdirectory that compares highest
// numerically, or "" when the plugin directory holds no version dirs.
func highestVersionDir(pluginDir string) string {
	subdirs, err := os.ReadDir(pluginDir)
	if err != nil {
		return ""
	}
	best := ""
	for _, s := range subdirs {
		if !s.IsDir() {
			continue
		}
		if best == "" || version.CompareNumericSegments(s.Name(), best) > 0 {
			best = s.Name()
		}
	}
	return best
}
