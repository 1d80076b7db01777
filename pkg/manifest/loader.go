package manifest

import "fmt"

// Loader loads validated manifests from plugin directories. The registry
// consumes this interface so tests and alternate manifest formats can swap
// the implementation.
type Loader interface {
	LoadFromDir(dir string) (*Manifest, error)
}

// YAMLLoader loads plugin.yaml manifests and rejects any that fail
// structural validation.
type YAMLLoader struct{}

// NewYAMLLoader creates a YAML manifest loader.
func NewYAMLLoader() *YAMLLoader {
	return &YAMLLoader{}
}

// LoadFromDir loads and validates the manifest in dir.
func (l *YAMLLoader) LoadFromDir(dir string) (*Manifest, error) {
	m, err := LoadFromDir(dir)
	if err != nil {
		return nil, err
	}

	if errs := Validate(m); len(errs) > 0 {
		return nil, fmt.Errorf("manifest validation failed for %s: %d problem(s), first: %s",
			dir, len(errs), errs[0].Error())
	}

	return m, nil
}
