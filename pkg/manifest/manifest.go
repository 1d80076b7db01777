package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

var semverRegex = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// Plugin categories recognized by the catalog.
const (
	CategoryProductivity  = "productivity"
	CategoryCommunication = "communication"
	CategoryAutomation    = "automation"
	CategoryIntegration   = "integration"
	CategorySecurity      = "security"
	CategoryUtilities     = "utilities"
)

// Plugin types recognized by the runtime.
const (
	TypePanel      = "panel"
	TypeComposer   = "composer"
	TypeSidebar    = "sidebar"
	TypeBackground = "background"
	TypeTheme      = "theme"
)

// Dependency declares a requirement on another plugin.
type Dependency struct {
	PluginID     string `yaml:"plugin_id" json:"plugin_id"`
	VersionRange string `yaml:"version_range" json:"version_range"`
	Optional     bool   `yaml:"optional,omitempty" json:"optional,omitempty"`
}

// Manifest is the declarative metadata for a plugin package. It is validated
// once at load time and treated as immutable afterwards.
type Manifest struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Version      string       `yaml:"version" json:"version"`
	Description  string       `yaml:"description,omitempty" json:"description,omitempty"`
	Author       string       `yaml:"author,omitempty" json:"author,omitempty"`
	License      string       `yaml:"license,omitempty" json:"license,omitempty"`
	Homepage     string       `yaml:"homepage,omitempty" json:"homepage,omitempty"`
	Category     string       `yaml:"category" json:"category"`
	Type         string       `yaml:"type" json:"type"`
	Platforms    []string     `yaml:"platforms,omitempty" json:"platforms,omitempty"`
	Tags         []string     `yaml:"tags,omitempty" json:"tags,omitempty"`
	Dependencies []Dependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
}

// ValidationError describes a single manifest validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load loads and parses a plugin manifest from a file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &m, nil
}

// LoadFromDir loads a plugin manifest from a directory (looks for plugin.yaml).
func LoadFromDir(dir string) (*Manifest, error) {
	return Load(filepath.Join(dir, "plugin.yaml"))
}

// Save writes a plugin manifest to a file.
func Save(m *Manifest, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// Validate performs structural validation on a manifest and returns the
// complete list of problems found, not just the first one.
func Validate(m *Manifest) []ValidationError {
	var errors []ValidationError

	if m.ID == "" {
		errors = append(errors, ValidationError{
			Field:   "id",
			Message: "plugin ID is required",
		})
	}

	if m.Name == "" {
		errors = append(errors, ValidationError{
			Field:   "name",
			Message: "plugin name is required",
		})
	}

	if m.Version == "" {
		errors = append(errors, ValidationError{
			Field:   "version",
			Message: "version is required",
		})
	} else if !semverRegex.MatchString(m.Version) {
		errors = append(errors, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("invalid semver format: %s", m.Version),
		})
	}

	if m.Category == "" {
		errors = append(errors, ValidationError{
			Field:   "category",
			Message: "category is required",
		})
	} else if !validCategory(m.Category) {
		errors = append(errors, ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("unknown category: %s", m.Category),
		})
	}

	if m.Type == "" {
		errors = append(errors, ValidationError{
			Field:   "type",
			Message: "plugin type is required",
		})
	} else if !validType(m.Type) {
		errors = append(errors, ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("unknown plugin type: %s", m.Type),
		})
	}

	for i, dep := range m.Dependencies {
		if dep.PluginID == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("dependencies[%d].plugin_id", i),
				Message: "dependency plugin ID is required",
			})
		}
		if dep.VersionRange == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("dependencies[%d].version_range", i),
				Message: "dependency version range is required",
			})
		}
		if dep.PluginID != "" && dep.PluginID == m.ID {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("dependencies[%d].plugin_id", i),
				Message: "plugin cannot depend on itself",
			})
		}
	}

	return errors
}

func validCategory(c string) bool {
	switch c {
	case CategoryProductivity, CategoryCommunication, CategoryAutomation,
		CategoryIntegration, CategorySecurity, CategoryUtilities:
		return true
	}
	return false
}

func validType(t string) bool {
	switch t {
	case TypePanel, TypeComposer, TypeSidebar, TypeBackground, TypeTheme:
		return true
	}
	return false
}
