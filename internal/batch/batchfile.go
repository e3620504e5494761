package batch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is a YAML batch file describing one caller-initiated run.
type File struct {
	BatchID string     `yaml:"batch_id"`
	User    string     `yaml:"user"`
	Plugins []FileItem `yaml:"plugins"`
}

// FileItem is one plugin entry of a batch file.
type FileItem struct {
	Slug             string `yaml:"slug"`
	Action           string `yaml:"action"`
	Name             string `yaml:"name"`
	Version          string `yaml:"version"`
	InstalledVersion string `yaml:"installed_version"`
	Source           string `yaml:"source"`
	Descriptor       string `yaml:"descriptor"`
	Activate         *bool  `yaml:"activate"`
	NetworkWide      bool   `yaml:"network_wide"`
	RequiresWP       string `yaml:"requires_wp"`
	RequiresPHP      string `yaml:"requires_php"`
}

// LoadFile reads and validates a batch file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid batch file %s: %w", path, err)
	}

	return &f, nil
}

// validate enforces the structural requirements: at least one plugin, a
// non-empty slug and source per entry, and a recognized action.
func (f *File) validate() error {
	if len(f.Plugins) == 0 {
		return fmt.Errorf("no plugins listed")
	}

	for i, p := range f.Plugins {
		if p.Slug == "" {
			return fmt.Errorf("plugin %d: slug is required", i+1)
		}
		if p.Source == "" {
			return fmt.Errorf("plugin %q: source is required", p.Slug)
		}
		switch Action(p.Action) {
		case ActionInstall, ActionUpdate:
		default:
			return fmt.Errorf("plugin %q: action must be install or update, got %q", p.Slug, p.Action)
		}
		if Action(p.Action) == ActionUpdate && p.InstalledVersion == "" {
			return fmt.Errorf("plugin %q: installed_version is required for updates", p.Slug)
		}
	}

	return nil
}

// Items converts the file entries into PackageItems. The descriptor
// defaults to "<slug>/<slug>.php", the conventional plugin entry file.
func (f *File) Items() []PackageItem {
	items := make([]PackageItem, 0, len(f.Plugins))

	for _, p := range f.Plugins {
		descriptor := p.Descriptor
		if descriptor == "" {
			descriptor = fmt.Sprintf("%s/%s.php", p.Slug, p.Slug)
		}

		items = append(items, PackageItem{
			Slug:             p.Slug,
			Action:           Action(p.Action),
			Name:             p.Name,
			TargetVersion:    p.Version,
			InstalledVersion: p.InstalledVersion,
			SourcePath:       p.Source,
			Descriptor:       descriptor,
			Activate:         p.Activate,
			NetworkWide:      p.NetworkWide,
			RequiresWP:       p.RequiresWP,
			RequiresPHP:      p.RequiresPHP,
		})
	}

	return items
}
