// Package manifest reads the application manifest that names the restart
// target.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the manifest file looked up when none is given.
const DefaultPath = "manifest.yml"

// Application is one entry of the manifest's applications list.
type Application struct {
	Name      string `yaml:"name"`
	Instances int    `yaml:"instances,omitempty"`
	Memory    string `yaml:"memory,omitempty"`
	Path      string `yaml:"path,omitempty"`
	Buildpack string `yaml:"buildpack,omitempty"`
}

// Manifest holds the parsed manifest document.
type Manifest struct {
	Applications []Application `yaml:"applications"`
}

var ErrNoApplications = errors.New("manifest declares no applications")

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes a manifest document.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for i, app := range m.Applications {
		if strings.TrimSpace(app.Name) == "" {
			return nil, fmt.Errorf("applications[%d].name must be a non-empty string", i)
		}
		m.Applications[i].Name = strings.TrimSpace(app.Name)
	}
	return &m, nil
}

// App returns the application named name, or the first application when name
// is blank.
func (m *Manifest) App(name string) (Application, error) {
	if m == nil || len(m.Applications) == 0 {
		return Application{}, ErrNoApplications
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return m.Applications[0], nil
	}
	for _, app := range m.Applications {
		if app.Name == name {
			return app, nil
		}
	}
	return Application{}, fmt.Errorf("application %q not declared in manifest", name)
}
