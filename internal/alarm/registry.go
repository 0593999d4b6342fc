// Package alarm holds the recognized alarm severity/status vocabulary for
// snapshot items. The vocabulary ships as embedded YAML so deployments can be
// rebuilt against site-specific extensions without code changes.
package alarm

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// vocabulary mirrors the YAML file layout
type vocabulary struct {
	Severities []string `yaml:"severities"`
	Statuses   []string `yaml:"statuses"`
}

// Registry answers membership queries against the embedded vocabulary
type Registry struct {
	severities map[string]struct{}
	statuses   map[string]struct{}
}

// NewRegistry loads the embedded vocabulary
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/epics.yaml")
	if err != nil {
		return nil, fmt.Errorf("read alarm vocabulary: %w", err)
	}

	var voc vocabulary
	if err := yaml.Unmarshal(data, &voc); err != nil {
		return nil, fmt.Errorf("unmarshal alarm vocabulary: %w", err)
	}

	r := &Registry{
		severities: make(map[string]struct{}, len(voc.Severities)),
		statuses:   make(map[string]struct{}, len(voc.Statuses)),
	}
	for _, s := range voc.Severities {
		r.severities[s] = struct{}{}
	}
	for _, s := range voc.Statuses {
		r.statuses[s] = struct{}{}
	}
	return r, nil
}

// IsValidSeverity reports whether s is a recognized alarm severity. The
// empty string is accepted: capture sources without alarm support omit it.
func (r *Registry) IsValidSeverity(s string) bool {
	if s == "" {
		return true
	}
	_, ok := r.severities[s]
	return ok
}

// IsValidStatus reports whether s is a recognized alarm status. The empty
// string is accepted.
func (r *Registry) IsValidStatus(s string) bool {
	if s == "" {
		return true
	}
	_, ok := r.statuses[s]
	return ok
}
