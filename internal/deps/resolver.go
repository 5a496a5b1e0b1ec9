// Package deps resolves a feature's dependency references (explicit maps,
// registry groups and presets with inheritance) into flat package maps.
package deps

import (
	"errors"
	"maps"

	"github.com/simonhull/firebird-suite/roost/internal/logger"
)

// Spec is the dependency part of a feature descriptor
type Spec struct {
	DependencyGroups      []string          `json:"dependencyGroups,omitempty"`
	DependencyPresets     []string          `json:"dependencyPresets,omitempty"`
	CustomDependencies    map[string]string `json:"customDependencies,omitempty"`
	CustomDevDependencies map[string]string `json:"customDevDependencies,omitempty"`
}

// Set is a resolved pair of package maps
type Set struct {
	Dependencies    map[string]string
	DevDependencies map[string]string
}

// Empty reports whether neither map has entries
func (s Set) Empty() bool {
	return len(s.Dependencies) == 0 && len(s.DevDependencies) == 0
}

func newSet() Set {
	return Set{
		Dependencies:    map[string]string{},
		DevDependencies: map[string]string{},
	}
}

func (s Set) merge(other Set) {
	maps.Copy(s.Dependencies, other.Dependencies)
	maps.Copy(s.DevDependencies, other.DevDependencies)
}

// Resolver resolves Specs against an immutable Registry
type Resolver struct {
	registry *Registry
	log      logger.Logger
}

// NewResolver creates a resolver. A nil registry is a construction error,
// since no project can be generated without one.
func NewResolver(registry *Registry, log logger.Logger) (*Resolver, error) {
	if registry == nil {
		return nil, errors.New("dependency registry not loaded")
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Resolver{
		registry: registry,
		log:      log.WithFields(logger.F("component", "deps")),
	}, nil
}

// Resolve flattens spec. Precedence, lowest first: inherited presets,
// preset includes, dependency groups, custom overrides.
// Unknown presets, groups and references are logged and skipped.
func (r *Resolver) Resolve(spec Spec) Set {
	out := newSet()

	for _, name := range spec.DependencyPresets {
		preset, ok := r.registry.Presets[name]
		if !ok {
			r.log.Warn("unknown preset", logger.F("preset", name))
			continue
		}
		out.merge(r.resolvePreset(name, preset, map[string]bool{}))
	}

	for _, name := range spec.DependencyGroups {
		group, ok := r.registry.Dependencies[name]
		if ok {
			maps.Copy(out.Dependencies, group)
		}
		devGroup, devOK := r.registry.DevDependencies[name]
		if devOK {
			maps.Copy(out.DevDependencies, devGroup)
		}
		if !ok && !devOK {
			r.log.Warn("unknown dependency group", logger.F("group", name))
		}
	}

	maps.Copy(out.Dependencies, spec.CustomDependencies)
	maps.Copy(out.DevDependencies, spec.CustomDevDependencies)

	return out
}

// resolvePreset resolves the parent chain first, then the preset's own includes
func (r *Resolver) resolvePreset(name string, preset Preset, visiting map[string]bool) Set {
	out := newSet()
	visiting[name] = true

	if parent := preset.Extends; parent != "" {
		switch p, ok := r.registry.Presets[parent]; {
		case !ok:
			r.log.Warn("unknown parent preset", logger.F("preset", name), logger.F("extends", parent))
		case visiting[parent]:
			r.log.Warn("preset inheritance cycle", logger.F("preset", name), logger.F("extends", parent))
		default:
			out.merge(r.resolvePreset(parent, p, visiting))
		}
	}

	r.resolveIncludes(out.Dependencies, r.registry.Dependencies, preset.Includes, "dependency")
	r.resolveIncludes(out.DevDependencies, r.registry.DevDependencies, preset.DevIncludes, "dev dependency")

	return out
}

func (r *Resolver) resolveIncludes(dst map[string]string, table map[string]map[string]string, refs []string, kind string) {
	for _, ref := range refs {
		pkg, version, ok := lookup(table, ref)
		if !ok {
			r.log.Warn("could not resolve "+kind, logger.F("ref", ref))
			continue
		}
		dst[pkg] = version
	}
}
