package deps

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
)

// RegistryFile is the registry's path inside a template filesystem
const RegistryFile = "dependency-registry.json"

// Registry is the static catalog of dependency groups and presets.
// It is loaded once at startup and never mutated afterwards.
type Registry struct {
	Metadata        Metadata                     `json:"metadata"`
	Dependencies    map[string]map[string]string `json:"dependencies"`
	DevDependencies map[string]map[string]string `json:"devDependencies"`
	Presets         map[string]Preset            `json:"presets"`
}

// Metadata describes the registry document version
type Metadata struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
}

// Preset is a named bundle of group.package references
type Preset struct {
	Extends     string   `json:"extends,omitempty"`
	Includes    []string `json:"includes"`
	DevIncludes []string `json:"devIncludes,omitempty"`
}

// LoadRegistry reads and parses the registry from fsys
func LoadRegistry(fsys fs.FS, path string) (*Registry, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, apperr.Dependency("dependency registry is required for project generation", path, err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes a registry document and checks preset inheritance terminates
func ParseRegistry(data []byte) (*Registry, error) {
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, apperr.Dependency("parsing dependency registry", RegistryFile, err)
	}

	if reg.Dependencies == nil {
		reg.Dependencies = map[string]map[string]string{}
	}
	if reg.DevDependencies == nil {
		reg.DevDependencies = map[string]map[string]string{}
	}
	if reg.Presets == nil {
		reg.Presets = map[string]Preset{}
	}

	if err := reg.checkInheritance(); err != nil {
		return nil, err
	}

	return &reg, nil
}

// checkInheritance rejects preset chains that loop back on themselves
func (r *Registry) checkInheritance() error {
	names := make([]string, 0, len(r.Presets))
	for name := range r.Presets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		seen := map[string]bool{name: true}
		chain := []string{name}
		for cur := r.Presets[name].Extends; cur != ""; cur = r.Presets[cur].Extends {
			chain = append(chain, cur)
			if seen[cur] {
				return apperr.Dependency(
					fmt.Sprintf("preset inheritance cycle: %s", strings.Join(chain, " -> ")),
					name, nil)
			}
			seen[cur] = true
			if _, ok := r.Presets[cur]; !ok {
				break
			}
		}
	}

	return nil
}

// lookup resolves a group.package reference against table.
// The reference splits at the first dot so scoped names like
// "auth.@nestjs/passport" keep their slash.
func lookup(table map[string]map[string]string, ref string) (pkg, version string, ok bool) {
	group, pkg, found := strings.Cut(ref, ".")
	if !found || group == "" || pkg == "" {
		return "", "", false
	}
	version, ok = table[group][pkg]
	return pkg, version, ok
}
