package feature

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
	"github.com/simonhull/firebird-suite/roost/internal/deps"
)

// DescriptorFile is the descriptor's file name inside a feature directory
const DescriptorFile = "feature.config.json"

// Descriptor is the declarative manifest of one feature directory
type Descriptor struct {
	deps.Spec

	Description     string            `json:"description,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
	Requires        []ID              `json:"requires,omitempty"`
	CopyFiles       []CopyFile        `json:"copyFiles,omitempty"`
	PartialFiles    PartialSet        `json:"partialFiles,omitempty"`
	UpdateAppModule bool              `json:"updateAppModule,omitempty"`
}

// CopyFile copies one file from the feature directory into the target.
// ProcessTemplate renders the source before writing it.
type CopyFile struct {
	Source          string `json:"source"`
	Target          string `json:"target"`
	ProcessTemplate bool   `json:"processTemplate,omitempty"`
}

// Partial is one insertion job: splice sections of Source into Target at
// each marker in Placeholders, in order.
type Partial struct {
	Name           string   `json:"-"`
	Source         string   `json:"source"`
	Target         string   `json:"target"`
	Placeholders   []string `json:"placeholders"`
	OnlyIfFeatures []ID     `json:"onlyIfFeatures,omitempty"`
}

// PartialSet keeps partials in declaration order. It decodes from either a
// JSON object keyed by job name or a JSON array.
type PartialSet []Partial

func (p *PartialSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = nil
		return nil
	}

	if data[0] == '[' {
		var list []Partial
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*p = list
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("partialFiles: expected object or array, got %s", data)
	}

	var out PartialSet
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("partialFiles: unexpected key %v", tok)
		}

		var part Partial
		if err := dec.Decode(&part); err != nil {
			return fmt.Errorf("partialFiles.%s: %w", name, err)
		}
		part.Name = name
		out = append(out, part)
	}

	*p = out
	return nil
}

// DependencySpec returns the resolver input. Explicit dependency maps fold
// into the custom overlay; custom entries win on collision.
func (d *Descriptor) DependencySpec() deps.Spec {
	spec := d.Spec
	spec.CustomDependencies = overlay(d.Dependencies, d.Spec.CustomDependencies)
	spec.CustomDevDependencies = overlay(d.DevDependencies, d.Spec.CustomDevDependencies)
	return spec
}

func overlay(base, top map[string]string) map[string]string {
	if len(base) == 0 && len(top) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(top))
	maps.Copy(out, base)
	maps.Copy(out, top)
	return out
}

// ParseDescriptor decodes a descriptor. path is used in errors only.
func ParseDescriptor(data []byte, path string) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, apperr.FileSystem("invalid feature descriptor", path, err)
	}
	for _, req := range d.Requires {
		if err := req.Validate(); err != nil {
			return nil, apperr.FileSystem(fmt.Sprintf("invalid requirement %q", string(req)), path, err)
		}
	}
	return &d, nil
}

// ReadDescriptor loads dir/feature.config.json from fsys. A missing file
// returns (nil, false, nil).
func ReadDescriptor(fsys fs.FS, dir string) (*Descriptor, bool, error) {
	p := path.Join(dir, DescriptorFile)
	data, err := fs.ReadFile(fsys, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.FileSystem("reading feature descriptor", p, err)
	}

	d, err := ParseDescriptor(data, p)
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}
