// Package feature models selectable features: hierarchical ids, the
// per-target applied set, descriptors and where they live in a template
// filesystem.
package feature

import (
	"fmt"
	"path"
	"strings"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
)

// ID is a colon-delimited feature path such as "users:mongodb"
type ID string

// Segments splits the id on ':'
func (id ID) Segments() []string {
	return strings.Split(string(id), ":")
}

// Root returns the first segment
func (id ID) Root() string {
	root, _, _ := strings.Cut(string(id), ":")
	return root
}

// Prefixes returns every cumulative prefix, shortest first.
// "a:b:c" yields a, a:b, a:b:c.
func (id ID) Prefixes() []ID {
	segs := id.Segments()
	out := make([]ID, len(segs))
	for i := range segs {
		out[i] = ID(strings.Join(segs[:i+1], ":"))
	}
	return out
}

// Path converts the id to a slash path relative to a feature root
func (id ID) Path() string {
	return path.Join(id.Segments()...)
}

// Validate rejects empty segments and segments that would escape a
// feature root when used as a path.
func (id ID) Validate() error {
	if id == "" {
		return apperr.Validation("feature id must not be empty", nil)
	}
	for _, seg := range id.Segments() {
		if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, `/\`) {
			return apperr.Validation(
				fmt.Sprintf("invalid feature id %q", string(id)),
				map[string]any{"featureName": string(id)})
		}
	}
	return nil
}

// IDs converts plain strings to ids
func IDs(names []string) []ID {
	out := make([]ID, len(names))
	for i, n := range names {
		out[i] = ID(n)
	}
	return out
}

// Strings converts ids back to plain strings
func Strings(ids []ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// AppliedSet records which feature prefixes a single target directory has
// already applied, in application order. It is owned by one target and is
// not safe for concurrent use.
type AppliedSet struct {
	order []ID
	seen  map[ID]struct{}
}

// NewAppliedSet creates an empty set
func NewAppliedSet() *AppliedSet {
	return &AppliedSet{seen: make(map[ID]struct{})}
}

// Has reports whether id was applied
func (s *AppliedSet) Has(id ID) bool {
	_, ok := s.seen[id]
	return ok
}

// HasAll reports whether every id was applied
func (s *AppliedSet) HasAll(ids []ID) bool {
	for _, id := range ids {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// Add records id and reports whether it was new
func (s *AppliedSet) Add(id ID) bool {
	if s.Has(id) {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// List returns the applied ids in insertion order
func (s *AppliedSet) List() []ID {
	out := make([]ID, len(s.order))
	copy(out, s.order)
	return out
}

func (s *AppliedSet) Len() int {
	return len(s.order)
}
