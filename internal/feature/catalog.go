package feature

import (
	"io/fs"
	"path"
	"sort"
)

// Node is one selectable feature in the catalog tree
type Node struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Shared      bool   `json:"shared"`
	Children    []Node `json:"children,omitempty"`
}

// Catalog lists the features available for an architecture. Shared features
// come first; an architecture feature with the same id as a shared one is
// hidden, matching Locate.
func Catalog(fsys fs.FS, arch Architecture) ([]Node, error) {
	shared, err := scan(fsys, SharedDir, "", true)
	if err != nil {
		return nil, err
	}
	modules, err := scan(fsys, arch.ModulesDir(), "", false)
	if err != nil {
		return nil, err
	}

	seen := make(map[ID]bool, len(shared))
	for _, n := range shared {
		seen[n.ID] = true
	}

	out := shared
	for _, n := range modules {
		if !seen[n.ID] {
			out = append(out, n)
		}
	}
	return out, nil
}

// scan collects feature directories under root. Only directories holding a
// descriptor count as features, and only those are descended into.
func scan(fsys fs.FS, root string, parent ID, shared bool) ([]Node, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		if isDir(fsys, root) {
			return nil, err
		}
		return nil, nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []Node
	for _, name := range names {
		dir := path.Join(root, name)
		desc, ok, err := ReadDescriptor(fsys, dir)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		id := ID(name)
		if parent != "" {
			id = parent + ":" + ID(name)
		}

		children, err := scan(fsys, dir, id, shared)
		if err != nil {
			return nil, err
		}

		out = append(out, Node{
			ID:          id,
			Name:        name,
			Description: desc.Description,
			Shared:      shared,
			Children:    children,
		})
	}
	return out, nil
}
