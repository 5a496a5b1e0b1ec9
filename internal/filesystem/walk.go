package filesystem

import (
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// DefaultIgnoreDirs are directories never packaged or scanned
var DefaultIgnoreDirs = []string{
	"node_modules", ".git", ".svn", ".hg", "dist", "coverage",
}

// WalkOptions configures which entries Files reports
type WalkOptions struct {
	IgnoreDirs     []string // nil means DefaultIgnoreDirs, empty ignores nothing
	IgnorePatterns []string // base-name globs, e.g. "*.tmp"
	IncludeHidden  bool     // dot entries such as .env
}

// skip reports whether d is excluded, and whether a directory's subtree goes with it
func (o WalkOptions) skip(d fs.DirEntry) bool {
	name := d.Name()
	if !o.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	if d.IsDir() {
		ignore := o.IgnoreDirs
		if ignore == nil {
			ignore = DefaultIgnoreDirs
		}
		return slices.Contains(ignore, name)
	}
	for _, pattern := range o.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// Files returns every regular file under root as a slash-separated path
// relative to root, sorted lexically.
func Files(root string, opts WalkOptions) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		if opts.skip(d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
