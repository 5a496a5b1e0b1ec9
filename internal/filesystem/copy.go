package filesystem

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyTree copies src from fsys into dest on disk, preserving structure.
// Existing files in dest are overwritten.
func CopyTree(fsys fs.FS, src, dest string) error {
	info, err := fs.Stat(fsys, src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}

	return fs.WalkDir(fsys, src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel := relSlash(src, p)
		target := filepath.Join(dest, filepath.FromSlash(rel))

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return CopyFile(fsys, p, target)
	})
}

// CopyFile copies a single file from fsys to dest, creating parent directories
func CopyFile(fsys fs.FS, src, dest string) error {
	data, err := fs.ReadFile(fsys, src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dest, err)
	}
	if err := os.WriteFile(dest, data, fileMode(fsys, src)); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

// fileMode keeps executable bits from real directories; embedded files
// report 0444 and are written as 0644.
func fileMode(fsys fs.FS, name string) os.FileMode {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return 0o644
	}
	return info.Mode().Perm() | 0o644
}

func relSlash(root, p string) string {
	if p == root {
		return "."
	}
	if root == "." {
		return p
	}
	return p[len(root)+1:]
}
