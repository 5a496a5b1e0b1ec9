package filesystem

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// ZipDir packages every file under root into a zip archive. Entry names are
// slash-separated paths relative to root, in lexical order, deflate-compressed.
func ZipDir(root string) ([]byte, error) {
	files, err := Files(root, WalkOptions{IgnoreDirs: []string{}, IncludeHidden: true})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, name := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		info, err := os.Stat(full)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", full, err)
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return nil, fmt.Errorf("zip header %s: %w", name, err)
		}
		header.Name = name
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("zip entry %s: %w", name, err)
		}

		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", full, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("zip write %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing zip: %w", err)
	}
	return buf.Bytes(), nil
}
