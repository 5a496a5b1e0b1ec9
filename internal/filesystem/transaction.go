package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Transaction is a set of file writes that are committed together. If any
// write fails, the files already written are restored to their previous
// content, or removed if they did not exist before.
type Transaction struct {
	operations []fileOperation
	committed  bool
}

type fileOperation struct {
	path    string
	content []byte
	mode    os.FileMode
}

// snapshot is a file's state before the transaction touched it
type snapshot struct {
	path    string
	existed bool
	content []byte
	mode    os.FileMode
}

// NewTransaction creates a new file operation transaction
func NewTransaction() *Transaction {
	return &Transaction{}
}

// AddFile stages a file write operation (doesn't write yet)
func (t *Transaction) AddFile(path string, content []byte, mode os.FileMode) {
	t.operations = append(t.operations, fileOperation{
		path:    path,
		content: content,
		mode:    mode,
	})
}

// Len returns the number of staged writes
func (t *Transaction) Len() int {
	return len(t.operations)
}

// Commit writes all staged files to disk
func (t *Transaction) Commit() error {
	if t.committed {
		return fmt.Errorf("transaction already committed")
	}

	written := make([]snapshot, 0, len(t.operations))

	for _, op := range t.operations {
		snap, err := take(op.path)
		if err != nil {
			t.restore(written)
			return err
		}
		written = append(written, snap)

		dir := filepath.Dir(op.path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.restore(written)
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if err := os.WriteFile(op.path, op.content, op.mode); err != nil {
			t.restore(written)
			return fmt.Errorf("failed to write file %s: %w", op.path, err)
		}
	}

	t.committed = true
	return nil
}

func take(path string) (snapshot, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return snapshot{path: path}, nil
	}
	if err != nil {
		return snapshot{}, fmt.Errorf("stat %s: %w", path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return snapshot{}, fmt.Errorf("read %s: %w", path, err)
	}
	return snapshot{path: path, existed: true, content: content, mode: info.Mode().Perm()}, nil
}

// restore undoes writes in reverse order. Best effort.
func (t *Transaction) restore(written []snapshot) {
	for i := len(written) - 1; i >= 0; i-- {
		s := written[i]
		if s.existed {
			_ = os.WriteFile(s.path, s.content, s.mode)
		} else {
			_ = os.Remove(s.path)
		}
	}
}
