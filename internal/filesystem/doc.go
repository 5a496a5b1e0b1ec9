// Package filesystem holds the disk-side helpers used while assembling a
// project: directory walks, copying trees out of a template filesystem,
// staged multi-file writes, atomic rewrites and zip packaging.
//
// Copy a starter out of the embedded templates:
//
//	err := filesystem.CopyTree(templates.FS, "monolith/starter", workDir)
//
// Stage several writes and commit them together:
//
//	tx := filesystem.NewTransaction()
//	tx.AddFile(filepath.Join(dir, "src/users/users.module.ts"), content, 0o644)
//	if err := tx.Commit(); err != nil {
//	    return err // files written before the failure are restored
//	}
package filesystem
