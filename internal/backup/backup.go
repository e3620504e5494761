// Package backup creates and restores filesystem snapshots of a single
// plugin's installed directory. Backups are taken immediately before an
// update and consumed either by a restore (on update failure or batch
// rollback) or by an explicit cleanup once the batch can no longer be
// rolled back.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Error taxonomy for backup and restore operations. All of these are fatal
// to the single item being backed up or restored; callers wrap them with
// context via fmt.Errorf and %w.
var (
	ErrSourceMissing = errors.New("backup source does not exist")
	ErrBackupDir     = errors.New("failed to create backup directory")
	ErrBackupCopy    = errors.New("failed to copy files to backup")
	ErrBackupMissing = errors.New("backup does not exist")
	ErrRestoreDelete = errors.New("failed to delete target before restore")
	ErrRestoreCopy   = errors.New("failed to copy backup to target")
)

// Store manages backups under a single root directory. The root is shared
// across all batches; each backup is namespaced by a generated unique
// suffix so concurrent batches never collide on backup paths.
type Store struct {
	root string
}

// New creates a backup Store rooted at dir. The directory is created lazily
// on first backup.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the backup root directory.
func (s *Store) Root() string {
	return s.root
}

// CreateBackup snapshots installDir into a new directory under the backup
// root and returns the backup path. It fails fast when installDir does not
// exist. On a copy failure the partially written backup is left behind; the
// caller treats the whole operation as failed and the expiry sweep reaps it.
func (s *Store) CreateBackup(installDir string) (string, error) {
	if _, err := os.Stat(installDir); err != nil {
		return "", fmt.Errorf("%w: %s", ErrSourceMissing, installDir)
	}

	if err := os.MkdirAll(s.root, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackupDir, err)
	}

	name := fmt.Sprintf("%s_%s_%s",
		filepath.Base(installDir),
		time.Now().Format("20060102-150405"),
		uuid.NewString()[:8])
	backupPath := filepath.Join(s.root, name)

	if err := copyTree(installDir, backupPath); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackupCopy, err)
	}

	return backupPath, nil
}

// RestoreBackup copies a backup back over installDir. An existing installDir
// is deleted first; a failure there is reported distinctly from a copy
// failure because it leaves the target untouched rather than half-written.
func (s *Store) RestoreBackup(backupPath, installDir string) error {
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("%w: %s", ErrBackupMissing, backupPath)
	}

	if _, err := os.Stat(installDir); err == nil {
		if err := os.RemoveAll(installDir); err != nil {
			return fmt.Errorf("%w: %v", ErrRestoreDelete, err)
		}
	}

	if err := copyTree(backupPath, installDir); err != nil {
		return fmt.Errorf("%w: %v", ErrRestoreCopy, err)
	}

	return nil
}

// CleanupBackup deletes a backup. Best-effort: a missing path or a failed
// delete is not an error, so it is safe to call on already-reaped backups.
func (s *Store) CleanupBackup(backupPath string) {
	if backupPath == "" {
		return
	}
	os.RemoveAll(backupPath)
}

// RemovePartialInstall deletes whatever a failed install left behind in
// installDir. Best-effort: there is no previous version to restore, so the
// only safe outcome is an empty slot.
func (s *Store) RemovePartialInstall(installDir string) {
	if installDir == "" {
		return
	}
	os.RemoveAll(installDir)
}

// copyTree performs a deep, structure-preserving copy of the directory tree
// at src into dst. File modes are preserved; symlinks are recreated.
func copyTree(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		switch {
		case entry.IsDir():
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
		case entry.Type()&os.ModeSymlink != 0:
			target, err := os.Readlink(srcPath)
			if err != nil {
				return err
			}
			if err := os.Symlink(target, dstPath); err != nil {
				return err
			}
		default:
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}

	return nil
}

// copyFile copies a single regular file, preserving its mode.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
