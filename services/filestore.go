package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore manages signature files inside a single upload directory.
// Names passed to it are bare filenames, never paths.
type FileStore struct {
	dir string
}

// StoredFile describes one file found in the upload directory.
type StoredFile struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// NewFileStore creates dir with standard permissions when it is missing.
func NewFileStore(dir string) (*FileStore, error) {
	fs := &FileStore{dir: dir}
	if err := fs.EnsureDir(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Dir returns the upload directory.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// EnsureDir (re)creates the upload directory.
func (fs *FileStore) EnsureDir() error {
	if err := os.MkdirAll(fs.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory %s: %w", fs.dir, err)
	}
	return nil
}

// Path returns the absolute-or-relative location of name on disk.
func (fs *FileStore) Path(name string) string {
	return filepath.Join(fs.dir, name)
}

// Write streams the output of fill into name. Data goes to name.tmp, is
// synced, then renamed into place; on failure nothing is left behind.
func (fs *FileStore) Write(name string, fill func(w io.Writer) error) error {
	if err := checkName(name); err != nil {
		return err
	}
	fullPath := fs.Path(name)
	tmpPath := fullPath + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}

	if err := fill(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return nil
}

// Rename moves oldName to newName inside the upload directory.
func (fs *FileStore) Rename(oldName, newName string) error {
	if err := checkName(oldName); err != nil {
		return err
	}
	if err := checkName(newName); err != nil {
		return err
	}
	if err := os.Rename(fs.Path(oldName), fs.Path(newName)); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", oldName, newName, err)
	}
	return nil
}

// Delete removes name. A file that is already gone is not an error.
func (fs *FileStore) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(fs.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// Exists reports whether name is a regular file.
func (fs *FileStore) Exists(name string) bool {
	if checkName(name) != nil {
		return false
	}
	info, err := os.Stat(fs.Path(name))
	return err == nil && info.Mode().IsRegular()
}

// List returns regular files whose names start with prefix.
func (fs *FileStore) List(prefix string) ([]StoredFile, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory %s: %w", fs.dir, err)
	}

	files := make([]StoredFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, StoredFile{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}
