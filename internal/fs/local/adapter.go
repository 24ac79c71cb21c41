package local

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Adapter implements the filesystem gateway on a local disk.
type Adapter struct{}

func NewAdapter() *Adapter {
	return &Adapter{}
}

// ListCandidates returns the regular files directly inside folder whose
// extension matches one of exts. The walk is non-recursive: drop folders
// are flat by convention, subfolders are someone else's business.
func (a *Adapter) ListCandidates(folder string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", folder, err)
	}

	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(entry.Name()), "."))
		if !allowed[ext] {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(folder, entry.Name()))
		if err != nil {
			return nil, err
		}
		paths = append(paths, abs)
	}

	sort.Strings(paths)
	return paths, nil
}

func (a *Adapter) ReadBytes(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// MoveToArchive renames path into archiveFolder. Rename first; if the
// archive lives on another device, fall back to copy-then-remove.
func (a *Adapter) MoveToArchive(path string, archiveFolder string) error {
	if err := os.MkdirAll(archiveFolder, 0755); err != nil {
		return fmt.Errorf("create archive folder %s: %w", archiveFolder, err)
	}

	dest := filepath.Join(archiveFolder, filepath.Base(path))
	err := os.Rename(path, dest)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return fmt.Errorf("archive %s: %w", path, err)
	}

	// Cross-device rename: copy, then remove the source.
	if err := copyFile(path, dest); err != nil {
		return fmt.Errorf("archive copy %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove source %s after archive copy: %w", path, err)
	}
	return nil
}

func (a *Adapter) WriteExportFile(folder string, fileName string, data []byte) error {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("create export folder %s: %w", folder, err)
	}
	dest := filepath.Join(folder, fileName)
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("write export file %s: %w", dest, err)
	}
	return nil
}

func (a *Adapter) FolderExists(folder string) bool {
	info, err := os.Stat(folder)
	return err == nil && info.IsDir()
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
