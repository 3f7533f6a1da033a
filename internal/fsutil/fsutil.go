// Package fsutil writes whole files atomically.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile writes data to a temporary file in dir then renames it to name, replacing any existing file.
//
// Readers never observe a partially written file: either the old file (or nothing) or the complete new file.
func WriteFile(dir, name string, data []byte, perm os.FileMode) (string, error) {
	tmp, err := writeTemp(dir, name, data, perm)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(dir, name)
	if err = os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename file error: %w", err)
	}

	return dst, nil
}

// WriteExclFile is a variant of WriteFile that never replaces an existing file.
//
// If "stem+ext" already exists in dir, "stem-1+ext", "stem-2+ext", etc. are tried in order. The name is claimed with
// an empty file created with O_EXCL, then the fully written temp file is renamed onto it, so the claimed name holds
// either nothing or the complete data. The name of the file that was actually created is returned.
func WriteExclFile(dir, stem, ext string, data []byte, perm os.FileMode) (string, error) {
	tmp, err := writeTemp(dir, stem+ext, data, perm)
	if err != nil {
		return "", err
	}

	name, err := claim(dir, stem, ext, perm)
	if err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	afterClaim(name)

	if err = os.Rename(tmp, name); err != nil {
		_ = os.Remove(tmp)
		_ = os.Remove(name)
		return "", fmt.Errorf("rename file error: %w", err)
	}

	return name, nil
}

// afterClaim is called by WriteExclFile once the name has been claimed. Tests replace it.
var afterClaim = func(name string) {}

// claim creates an empty file that did not exist prior to this call.
func claim(dir, stem, ext string, perm os.FileMode) (string, error) {
	name := filepath.Join(dir, stem+ext)
	for i := 0; ; {
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		switch {
		case err == nil:
			if err = f.Close(); err != nil {
				_ = os.Remove(name)
				return "", fmt.Errorf("create file error: %w", err)
			}

			return name, nil
		case errors.Is(err, os.ErrExist):
			i++
			name = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
		default:
			return "", fmt.Errorf("create file error: %w", err)
		}
	}
}

func writeTemp(dir, name string, data []byte, perm os.FileMode) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file error: %w", err)
	}

	_, err = f.Write(data)
	if err == nil {
		err = f.Chmod(perm)
	}
	if err == nil {
		err = f.Sync()
	}
	if err2 := f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write temp file error: %w", err)
	}

	return f.Name(), nil
}
