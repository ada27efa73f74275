// Package fsutil provides the path validation helpers shared by the
// generate commands and the watch session.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a required path does not exist.
var ErrNotFound = errors.New("path not found")

// ValidateFile checks that path exists and is a regular file.
func ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return fmt.Errorf("checking %s: %w", path, err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("path is not a file: %s", path)
	}

	return nil
}

// ValidateDir checks that path exists and is a directory.
func ValidateDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return fmt.Errorf("checking %s: %w", path, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	return nil
}

// EnsureDir creates path (and parents) when it is missing. An existing
// non-directory at path is an error.
func EnsureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path exists but is not a directory: %s", path)
		}

		return nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}

	return nil
}

// EnsureParentDir makes sure the directory that will hold file exists.
func EnsureParentDir(file string) error {
	return EnsureDir(filepath.Dir(file))
}

// ValidateWritable creates dir if needed and proves it is writable by
// creating and removing a probe file.
func ValidateWritable(dir string) error {
	if err := EnsureDir(dir); err != nil {
		return err
	}

	probe := filepath.Join(dir, fmt.Sprintf("test_write_%s.tmp", uuid.NewString()))

	f, err := os.Create(probe) //nolint:gosec // probe path is generated
	if err != nil {
		return fmt.Errorf("directory is not writable: %s: %w", dir, err)
	}

	_ = f.Close()

	if err := os.Remove(probe); err != nil {
		slog.Warn("failed to remove write probe", slog.String("path", probe), slog.String("error", err.Error()))
	}

	return nil
}

// Canonical returns the absolute path of p with symlinks resolved. It fails
// when p does not exist.
func Canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}

	return filepath.EvalSymlinks(abs)
}

// CanonicalOrAbs returns Canonical(p), falling back to the absolute (or, as a
// last resort, literal) path when p cannot be resolved.
func CanonicalOrAbs(p string) string {
	if c, err := Canonical(p); err == nil {
		return c
	}

	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}

	return p
}
