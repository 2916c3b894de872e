// Package scanner lists the candidate audio files that sit directly inside a
// scan root.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"podcast-generator/internal/mediatype"
)

// NotFoundError reports a scan root that does not exist or is not a directory.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("scan root %s not found: %v", e.Path, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// Scan returns the absolute paths of the regular files directly inside root
// whose extension is registered in table. Entries that cannot be stat'ed are
// logged and skipped. The order of the result is unspecified.
func Scan(root string, table *mediatype.Table, logger *log.Logger) ([]string, error) {
	if logger == nil {
		logger = log.Default()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve scan root %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: abs, Err: err}
		}
		return nil, fmt.Errorf("stat scan root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, &NotFoundError{Path: abs, Err: fmt.Errorf("%w: not a directory", fs.ErrNotExist)}
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read scan root %s: %w", abs, err)
	}

	var paths []string
	for _, entry := range entries {
		if !table.Supports(entry.Name()) {
			continue
		}

		path := filepath.Join(abs, entry.Name())
		// os.Stat follows symlinks so a link to a regular file counts as one.
		info, err := os.Stat(path)
		if err != nil {
			logger.Printf("skipping %s: %v", path, err)
			continue
		}
		if info.IsDir() {
			continue
		}

		paths = append(paths, path)
	}

	return paths, nil
}
