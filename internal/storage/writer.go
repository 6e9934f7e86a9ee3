package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/gophermirror/internal/gopher"
)

// ErrPersist wraps any filesystem failure while saving a resource.
// Callers use errors.Is to recognize persistence failures without
// caring about the underlying os error.
var ErrPersist = errors.New("persist failed")

// Writer persists fetched resources under a root directory.
type Writer struct {
	// root is the directory all mirrored trees are created under.
	root string

	// clobber controls whether existing files are overwritten.
	// When false, an existing file is left untouched and the save is
	// reported as skipped rather than as an error.
	clobber bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithClobber enables overwriting of existing files.
func WithClobber(clobber bool) WriterOption {
	return func(w *Writer) {
		w.clobber = clobber
	}
}

// NewWriter creates a Writer rooted at the given directory.
func NewWriter(root string, opts ...WriterOption) *Writer {
	w := &Writer{root: root}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Save writes the resource bytes to the locator's mapped path.
// It returns the path, whether bytes were written (false means the file
// already existed and clobber is off), and any persistence error.
// Parent directories are created as needed.
func (w *Writer) Save(loc gopher.Locator, isMenu bool, data []byte) (string, bool, error) {
	path := LocalPath(w.root, loc, isMenu)

	if !w.clobber {
		if _, err := os.Stat(path); err == nil {
			return path, false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return path, false, fmt.Errorf("%w: %s: %v", ErrPersist, path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644) //nolint:gosec // Mirrored content is public
	if err != nil {
		return path, false, fmt.Errorf("%w: %s: %v", ErrPersist, path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck // Write already failed
		return path, false, fmt.Errorf("%w: %s: %v", ErrPersist, path, err)
	}
	if err := f.Close(); err != nil {
		return path, false, fmt.Errorf("%w: %s: %v", ErrPersist, path, err)
	}

	return path, true, nil
}
