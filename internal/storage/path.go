package storage

import (
	"path/filepath"
	"strings"

	"github.com/nao1215/gophermirror/internal/gopher"
)

// MenuFileName is the file a menu's raw bytes are saved under, inside
// the directory named after its selector. The name follows the
// gophermap convention used by Gopher servers, so a mirrored tree can
// be re-served as-is.
const MenuFileName = "gophermap"

// LocalPath returns the local path for a locator, relative to root.
// The segments are the host followed by the non-empty slash-separated
// components of the selector; menus get a trailing MenuFileName segment
// so the selector itself can become a directory.
//
// The mapping is pure: the same locator and flag always produce the
// same path. Repeated slashes contribute no segments. No further
// normalization happens here; keeping crafted ".." selectors in check
// is the crawler's ascension filter's job.
func LocalPath(root string, loc gopher.Locator, isMenu bool) string {
	segments := []string{root, loc.Host}

	for _, seg := range strings.Split(loc.Selector, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	if isMenu {
		segments = append(segments, MenuFileName)
	}

	return filepath.Join(segments...)
}
