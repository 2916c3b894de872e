// Package mediatype holds the fixed mapping from audio file extensions to the
// MIME types advertised in feed enclosures.
package mediatype

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/eduncan911/podcast"
)

var defaultTypes = map[string]string{
	".mp3":  podcast.MP3.String(),
	".m4a":  podcast.M4A.String(),
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",
}

// Table is an immutable extension to MIME type mapping. Keys are lowercase
// extensions including the leading dot.
type Table struct {
	types map[string]string
}

// Default returns the table of audio containers recognized out of the box.
func Default() *Table {
	return New(defaultTypes)
}

// New copies the provided mapping into a Table. Extensions are normalized to
// lowercase with a leading dot; entries with an empty extension or MIME type
// are dropped.
func New(types map[string]string) *Table {
	t := &Table{types: make(map[string]string, len(types))}
	for ext, mimeType := range types {
		ext = strings.ToLower(strings.TrimSpace(ext))
		mimeType = strings.TrimSpace(mimeType)
		if ext == "" || ext == "." || mimeType == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		t.types[ext] = mimeType
	}
	return t
}

// Lookup returns the MIME type registered for the extension of name.
func (t *Table) Lookup(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "", false
	}
	mimeType, ok := t.types[ext]
	return mimeType, ok
}

// Supports reports whether name carries a recognized audio extension.
func (t *Table) Supports(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

// Extensions returns the registered extensions in sorted order.
func (t *Table) Extensions() []string {
	if t == nil {
		return nil
	}
	result := make([]string, 0, len(t.types))
	for ext := range t.types {
		result = append(result, ext)
	}
	sort.Strings(result)
	return result
}
