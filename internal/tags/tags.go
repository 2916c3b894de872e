// Package tags supplies embedded tag metadata to the metadata resolver.
package tags

import (
	"log"
	"os"
	"strings"

	"github.com/dhowden/tag"

	"podcast-generator/internal/models"
)

// FileReader reads ID3, MP4, FLAC and Ogg tags from the audio file itself.
type FileReader struct {
	Logger *log.Logger
}

// Lookup returns the tags embedded in the file at path. The second result is
// false when the file has no readable tags.
func (r FileReader) Lookup(path string) (models.Tags, bool) {
	f, err := os.Open(path)
	if err != nil {
		r.debugf("open %s for tags: %v", path, err)
		return models.Tags{}, false
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		if err != tag.ErrNoTagsFound {
			r.debugf("read tags for %s: %v", path, err)
		}
		return models.Tags{}, false
	}

	tags := models.Tags{
		Title:  strings.TrimSpace(meta.Title()),
		Artist: strings.TrimSpace(meta.Artist()),
		Album:  strings.TrimSpace(meta.Album()),
	}
	if tags == (models.Tags{}) {
		return tags, false
	}
	return tags, true
}

func (r FileReader) debugf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}

// Map is a static tag table keyed by file path.
type Map map[string]models.Tags

// Lookup implements the resolver's tag lookup.
func (m Map) Lookup(path string) (models.Tags, bool) {
	tags, ok := m[path]
	return tags, ok
}

// LookupFunc adapts a plain function to the resolver's tag lookup.
type LookupFunc func(path string) (models.Tags, bool)

// Lookup calls f(path).
func (f LookupFunc) Lookup(path string) (models.Tags, bool) {
	return f(path)
}
