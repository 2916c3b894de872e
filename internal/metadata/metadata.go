package metadata

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tcolgate/mp3"

	"podcast-generator/internal/mediatype"
	"podcast-generator/internal/models"
)

// TagLookup supplies embedded tag data for a file, when any is available.
type TagLookup interface {
	Lookup(path string) (models.Tags, bool)
}

// UnavailableError reports a file that disappeared or became unreadable
// between scanning and resolving.
type UnavailableError struct {
	Path string
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("metadata unavailable for %s: %v", e.Path, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Resolve constructs the episode snapshot for the audio file at path. root is
// the scan root the relative path is computed against. lookup may be nil.
func Resolve(path, root string, table *mediatype.Table, lookup TagLookup) (models.Episode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.Episode{}, &UnavailableError{Path: path, Err: err}
	}
	if info.IsDir() {
		return models.Episode{}, &UnavailableError{Path: path, Err: errors.New("is a directory")}
	}

	mimeType, ok := table.Lookup(path)
	if !ok {
		return models.Episode{}, &UnavailableError{Path: path, Err: fmt.Errorf("unsupported extension %q", filepath.Ext(path))}
	}

	relative, err := filepath.Rel(root, path)
	if err != nil {
		relative = filepath.Base(path)
	}
	relative = filepath.ToSlash(relative)

	var tags models.Tags
	if lookup != nil {
		if found, ok := lookup.Lookup(path); ok {
			tags = found
		}
	}

	durationPtr := tags.DurationSeconds
	if durationPtr == nil && strings.EqualFold(filepath.Ext(path), ".mp3") {
		dur, err := computeMP3Duration(path)
		if err == nil && dur > 0 {
			durationPtr = &dur
		}
	}

	var bitratePtr *int
	if durationPtr != nil && *durationPtr > 0 {
		bitrate := int(math.Round((float64(info.Size()) * 8) / *durationPtr / 1000))
		if bitrate > 0 {
			bitratePtr = &bitrate
		}
	}

	return models.Episode{
		SourcePath:      path,
		Filename:        SanitizeText(filepath.Base(path)),
		RelativePath:    relative,
		Title:           displayTitle(tags.Title, filepath.Base(path)),
		Artist:          optionalString(tags.Artist),
		Album:           optionalString(tags.Album),
		DurationSeconds: durationPtr,
		BitrateKbps:     bitratePtr,
		FilesizeBytes:   info.Size(),
		MIMEType:        mimeType,
		ModifiedAt:      info.ModTime().UTC().Round(time.Second),
	}, nil
}

// displayTitle prefers the tag title, then the filename stem, then the raw
// filename for names such as ".mp3" whose stem is empty.
func displayTitle(tagTitle, filename string) string {
	if title := SanitizeText(strings.TrimSpace(tagTitle)); title != "" {
		return title
	}
	if stem := SanitizeText(strings.TrimSuffix(filename, filepath.Ext(filename))); strings.TrimSpace(stem) != "" {
		return stem
	}
	return SanitizeText(filename)
}

func optionalString(value string) *string {
	value = SanitizeText(strings.TrimSpace(value))
	if value == "" {
		return nil
	}
	return &value
}

// SanitizeText drops invalid UTF-8 and runes that cannot appear in an XML
// document.
func SanitizeText(value string) string {
	if isCleanText(value) {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); {
		r, size := utf8.DecodeRuneInString(value[i:])
		if !(r == utf8.RuneError && size == 1) && isXMLChar(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func isCleanText(value string) bool {
	if !utf8.ValidString(value) {
		return false
	}
	for _, r := range value {
		if !isXMLChar(r) {
			return false
		}
	}
	return true
}

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

func computeMP3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var total float64

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		total += frame.Duration().Seconds()
	}

	return total, nil
}
