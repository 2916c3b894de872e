package tags

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast-generator/internal/models"
)

func TestFileReaderMissingFile(t *testing.T) {
	tags, ok := FileReader{}.Lookup("/no/such/file.mp3")
	assert.False(t, ok)
	assert.Equal(t, models.Tags{}, tags)
}

func TestFileReaderUntaggedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.mp3")
	require.NoError(t, os.WriteFile(path, []byte("not really an mp3"), 0o644))

	_, ok := FileReader{}.Lookup(path)
	assert.False(t, ok)
}

func TestFileReaderID3v1(t *testing.T) {
	// ID3v1 is a fixed 128 byte trailer: "TAG", title[30], artist[30], album[30], ...
	trailer := make([]byte, 128)
	copy(trailer, "TAG")
	copy(trailer[3:], "Tagged Title")
	copy(trailer[33:], "Some Artist")
	copy(trailer[63:], "Some Album")
	trailer[127] = 0xff

	path := filepath.Join(t.TempDir(), "tagged.mp3")
	data := append([]byte("audio payload"), trailer...)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	tags, ok := FileReader{}.Lookup(path)
	require.True(t, ok)
	assert.Equal(t, "Tagged Title", tags.Title)
	assert.Equal(t, "Some Artist", tags.Artist)
	assert.Equal(t, "Some Album", tags.Album)
}

func TestMapAndLookupFunc(t *testing.T) {
	m := Map{"/a.mp3": {Title: "A"}}

	tags, ok := m.Lookup("/a.mp3")
	assert.True(t, ok)
	assert.Equal(t, "A", tags.Title)

	_, ok = m.Lookup("/b.mp3")
	assert.False(t, ok)

	fn := LookupFunc(func(path string) (models.Tags, bool) {
		return models.Tags{Title: path}, true
	})
	tags, ok = fn.Lookup("/c.mp3")
	assert.True(t, ok)
	assert.Equal(t, "/c.mp3", tags.Title)
}
