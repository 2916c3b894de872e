package pipeline

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast-generator/internal/feed"
	"podcast-generator/internal/identity"
	"podcast-generator/internal/models"
	"podcast-generator/internal/rss"
	"podcast-generator/internal/scanner"
	"podcast-generator/internal/tags"
)

type parsedItem struct {
	Title string `xml:"title"`
	GUID  string `xml:"guid"`
	Enc   struct {
		URL    string `xml:"url,attr"`
		Length int64  `xml:"length,attr"`
	} `xml:"enclosure"`
}

type parsedFeed struct {
	Channel struct {
		Title string       `xml:"title"`
		Items []parsedItem `xml:"item"`
	} `xml:"channel"`
}

func writeAudio(t *testing.T, dir, name string, size int, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{'a'}, size), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func testOptions(t *testing.T, root string) Options {
	t.Helper()
	base, err := url.Parse("https://cdn.example/audio/")
	require.NoError(t, err)
	return Options{
		Root: root,
		Metadata: feed.Metadata{
			Title:            "Test Feed",
			Description:      "Test feed description",
			Link:             "https://example.com",
			Language:         "en",
			Generator:        "podcast-generator",
			EnclosureBaseURL: base,
		},
		Workers: 2,
		Logger:  log.New(io.Discard, "", 0),
	}
}

func generate(t *testing.T, opts Options) ([]byte, parsedFeed) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Generate(context.Background(), opts, &buf))
	var payload parsedFeed
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &payload))
	return buf.Bytes(), payload
}

func TestGenerateTwoEpisodesNewestFirst(t *testing.T) {
	root := t.TempDir()
	t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	writeAudio(t, root, "first.mp3", 10, t1)
	writeAudio(t, root, "second.mp3", 20, t2)

	_, payload := generate(t, testOptions(t, root))

	items := payload.Channel.Items
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Title)
	assert.Equal(t, "first", items[1].Title)
	assert.Equal(t, int64(20), items[0].Enc.Length)
	assert.Equal(t, int64(10), items[1].Enc.Length)
	assert.Equal(t, "https://cdn.example/audio/second.mp3", items[0].Enc.URL)
	assert.NotEqual(t, items[0].GUID, items[1].GUID)
	assert.Equal(t, identity.GUID("first.mp3", 10), items[1].GUID)
}

func TestGenerateFiltersNonAudio(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	for _, name := range []string{"first.mp3", "second.mp3", "notes.txt", "almost.mp3a"} {
		writeAudio(t, root, name, 1, now)
	}
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir.mp3"), 0o755))

	_, payload := generate(t, testOptions(t, root))

	require.Len(t, payload.Channel.Items, 2)
	titles := []string{payload.Channel.Items[0].Title, payload.Channel.Items[1].Title}
	assert.ElementsMatch(t, []string{"first", "second"}, titles)
}

func TestGenerateToleratesUnprintableFilenames(t *testing.T) {
	root := t.TempDir()
	t1 := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	writeAudio(t, root, "bad\xffname.mp3", 7, t1)
	writeAudio(t, root, "bad\x01name.mp3", 5, t1.Add(time.Minute))

	data, payload := generate(t, testOptions(t, root))

	items := payload.Channel.Items
	require.Len(t, items, 2)
	assert.Equal(t, "badname", items[0].Title)
	assert.Equal(t, "badname", items[1].Title)
	assert.Equal(t, "https://cdn.example/audio/bad%01name.mp3", items[0].Enc.URL)
	assert.Equal(t, "https://cdn.example/audio/bad%FFname.mp3", items[1].Enc.URL)
	assert.NotEqual(t, items[0].GUID, items[1].GUID)
	assert.Contains(t, string(data), "<description>badname.mp3</description>")
}

func TestGenerateEmptyDirectory(t *testing.T) {
	data, payload := generate(t, testOptions(t, t.TempDir()))

	assert.Equal(t, "Test Feed", payload.Channel.Title)
	assert.Empty(t, payload.Channel.Items)
	assert.True(t, bytes.HasPrefix(data, []byte(rss.Header)))
}

func TestGenerateNonexistentRoot(t *testing.T) {
	var buf bytes.Buffer
	err := Generate(context.Background(), testOptions(t, filepath.Join(t.TempDir(), "nope")), &buf)

	var notFound *scanner.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Zero(t, buf.Len())
}

func TestGenerateCollisionProducesNoOutput(t *testing.T) {
	root := t.TempDir()
	writeAudio(t, root, "first.mp3", 1, time.Now())
	writeAudio(t, root, "second.mp3", 2, time.Now())

	opts := testOptions(t, root)
	opts.Assigner = identity.Assigner{Hash: func(string, int64) string { return "same" }}

	var buf bytes.Buffer
	err := Generate(context.Background(), opts, &buf)
	var collision *identity.CollisionError
	require.True(t, errors.As(err, &collision))
	assert.Zero(t, buf.Len())
}

func TestGenerateIsDeterministic(t *testing.T) {
	root := t.TempDir()
	same := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, name := range []string{"c.mp3", "a.mp3", "b.mp3", "d.flac"} {
		writeAudio(t, root, name, len(name), same)
	}

	first, payload := generate(t, testOptions(t, root))
	opts := testOptions(t, root)
	opts.Workers = 1
	second, _ := generate(t, opts)

	assert.Equal(t, first, second)
	require.Len(t, payload.Channel.Items, 4)
	assert.Equal(t, "a", payload.Channel.Items[0].Title)
	assert.Equal(t, "d", payload.Channel.Items[3].Title)
}

func TestGenerateIdentityStability(t *testing.T) {
	root := t.TempDir()
	path := writeAudio(t, root, "first.mp3", 10, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	_, before := generate(t, testOptions(t, root))

	later := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, later, later))
	_, touched := generate(t, testOptions(t, root))
	assert.Equal(t, before.Channel.Items[0].GUID, touched.Channel.Items[0].GUID)

	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{'b'}, 11), 0o644))
	_, grown := generate(t, testOptions(t, root))
	assert.NotEqual(t, before.Channel.Items[0].GUID, grown.Channel.Items[0].GUID)
}

func TestGenerateUsesTagLookup(t *testing.T) {
	root := t.TempDir()
	path := writeAudio(t, root, "ep1.mp3", 3, time.Now())

	opts := testOptions(t, root)
	opts.Tags = tags.Map{path: models.Tags{Title: "Pilot & <Friends>"}}

	_, payload := generate(t, opts)
	require.Len(t, payload.Channel.Items, 1)
	assert.Equal(t, "Pilot & <Friends>", payload.Channel.Items[0].Title)
}

func TestGenerateWriteFailure(t *testing.T) {
	err := Generate(context.Background(), testOptions(t, t.TempDir()), failingWriter{})
	var writeErr *rss.WriteError
	assert.True(t, errors.As(err, &writeErr))
}

func TestBuildHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	writeAudio(t, root, "first.mp3", 1, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, testOptions(t, root))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderMatchesGenerate(t *testing.T) {
	root := t.TempDir()
	writeAudio(t, root, "first.mp3", 1, time.Now())

	data, doc, err := Render(context.Background(), testOptions(t, root))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Len())

	generated, _ := generate(t, testOptions(t, root))
	assert.Equal(t, generated, data)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}
