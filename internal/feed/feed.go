// Package feed assembles resolved episodes and channel metadata into an
// immutable, deterministically ordered feed document.
package feed

import (
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"podcast-generator/internal/models"
)

// Metadata describes the channel-level fields of the feed.
type Metadata struct {
	Title            string
	Description      string
	Link             string
	Language         string
	Generator        string
	Author           string
	EnclosureBaseURL *url.URL
	SelfURL          string
}

// Enclosure references the downloadable audio asset of an item.
type Enclosure struct {
	URL    string
	Length int64
	Type   string
}

// Item is one episode as it appears in the feed.
type Item struct {
	Episode   models.Episode
	Enclosure Enclosure
}

// Document is the assembled feed. It exposes no mutation API; accessors
// return copies.
type Document struct {
	meta      Metadata
	items     []Item
	lastBuild time.Time
}

// Metadata returns the channel metadata.
func (d *Document) Metadata() Metadata {
	meta := d.meta
	if meta.EnclosureBaseURL != nil {
		base := *meta.EnclosureBaseURL
		meta.EnclosureBaseURL = &base
	}
	return meta
}

// Len returns the number of items.
func (d *Document) Len() int {
	return len(d.items)
}

// Item returns the i-th item in feed order.
func (d *Document) Item(i int) Item {
	return d.items[i]
}

// Items returns the items in feed order.
func (d *Document) Items() []Item {
	result := make([]Item, len(d.items))
	copy(result, d.items)
	return result
}

// Episodes returns the episodes in feed order.
func (d *Document) Episodes() []models.Episode {
	result := make([]models.Episode, len(d.items))
	for i, item := range d.items {
		result[i] = item.Episode
	}
	return result
}

// LastBuild returns the newest episode modification time, or the zero time
// for an empty feed.
func (d *Document) LastBuild() time.Time {
	return d.lastBuild
}

// Assemble orders episodes newest first, with the relative path as a
// tie-break, and builds the document.
func Assemble(meta Metadata, episodes []models.Episode) (*Document, error) {
	if strings.TrimSpace(meta.Title) == "" {
		return nil, errors.New("feed title is required")
	}
	if meta.EnclosureBaseURL == nil || !meta.EnclosureBaseURL.IsAbs() || meta.EnclosureBaseURL.Host == "" {
		return nil, errors.New("feed enclosure base URL must be an absolute URL")
	}
	base := *meta.EnclosureBaseURL
	meta.EnclosureBaseURL = &base

	sorted := make([]models.Episode, len(episodes))
	copy(sorted, episodes)
	SortEpisodes(sorted)

	doc := &Document{meta: meta, items: make([]Item, 0, len(sorted))}
	for _, ep := range sorted {
		doc.items = append(doc.items, Item{
			Episode: ep,
			Enclosure: Enclosure{
				URL:    EnclosureURL(&base, ep.RelativePath),
				Length: ep.FilesizeBytes,
				Type:   ep.MIMEType,
			},
		})
		if ep.ModifiedAt.After(doc.lastBuild) {
			doc.lastBuild = ep.ModifiedAt.UTC()
		}
	}

	return doc, nil
}

// SortEpisodes applies the feed order in place.
func SortEpisodes(episodes []models.Episode) {
	sort.SliceStable(episodes, func(i, j int) bool {
		iTime := episodes[i].ModifiedAt
		jTime := episodes[j].ModifiedAt
		if iTime.Equal(jTime) {
			return episodes[i].RelativePath < episodes[j].RelativePath
		}
		return iTime.After(jTime)
	})
}

// EnclosureURL joins base with the slash separated relative path, escaping
// each segment as needed.
func EnclosureURL(base *url.URL, relativePath string) string {
	segments := strings.Split(strings.TrimLeft(relativePath, "/"), "/")
	// JoinPath expects escaped elements.
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	joined := base.JoinPath(segments...)
	joined.RawQuery = base.RawQuery
	joined.Fragment = ""
	return joined.String()
}
