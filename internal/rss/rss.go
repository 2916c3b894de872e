// Package rss renders a feed document as an RSS 2.0 podcast feed with the
// iTunes and Atom namespace extensions.
package rss

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"podcast-generator/internal/feed"
	"podcast-generator/internal/models"
)

const (
	// Header is the XML declaration written before the root element.
	Header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

	ITunesNamespace = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	AtomNamespace   = "http://www.w3.org/2005/Atom"

	// ContentType is the media type consumers should advertise for the output.
	ContentType = "application/rss+xml; charset=utf-8"
)

// WriteError reports a failure of the output sink.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write feed: %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// InvariantError reports a field that cannot be represented in XML. It means
// an upstream stage let malformed text through.
type InvariantError struct {
	Field string
	Value string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("field %s holds text that is not valid XML: %q", e.Field, e.Value)
}

// Encode renders doc and writes it to w in a single call. Nothing is written
// when rendering fails. w is never closed.
func Encode(w io.Writer, doc *feed.Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// Marshal renders doc into an indented XML document.
func Marshal(doc *feed.Document) ([]byte, error) {
	rss := build(doc)
	if err := validate(rss); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(rss); err != nil {
		return nil, fmt.Errorf("encode feed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode feed: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func build(doc *feed.Document) rssFeed {
	meta := doc.Metadata()

	rss := rssFeed{
		Version:  "2.0",
		ITunesNS: ITunesNamespace,
		AtomNS:   AtomNamespace,
		Channel: rssChannel{
			Title:          meta.Title,
			Link:           meta.Link,
			Description:    meta.Description,
			Language:       meta.Language,
			Generator:      meta.Generator,
			ITunesAuthor:   meta.Author,
			ITunesExplicit: "false",
		},
	}

	if lastBuild := doc.LastBuild(); !lastBuild.IsZero() {
		rss.Channel.LastBuildDate = lastBuild.UTC().Format(time.RFC1123Z)
	}

	if meta.SelfURL != "" {
		rss.Channel.AtomLink = &rssAtomLink{
			Href: meta.SelfURL,
			Rel:  "self",
			Type: "application/rss+xml",
		}
	}

	for _, it := range doc.Items() {
		ep := it.Episode
		item := rssItem{
			Title:       ep.Title,
			Link:        it.Enclosure.URL,
			Description: episodeDescription(ep),
			GUID:        rssGUID{IsPermaLink: "false", Value: ep.GUID},
			PubDate: func() string {
				if ep.ModifiedAt.IsZero() {
					return ""
				}
				return ep.ModifiedAt.UTC().Format(time.RFC1123Z)
			}(),
			Enclosure: rssEnclosure{
				URL:    it.Enclosure.URL,
				Length: it.Enclosure.Length,
				Type:   it.Enclosure.Type,
			},
		}

		if ep.DurationSeconds != nil {
			item.ITunesDuration = formatDuration(*ep.DurationSeconds)
		}

		if ep.Artist != nil {
			item.ITunesAuthor = *ep.Artist
		} else {
			item.ITunesAuthor = meta.Author
		}

		rss.Channel.Items = append(rss.Channel.Items, item)
	}

	return rss
}

type field struct {
	name  string
	value string
}

func validate(rss rssFeed) error {
	ch := rss.Channel
	fields := []field{
		{"channel.title", ch.Title},
		{"channel.link", ch.Link},
		{"channel.description", ch.Description},
		{"channel.language", ch.Language},
		{"channel.generator", ch.Generator},
		{"channel.itunes:author", ch.ITunesAuthor},
	}
	if ch.AtomLink != nil {
		fields = append(fields, field{"channel.atom:link", ch.AtomLink.Href})
	}

	for i, item := range ch.Items {
		if strings.TrimSpace(item.GUID.Value) == "" {
			return &InvariantError{Field: fmt.Sprintf("item[%d].guid", i), Value: item.GUID.Value}
		}
		prefix := fmt.Sprintf("item[%d].", i)
		fields = append(fields,
			field{prefix + "title", item.Title},
			field{prefix + "link", item.Link},
			field{prefix + "description", item.Description},
			field{prefix + "guid", item.GUID.Value},
			field{prefix + "enclosure.url", item.Enclosure.URL},
			field{prefix + "enclosure.type", item.Enclosure.Type},
			field{prefix + "itunes:author", item.ITunesAuthor},
		)
	}

	for _, f := range fields {
		if !validText(f.value) {
			return &InvariantError{Field: f.name, Value: f.value}
		}
	}
	return nil
}

func validText(value string) bool {
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

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

func episodeDescription(ep models.Episode) string {
	parts := make([]string, 0, 3)
	if ep.Artist != nil && *ep.Artist != "" {
		parts = append(parts, *ep.Artist)
	}
	if ep.Album != nil && *ep.Album != "" {
		parts = append(parts, *ep.Album)
	}
	parts = append(parts, ep.Filename)
	return strings.Join(parts, " – ")
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	total := int64(seconds + 0.5)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

type rssFeed struct {
	XMLName  xml.Name   `xml:"rss"`
	Version  string     `xml:"version,attr"`
	ITunesNS string     `xml:"xmlns:itunes,attr"`
	AtomNS   string     `xml:"xmlns:atom,attr"`
	Channel  rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title          string       `xml:"title"`
	Link           string       `xml:"link"`
	Description    string       `xml:"description"`
	Language       string       `xml:"language,omitempty"`
	Generator      string       `xml:"generator,omitempty"`
	LastBuildDate  string       `xml:"lastBuildDate,omitempty"`
	AtomLink       *rssAtomLink `xml:"atom:link,omitempty"`
	ITunesAuthor   string       `xml:"itunes:author,omitempty"`
	ITunesExplicit string       `xml:"itunes:explicit"`
	Items          []rssItem    `xml:"item"`
}

type rssAtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title          string       `xml:"title"`
	Link           string       `xml:"link"`
	Description    string       `xml:"description"`
	GUID           rssGUID      `xml:"guid"`
	PubDate        string       `xml:"pubDate,omitempty"`
	Enclosure      rssEnclosure `xml:"enclosure"`
	ITunesDuration string       `xml:"itunes:duration,omitempty"`
	ITunesAuthor   string       `xml:"itunes:author,omitempty"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}
