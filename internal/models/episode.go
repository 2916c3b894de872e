package models

import "time"

// Episode represents the metadata exposed for a single audio file.
type Episode struct {
	GUID            string    `json:"guid"`
	SourcePath      string    `json:"-"`
	Filename        string    `json:"filename"`
	RelativePath    string    `json:"relative_path"`
	Title           string    `json:"title"`
	Artist          *string   `json:"artist,omitempty"`
	Album           *string   `json:"album,omitempty"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	BitrateKbps     *int      `json:"bitrate_kbps,omitempty"`
	FilesizeBytes   int64     `json:"filesize_bytes"`
	MIMEType        string    `json:"mime_type"`
	ModifiedAt      time.Time `json:"modified_at"`
}

// Tags carries descriptive fields read from embedded audio metadata.
// Empty strings and a nil duration mean the value is unknown.
type Tags struct {
	Title           string
	Artist          string
	Album           string
	DurationSeconds *float64
}
