// Package model contains simple struct definitions shared across packages.
package model

import (
	"time"
)

// Thumbnail policy constants. Every derived image fits inside this box; the
// encoder quality matches the upstream registration system's output.
const (
	ThumbWidth  = 240
	ThumbHeight = 320
	ThumbMime   = "image/jpeg"
)

// BadgeRecord is the metadata half of a badge registration. The ID is
// generated on first sight of a badge number and never changes afterwards;
// BadgeNo is the upstream natural key and at most one record exists per
// value. All other fields are overwritten wholesale by the latest
// registration.
type BadgeRecord struct {
	ID        string    `json:"id"`
	BadgeNo   int       `json:"badgeNo"`
	RegNo     int       `json:"regNo"`
	Name      string    `json:"name"`
	Species   string    `json:"species"`
	Gender    string    `json:"gender"`
	WornBy    string    `json:"wornBy"`
	Public    bool      `json:"public"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BadgeImageRecord is the derived half. It shares its ID with the owning
// BadgeRecord rather than having its own key space. Bytes always holds the
// normalized output of the photo whose digest equals SourceFingerprint; a
// record with an empty fingerprint has never received a payload.
type BadgeImageRecord struct {
	ID                string `json:"id"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	MimeType          string `json:"mimeType"`
	SourceFingerprint string `json:"sourceFingerprint"`
	Size              int    `json:"size"`
	// Bytes is omitted from JSON output because of the "-" struct tag; image
	// payloads are served through the dedicated image endpoint instead.
	Bytes []byte `json:"-"`
}

// Registration mirrors the upstream submission payload field for field.
// DontPublish keeps the upstream 0/1 convention; it is inverted into
// BadgeRecord.Public during the upsert.
type Registration struct {
	BadgeNo      int    `json:"badgeNo"`
	RegNo        int    `json:"regNo"`
	Gender       string `json:"gender"`
	Name         string `json:"name"`
	Species      string `json:"species"`
	DontPublish  int    `json:"dontPublish"`
	WornBy       string `json:"wornBy"`
	ImageContent string `json:"imageContent"`
}
