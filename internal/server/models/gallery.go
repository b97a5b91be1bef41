package models

import (
	"strings"
	"time"
)

// Gallery is the per-user photo album, created lazily on first upload.
type Gallery struct {
	ID            string
	UserID        string
	GuestName     string
	CoverPhotoURL string
	PhotoCount    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GalleryPreview is a gallery with the thumbnails of its newest photos.
type GalleryPreview struct {
	Gallery
	Previews []string
}

func trimJoin(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
